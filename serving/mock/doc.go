// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package mock provides test doubles for serving.Serving.
//
// The mock returns its concrete type so tests can inject behavior and make
// assertions on how it was called:
//
//	m := mock.NewMockServing()
//	m.RespondFunc = func(input, systemPrompt string) (string, bool) {
//	    return "42", true
//	}
//	outputs, _ := m.GenerateFromInput(ctx, []string{"6*7?"}, "")
//	assert.Equal(t, 1, m.CallCount())
package mock
