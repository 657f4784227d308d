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


// Package serving defines the text generation contract used by operators.
//
// A Serving turns a batch of prompts into a batch of generations of the same
// length and order. Individual failures show up as nil entries instead of an
// error, so a flaky backend never costs a whole stage.
//
// # Implementation Packages
//
//   - serving/openai: remote OpenAI-compatible chat endpoints
//   - serving/local: an engine running next to the pipeline (ollama by default)
//   - serving/mock: test doubles
//
// Public constructors in the implementation packages return the Serving
// interface. The mock constructor returns its concrete type so tests can
// inject behavior and inspect call counts.
//
// # Usage Example
//
//	cfg := serving.NewConfig(
//	    serving.WithURL("https://api.example.com/v1"),
//	    serving.WithModel("gpt-4o"),
//	)
//	client, err := openai.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	outputs, err := client.GenerateFromInput(ctx, questions, "You are a careful math tutor.")
//	for i, out := range outputs {
//	    if out == nil {
//	        continue // row i failed, already logged
//	    }
//	}
package serving
