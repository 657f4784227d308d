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


// Package orchestrator fans a batch of independent requests out over a
// bounded worker pool and collects the results in input order.
//
// Each request owns exactly one result slot. A request that fails, panics,
// times out or cannot be scheduled leaves its slot nil; the failure is logged
// and never aborts the rest of the batch.
//
// Basic usage:
//
//	orch, err := orchestrator.New(orchestrator.WithPoolSize(8))
//	if err != nil {
//	    return err
//	}
//	defer orch.Release()
//
//	results := orch.Dispatch(ctx, orchestrator.BuildRequests(system, prompts), call)
package orchestrator
