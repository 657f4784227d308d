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


// Package operator defines the contract every pipeline stage implements and
// the registry used to build stages by name.
//
// An Operator validates its configuration with CheckConfig, transforms the
// table at the storage's current stage with Run, and describes itself with
// Desc. Run reads the stage the caller stepped to and writes the next one:
//
//	cols, err := op.Run(ctx, store.Step())
//
// Configuration problems surface as *ConfigError naming every missing key.
// Problems with a single row (an unparsable model reply, say) are logged as
// *PerRowError values and never abort the batch.
//
// # Registry
//
// A Registry maps names to factories. Registration is explicit: each operator
// package exposes a function adding its operators to a registry at startup.
// Factories that pull in heavy dependencies can be wrapped with Lazy so they
// are initialized only when first used.
//
//	reg := operator.NewRegistry()
//	operators.Register(reg)
//	op, err := reg.Build("NgramFilter", operator.Params{"input_key": "text"}, deps)
package operator
