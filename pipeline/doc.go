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


// Package pipeline runs operators in sequence over a staged storage.
//
// Step i reads stage i and writes stage i+1, so a pipeline of n steps
// leaves n artifacts behind its input. Every operator's configuration is
// checked before the first step runs. The first failing step stops the run
// and its error is returned wrapped with the step's name.
//
// A Pipeline owns its storage cursor and must not share a storage with
// another running pipeline.
//
// Pipelines can also be described in YAML and loaded with LoadConfig.
package pipeline
