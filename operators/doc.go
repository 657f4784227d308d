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


// Package operators provides the stock pipeline stages: text heuristics,
// answer filters, LLM-backed generators and classifiers, and format
// converters.
//
// Every operator follows the same shape:
//   - a Config struct with yaml tags and a DefaultXConfig constructor
//   - NewX(config, ...) returning *X, which reports configuration errors
//   - Run reading the current stage, validating columns before touching
//     any row, and writing the result to the next stage
//
// Register adds all of them to an operator.Registry. Listing or describing
// them builds nothing; operators that need a serving client ask for one only
// when built, and AnswerTokenLengthFilter loads its tokenizer on first build.
//
// Problems confined to a single row, such as an unparsable model reply,
// are logged as *operator.PerRowError and never abort the batch.
package operators
