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


package core

import "errors"

// Table errors
var (
	// ErrColumnNotFound indicates a column is absent from a table.
	ErrColumnNotFound = errors.New("column not found")

	// ErrLengthMismatch indicates a column does not have one value per row.
	ErrLengthMismatch = errors.New("column length does not match row count")

	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("schema violation")
)
