package core

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns that are absent and output columns
// that already exist and would be overwritten.
type SchemaError struct {
	Missing     []string
	Conflicting []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required column(s): %v", e.Missing))
	}
	if len(e.Conflicting) > 0 {
		parts = append(parts, fmt.Sprintf("column(s) already exist and would be overwritten: %v", e.Conflicting))
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrSchema) match any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// ValidateColumns checks a table before any transformation runs.
//
// Validation rules:
//   - every name in required must be a column of t
//   - no name in forbidden may be a column of t
//
// Every offending name is reported, not just the first.
func ValidateColumns(t *Table, required, forbidden []string) error {
	if t == nil {
		return fmt.Errorf("%w: table is nil", ErrSchema)
	}
	var missing, conflicting []string
	for _, c := range required {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	for _, c := range forbidden {
		if t.HasColumn(c) {
			conflicting = append(conflicting, c)
		}
	}
	if len(missing) == 0 && len(conflicting) == 0 {
		return nil
	}
	return &SchemaError{Missing: missing, Conflicting: conflicting}
}
