package operator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfig is matched by every *ConfigError.
	ErrConfig = errors.New("invalid operator config")

	// ErrPerRow is matched by every *PerRowError.
	ErrPerRow = errors.New("row processing failed")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("operator not registered")

	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("operator already registered")

	// ErrServingRequired is returned by factories of operators that call a model.
	ErrServingRequired = errors.New("operator requires a serving client")
)

// ConfigError names every missing or conflicting configuration key of an operator.
type ConfigError struct {
	Operator    string
	Missing     []string
	Conflicting []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required keys: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Conflicting) > 0 {
		parts = append(parts, "conflicting options: "+strings.Join(e.Conflicting, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Operator, strings.Join(parts, "; "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// PerRowError reports a failure confined to one row.
type PerRowError struct {
	Index int
	Err   error
}

func (e *PerRowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Index, e.Err)
}

func (e *PerRowError) Is(target error) bool {
	return target == ErrPerRow
}

func (e *PerRowError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned by Registry.Get for unknown names.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("operator %q is not registered", e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
