package pipeline

import "errors"

var (
	// ErrStorageRequired indicates a pipeline was created without storage.
	ErrStorageRequired = errors.New("storage is required")

	// ErrNoSteps indicates Run was called on an empty pipeline.
	ErrNoSteps = errors.New("pipeline has no steps")

	// ErrDuplicateStep indicates two steps share a name.
	ErrDuplicateStep = errors.New("duplicate step name")

	// ErrInvalidConfig indicates a malformed pipeline file.
	ErrInvalidConfig = errors.New("invalid pipeline config")
)
