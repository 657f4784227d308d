package local

import "errors"

var (
	// ErrModelRequired is returned when no model identifier or path is configured.
	ErrModelRequired = errors.New("model identifier or path is required")

	// ErrModelFetch is returned when a model cannot be downloaded.
	ErrModelFetch = errors.New("failed to fetch model")
)
