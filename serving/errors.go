package serving

import "errors"

var (
	// ErrClosed is returned when a closed client is used.
	ErrClosed = errors.New("serving client is closed")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid serving config")

	// ErrEmptyResponse is returned when a backend answers without choices.
	ErrEmptyResponse = errors.New("empty response from model")
)
