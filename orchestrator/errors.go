package orchestrator

import "errors"

var (
	// ErrRequestFailed marks a request whose slot was left empty.
	ErrRequestFailed = errors.New("request failed")

	// ErrRequestPanicked is returned for a request whose call panicked.
	ErrRequestPanicked = errors.New("request panicked")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
