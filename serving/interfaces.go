package serving

import "context"

// Serving generates text for a batch of inputs.
// Implementations must be safe for concurrent use.
type Serving interface {
	// GenerateFromInput returns one result per input in the same order.
	// A nil entry means generation for that input failed; the failure has
	// been logged. The error is reserved for problems with the call itself,
	// such as a closed client.
	GenerateFromInput(ctx context.Context, inputs []string, systemPrompt string) ([]*string, error)

	// Close releases resources. The client cannot be used afterwards.
	Close() error
}

// UsageReporter is implemented by clients that track token consumption.
type UsageReporter interface {
	// TotalTokens returns the tokens consumed by all successful requests.
	TotalTokens() int64
}
