package operators

import (
	"errors"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tmc/langchaingo/llms"
)

var errNoEncoding = errors.New("no tokenizer for model")

// encoder is the part of a tiktoken encoding the filters use.
type encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// loadEncoding resolves the tokenizer of a model. Resolving fetches and
// parses the BPE ranks, so callers keep the result.
var loadEncoding = func(model string) (encoder, error) {
	e, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// tokenCounters holds one resolved encoding per model. A model whose
// encoding cannot be resolved is counted by llms.CountTokens.
type tokenCounters struct {
	mu        sync.Mutex
	encodings map[string]encoder
}

func newTokenCounters() *tokenCounters {
	return &tokenCounters{encodings: make(map[string]encoder)}
}

// resolve loads the encoding of model on first use. Failures are remembered
// too, so a missing tokenizer costs one load per model.
func (c *tokenCounters) resolve(model string) (encoder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.encodings[model]; ok {
		if e == nil {
			return nil, errNoEncoding
		}
		return e, nil
	}
	e, err := loadEncoding(model)
	if err != nil {
		c.encodings[model] = nil
		return nil, err
	}
	c.encodings[model] = e
	return e, nil
}

// Count satisfies TokenCounter.
func (c *tokenCounters) Count(model, text string) int {
	e, err := c.resolve(model)
	if err != nil {
		return llms.CountTokens(model, text)
	}
	return len(e.Encode(text, nil, nil))
}
