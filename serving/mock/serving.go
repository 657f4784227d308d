package mock

import (
	"context"
	"sync"

	"github.com/poiesic/dataforge/serving"
)

// MockServing is a serving.Serving for tests.
type MockServing struct {
	// GenerateFunc replaces the whole batch behavior when set.
	GenerateFunc func(ctx context.Context, inputs []string, systemPrompt string) ([]*string, error)

	// RespondFunc answers a single input. Returning false leaves the slot nil.
	RespondFunc func(input, systemPrompt string) (string, bool)

	mu            sync.Mutex
	callCount     int
	inputs        [][]string
	systemPrompts []string
	closed        bool
}

var _ serving.Serving = (*MockServing)(nil)

// NewMockServing creates a mock that echoes every input.
// Note: Returns concrete type to allow test assertions.
func NewMockServing() *MockServing {
	return &MockServing{}
}

// GenerateFromInput records the call and answers through GenerateFunc,
// RespondFunc or by echoing the input, in that order of preference.
func (m *MockServing) GenerateFromInput(ctx context.Context, inputs []string, systemPrompt string) ([]*string, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, serving.ErrClosed
	}
	m.callCount++
	m.inputs = append(m.inputs, append([]string(nil), inputs...))
	m.systemPrompts = append(m.systemPrompts, systemPrompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, inputs, systemPrompt)
	}
	results := make([]*string, len(inputs))
	for i, input := range inputs {
		out, ok := input, true
		if m.RespondFunc != nil {
			out, ok = m.RespondFunc(input, systemPrompt)
		}
		if ok {
			results[i] = &out
		}
	}
	return results, nil
}

// Close marks the mock closed.
func (m *MockServing) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of GenerateFromInput calls.
func (m *MockServing) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Inputs returns the inputs of every call.
func (m *MockServing) Inputs() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs
}

// SystemPrompts returns the system prompt of every call.
func (m *MockServing) SystemPrompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.systemPrompts
}

// IsClosed reports whether Close was called.
func (m *MockServing) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reset clears recorded calls and custom functions.
func (m *MockServing) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.inputs = nil
	m.systemPrompts = nil
	m.closed = false
	m.GenerateFunc = nil
	m.RespondFunc = nil
}
