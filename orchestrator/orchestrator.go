package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultPoolSize = 10
	DefaultTimeout  = 60 * time.Second
)

// Request is one unit of work. Index is the position of its result slot.
type Request struct {
	Index        int
	SystemPrompt string
	Prompt       string
}

// CallFunc performs a single request. It should honour ctx.
type CallFunc func(ctx context.Context, req Request) (string, error)

// Orchestrator runs batches of requests over a shared ants pool.
// It is safe for concurrent use.
type Orchestrator struct {
	pool       *ants.Pool
	poolSize   int
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize bounds the number of requests in flight. Default is 10.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}
		o.poolSize = size
		return nil
	}
}

// WithTimeout sets the per-request deadline. Zero disables it.
// Default is 60s.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) error {
		if timeout < 0 {
			return fmt.Errorf("timeout cannot be negative: %s", timeout)
		}
		o.timeout = timeout
		return nil
	}
}

// WithRetries allows up to attempts tries per request with exponential
// backoff starting at delay. Default is a single attempt.
func WithRetries(attempts int, delay time.Duration) Option {
	return func(o *Orchestrator) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		o.attempts = attempts
		o.retryDelay = delay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "orchestrator")
		return nil
	}
}

// antsLogger routes pool diagnostics to slog.
type antsLogger struct {
	logger *slog.Logger
}

var _ ants.Logger = (*antsLogger)(nil)

func (l *antsLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// New creates an orchestrator and its worker pool.
func New(opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		poolSize: DefaultPoolSize,
		timeout:  DefaultTimeout,
		attempts: 1,
		logger:   slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(o.poolSize,
		ants.WithLogger(&antsLogger{logger: o.logger}),
		ants.WithPanicHandler(func(p any) {
			o.logger.Error("worker panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, err
	}
	o.pool = pool
	return o, nil
}

// PoolSize returns the configured concurrency bound.
func (o *Orchestrator) PoolSize() int {
	return o.poolSize
}

// Release frees the worker pool. Dispatch after Release leaves every slot nil.
func (o *Orchestrator) Release() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// BuildRequests pairs every prompt with the shared system prompt.
func BuildRequests(systemPrompt string, prompts []string) []Request {
	requests := make([]Request, len(prompts))
	for i, p := range prompts {
		requests[i] = Request{Index: i, SystemPrompt: systemPrompt, Prompt: p}
	}
	return requests
}

// Dispatch runs call for every request and blocks until all have finished.
// The result has one slot per request in input order; a slot is nil when
// its request failed.
func (o *Orchestrator) Dispatch(ctx context.Context, requests []Request, call CallFunc) []*string {
	results := make([]*string, len(requests))
	if len(requests) == 0 {
		return results
	}

	start := time.Now()
	var wg sync.WaitGroup
	var failed atomic.Int64
	for i, req := range requests {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			out, err := o.execute(ctx, req, call)
			if err != nil {
				failed.Add(1)
				o.logger.Warn("request failed", "index", req.Index, "error", err)
				return
			}
			results[i] = &out
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			o.logger.Warn("request not scheduled", "index", req.Index,
				"error", fmt.Errorf("%w: %w", ErrRequestFailed, err))
		}
	}
	wg.Wait()

	o.logger.Debug("dispatch complete",
		"requests", len(requests),
		"failed", failed.Load(),
		"elapsed", time.Since(start))
	return results
}

func (o *Orchestrator) execute(ctx context.Context, req Request, call CallFunc) (out string, err error) {
	err = RetryWithBackoff(ctx, func() error {
		var callErr error
		out, callErr = o.attempt(ctx, req, call)
		return callErr
	}, o.attempts, o.retryDelay)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return out, nil
}

type attemptResult struct {
	out string
	err error
}

// attempt runs one call under the per-request deadline. A call that ignores
// its context is abandoned once the deadline passes.
func (o *Orchestrator) attempt(ctx context.Context, req Request, call CallFunc) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				o.logger.Debug("request panic stack", "index", req.Index, "stack", string(debug.Stack()))
				done <- attemptResult{err: fmt.Errorf("%w: %v", ErrRequestPanicked, p)}
			}
		}()
		out, err := call(ctx, req)
		done <- attemptResult{out: out, err: err}
	}()

	select {
	case r := <-done:
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
