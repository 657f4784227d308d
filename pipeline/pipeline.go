package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

// Pipeline is an ordered list of named operators over one storage.
type Pipeline struct {
	storage  storage.Storage
	steps    []step
	names    map[string]struct{}
	resume   bool
	progress io.Writer
	logger   *slog.Logger
}

type step struct {
	name string
	op   operator.Operator
}

// StepResult describes one step of a run.
type StepResult struct {
	Name     string
	Columns  []string
	Skipped  bool
	Duration time.Duration
}

// Result describes a completed run.
type Result struct {
	RunID string
	// Resumed is the number of leading steps skipped because their output
	// was already recorded.
	Resumed int
	Steps   []StepResult
}

// Columns returns the columns produced by the named step.
func (r *Result) Columns(name string) []string {
	for _, s := range r.Steps {
		if s.Name == name {
			return s.Columns
		}
	}
	return nil
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithResume skips steps whose output the storage already recorded. It
// has no effect on storages that do not implement storage.Resumable.
func WithResume(resume bool) Option {
	return func(p *Pipeline) error {
		p.resume = resume
		return nil
	}
}

// WithProgress reports step progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates an empty pipeline over s.
func New(s storage.Storage, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, ErrStorageRequired
	}
	p := &Pipeline{
		storage: s,
		names:   make(map[string]struct{}),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Add appends a step. Step names must be unique within a pipeline.
func (p *Pipeline) Add(name string, op operator.Operator) error {
	if name == "" {
		return fmt.Errorf("%w: empty step name", operator.ErrConfig)
	}
	if op == nil {
		return fmt.Errorf("%w: step %q has no operator", operator.ErrConfig, name)
	}
	if _, exists := p.names[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateStep, name)
	}
	p.names[name] = struct{}{}
	p.steps = append(p.steps, step{name: name, op: op})
	return nil
}

// Steps returns the step names in order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.name
	}
	return names
}

// Check validates every operator's configuration and reports all failures.
func (p *Pipeline) Check() error {
	var errs []error
	for _, s := range p.steps {
		if err := s.op.CheckConfig(); err != nil {
			errs = append(errs, fmt.Errorf("step %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// Run executes the steps in order.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if len(p.steps) == 0 {
		return nil, ErrNoSteps
	}
	if err := p.Check(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := p.logger.With("run", result.RunID)

	start, err := p.startingStep(ctx, logger)
	if err != nil {
		return nil, err
	}
	result.Resumed = start

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, len(p.steps))
		tracker.Start()
		tracker.Skip(start)
	}

	for i, s := range p.steps {
		if i < start {
			result.Steps = append(result.Steps, StepResult{Name: s.name, Skipped: true})
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		began := time.Now()
		logger.Info("step started", "step", s.name, "index", i)
		cols, err := s.op.Run(ctx, p.storage.Step())
		if err != nil {
			logger.Error("step failed", "step", s.name, "index", i, "err", err)
			return result, fmt.Errorf("step %s: %w", s.name, err)
		}
		elapsed := time.Since(began)
		logger.Info("step finished", "step", s.name, "index", i, "columns", cols, "duration", elapsed)
		result.Steps = append(result.Steps, StepResult{Name: s.name, Columns: cols, Duration: elapsed})
		if tracker != nil {
			tracker.Advance(s.name)
		}
	}
	if tracker != nil {
		tracker.Finish()
	}
	return result, nil
}

// startingStep positions the storage cursor and returns the index of the
// first step to run.
func (p *Pipeline) startingStep(ctx context.Context, logger *slog.Logger) (int, error) {
	p.storage.Reset()
	r, ok := p.storage.(storage.Resumable)
	if !p.resume {
		// a fresh run invalidates what earlier runs recorded
		if ok {
			if err := r.Forget(ctx); err != nil && !errors.Is(err, storage.ErrNoManifest) {
				return 0, err
			}
		}
		return 0, nil
	}
	if !ok {
		logger.Warn("storage cannot resume, running from the start")
		return 0, nil
	}
	completed, err := r.Resume(ctx)
	if errors.Is(err, storage.ErrNoManifest) {
		logger.Warn("storage has no manifest, running from the start")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if completed > len(p.steps) {
		return 0, fmt.Errorf("%w: manifest records %d stages for %d steps", storage.ErrStageCorrupt, completed, len(p.steps))
	}
	if completed > 0 {
		logger.Info("resuming", "completed_steps", completed)
	}
	return completed, nil
}
