// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package dataforge

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/operators"
	"github.com/poiesic/dataforge/pipeline"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/serving/local"
	"github.com/poiesic/dataforge/serving/openai"
	"github.com/poiesic/dataforge/storage"
	"github.com/poiesic/dataforge/storage/badger"
)

// Workspace wires a pipeline file to its storage, stage manifest, serving
// client and operators.
type Workspace struct {
	config   *pipeline.Config
	backend  *badger.Backend
	manifest *badger.ManifestRepository
	storage  *storage.FileStorage
	serving  serving.Serving
	ownsSrv  bool
	registry *operator.Registry
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	serving        serving.Serving
	registry       *operator.Registry
	storageOptions []storage.Option
	progress       io.Writer
	logger         *slog.Logger
}

// WithServing uses srv instead of building a client from the config. The
// workspace does not close it.
func WithServing(srv serving.Serving) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.serving = srv
	}
}

// WithRegistry resolves operators from reg instead of the stock registry.
func WithRegistry(reg *operator.Registry) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.registry = reg
	}
}

// WithStorageOptions passes extra options to the file storage, such as
// additional remote resolvers.
func WithStorageOptions(opts ...storage.Option) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.storageOptions = append(o.storageOptions, opts...)
	}
}

// WithProgress reports step progress to w.
func WithProgress(w io.Writer) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.progress = w
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.logger = logger
	}
}

// Open loads the pipeline file at path and builds its workspace.
func Open(ctx context.Context, path string, opts ...WorkspaceOption) (*Workspace, error) {
	config, err := pipeline.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewWorkspace(ctx, config, opts...)
}

// NewWorkspace builds every component named by config. On error anything
// already opened is closed.
func NewWorkspace(ctx context.Context, config *pipeline.Config, opts ...WorkspaceOption) (*Workspace, error) {
	options := &workspaceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	w := &Workspace{
		config: config,
		logger: options.logger.With("component", "workspace", "pipeline", config.Name),
	}
	if err := w.build(ctx, options); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			w.logger.Error("error closing partially built workspace", "err", closeErr)
		}
		return nil, err
	}
	return w, nil
}

func (w *Workspace) build(ctx context.Context, options *workspaceOptions) error {
	storageOpts := []storage.Option{
		storage.WithCacheDir(w.config.Cache.Dir),
		storage.WithFilePrefix(w.config.Cache.Prefix),
		storage.WithCacheType(w.config.Cache.Type),
		storage.WithLogger(options.logger),
	}
	if w.config.Manifest.Enabled() {
		backend, err := badger.OpenBackend(w.config.Manifest.Dir, w.config.Manifest.InMemory)
		if err != nil {
			return err
		}
		w.backend = backend
		w.manifest = badger.NewManifestRepository(backend)
		storageOpts = append(storageOpts, storage.WithManifest(w.manifest, w.config.Name))
	}
	fs, err := storage.NewFileStorage(w.config.Input, append(storageOpts, options.storageOptions...)...)
	if err != nil {
		return err
	}
	w.storage = fs

	w.serving = options.serving
	if w.serving == nil {
		srv, err := newServing(ctx, w.config.Serving, options.logger)
		if err != nil {
			return err
		}
		w.serving = srv
		w.ownsSrv = srv != nil
	}

	w.registry = options.registry
	if w.registry == nil {
		if w.registry, err = operators.NewRegistry(); err != nil {
			return err
		}
	}

	w.pipeline, err = pipeline.New(fs,
		pipeline.WithResume(w.config.Resume),
		pipeline.WithProgress(options.progress),
		pipeline.WithLogger(options.logger),
	)
	if err != nil {
		return err
	}
	deps := operator.Deps{Serving: w.serving, Logger: options.logger}
	for _, step := range w.config.Steps {
		op, err := w.registry.Build(step.Operator, step.Params, deps)
		if err != nil {
			return err
		}
		if err := w.pipeline.Add(step.Name, op); err != nil {
			return err
		}
	}
	return nil
}

// newServing builds the client named by config, or nil when none is configured.
func newServing(ctx context.Context, config pipeline.ServingConfig, logger *slog.Logger) (serving.Serving, error) {
	opts := []serving.ConfigOption{serving.WithModel(config.Model)}
	if config.URL != "" {
		opts = append(opts, serving.WithURL(config.URL))
	}
	if config.APIKeyEnv != "" {
		opts = append(opts, serving.WithAPIKeyEnv(config.APIKeyEnv))
	}
	if config.MaxWorkers > 0 {
		opts = append(opts, serving.WithMaxWorkers(config.MaxWorkers))
	}
	if config.Timeout > 0 {
		opts = append(opts, serving.WithTimeout(config.Timeout))
	}
	if config.Temperature != nil {
		opts = append(opts, serving.WithTemperature(*config.Temperature))
	}
	if config.MaxAttempts > 0 {
		delay := config.RetryDelay
		if delay <= 0 {
			delay = serving.DefaultConfig().RetryDelay
		}
		opts = append(opts, serving.WithRetries(config.MaxAttempts, delay))
	}
	sc := serving.NewConfig(opts...)

	switch config.Kind {
	case pipeline.ServingRemote:
		return openai.New(sc, openai.WithLogger(logger))
	case pipeline.ServingLocal:
		localOpts := []local.Option{local.WithLogger(logger)}
		if config.URL != "" {
			localOpts = append(localOpts, local.WithServerURL(config.URL))
		}
		if config.ModelDir != "" {
			localOpts = append(localOpts, local.WithFetcher(local.NewHubFetcher(config.ModelDir)))
		}
		if config.Temperature != nil {
			sampling := local.DefaultSamplingParams()
			sampling.Temperature = *config.Temperature
			localOpts = append(localOpts, local.WithSampling(sampling))
		}
		return local.New(ctx, sc, localOpts...)
	default:
		return nil, nil
	}
}

// Run executes the pipeline.
func (w *Workspace) Run(ctx context.Context) (*pipeline.Result, error) {
	result, err := w.pipeline.Run(ctx)
	if reporter, ok := w.serving.(serving.UsageReporter); ok {
		w.logger.Info("serving usage", "total_tokens", reporter.TotalTokens())
	}
	return result, err
}

// Stages returns the stages recorded for this pipeline, or nil without a manifest.
func (w *Workspace) Stages(ctx context.Context) ([]*storage.StageRecord, error) {
	if w.manifest == nil {
		return nil, nil
	}
	return w.manifest.Stages(ctx, w.config.Name)
}

// ClearStages forgets every recorded stage so the next run starts over.
func (w *Workspace) ClearStages(ctx context.Context) error {
	if w.manifest == nil {
		return nil
	}
	return w.manifest.Clear(ctx, w.config.Name)
}

func (w *Workspace) Config() *pipeline.Config {
	return w.config
}

func (w *Workspace) Storage() *storage.FileStorage {
	return w.storage
}

func (w *Workspace) Registry() *operator.Registry {
	return w.registry
}

func (w *Workspace) Pipeline() *pipeline.Pipeline {
	return w.pipeline
}

// Close releases the serving client, when the workspace built it, and the
// manifest backend.
func (w *Workspace) Close() error {
	var errs []error
	if w.ownsSrv && w.serving != nil {
		if err := w.serving.Close(); err != nil {
			w.logger.Error("error closing serving client", "err", err)
			errs = append(errs, err)
		}
	}
	if w.backend != nil && !w.backend.IsClosed() {
		if err := w.backend.Close(); err != nil {
			w.logger.Error("error closing manifest backend", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
