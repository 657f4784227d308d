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


package local

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/poiesic/dataforge/orchestrator"
	"github.com/poiesic/dataforge/serving"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultServerURL is where the default engine expects an ollama server.
const DefaultServerURL = "http://localhost:11434"

// SamplingParams are the generation settings applied to every prompt.
type SamplingParams struct {
	Temperature       float64
	TopP              float64
	MaxTokens         int
	TopK              int
	RepetitionPenalty float64
	Seed              int
}

// DefaultSamplingParams returns the sampling settings used when none are given.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Temperature:       0.7,
		TopP:              0.9,
		MaxTokens:         1024,
		TopK:              40,
		RepetitionPenalty: 1.0,
		Seed:              42,
	}
}

func (p SamplingParams) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(p.Temperature),
		llms.WithTopP(p.TopP),
		llms.WithMaxTokens(p.MaxTokens),
		llms.WithTopK(p.TopK),
		llms.WithRepetitionPenalty(p.RepetitionPenalty),
		llms.WithSeed(p.Seed),
	}
}

// Fetcher makes a model available locally and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, modelID string) (string, error)
}

// EngineFactory builds the engine for a resolved model.
type EngineFactory func(model, serverURL string) (llms.Model, error)

// OllamaEngine is the default EngineFactory.
func OllamaEngine(model, serverURL string) (llms.Model, error) {
	return ollama.New(ollama.WithModel(model), ollama.WithServerURL(serverURL))
}

// Client implements serving.Serving with an in-process or sidecar engine.
type Client struct {
	engine   llms.Model
	model    string
	sampling SamplingParams
	orch     *orchestrator.Orchestrator
	closed   atomic.Bool
	logger   *slog.Logger
}

var _ serving.Serving = (*Client)(nil)

type options struct {
	fetcher   Fetcher
	factory   EngineFactory
	serverURL string
	sampling  SamplingParams
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithFetcher resolves the model through f before building the engine.
func WithFetcher(f Fetcher) Option {
	return func(o *options) {
		o.fetcher = f
	}
}

// WithEngineFactory replaces the default ollama engine.
func WithEngineFactory(factory EngineFactory) Option {
	return func(o *options) {
		o.factory = factory
	}
}

// WithServerURL sets the engine server address. Default is DefaultServerURL.
func WithServerURL(url string) Option {
	return func(o *options) {
		o.serverURL = url
	}
}

// WithSampling overrides the default sampling parameters.
func WithSampling(p SamplingParams) Option {
	return func(o *options) {
		o.sampling = p
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds a local serving client. config.Model names the model; it must
// be set. MaxWorkers, Timeout, MaxAttempts and RetryDelay shape dispatch the
// same way they do for remote serving. URL, APIKey and Temperature are not
// read; use WithServerURL and WithSampling instead.
//
// Returns serving.Serving interface (not *Client) to enforce abstraction.
func New(ctx context.Context, config *serving.Config, opts ...Option) (serving.Serving, error) {
	return newClient(ctx, config, opts...)
}

func newClient(ctx context.Context, config *serving.Config, opts ...Option) (*Client, error) {
	if config == nil || config.Model == "" {
		return nil, ErrModelRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &options{
		factory:   OllamaEngine,
		serverURL: DefaultServerURL,
		sampling:  DefaultSamplingParams(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "local-serving")

	model := config.Model
	if o.fetcher != nil {
		path, err := o.fetcher.Fetch(ctx, config.Model)
		if err != nil {
			logger.Warn("model fetch failed, using identifier as local path", "model", config.Model, "error", err)
		} else {
			model = path
		}
	}

	engine, err := o.factory(model, o.serverURL)
	if err != nil {
		return nil, err
	}

	orch, err := orchestrator.New(
		orchestrator.WithPoolSize(config.MaxWorkers),
		orchestrator.WithTimeout(config.Timeout),
		orchestrator.WithRetries(config.MaxAttempts, config.RetryDelay),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("local engine ready", "model", model)
	return &Client{
		engine:   engine,
		model:    model,
		sampling: o.sampling,
		orch:     orch,
		logger:   logger,
	}, nil
}

// Model returns the resolved model path or name.
func (c *Client) Model() string {
	return c.model
}

// GenerateFromInput prompts the engine with system + "\n" + input for every
// input. Failed generations yield nil entries.
func (c *Client) GenerateFromInput(ctx context.Context, inputs []string, systemPrompt string) ([]*string, error) {
	if c.closed.Load() {
		return nil, serving.ErrClosed
	}
	prompts := make([]string, len(inputs))
	for i, input := range inputs {
		prompts[i] = systemPrompt + "\n" + input
	}
	callOpts := c.sampling.callOptions()
	return c.orch.Dispatch(ctx, orchestrator.BuildRequests("", prompts),
		func(ctx context.Context, req orchestrator.Request) (string, error) {
			return llms.GenerateFromSinglePrompt(ctx, c.engine, req.Prompt, callOpts...)
		}), nil
}

// Close releases the worker pool.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.orch.Release()
	return nil
}
