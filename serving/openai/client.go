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


package openai

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/poiesic/dataforge/orchestrator"
	"github.com/poiesic/dataforge/serving"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Client implements serving.Serving against a remote chat API.
type Client struct {
	llm         llms.Model
	orch        *orchestrator.Orchestrator
	temperature float64
	totalTokens atomic.Int64
	closed      atomic.Bool
	logger      *slog.Logger
}

var (
	_ serving.Serving       = (*Client)(nil)
	_ serving.UsageReporter = (*Client)(nil)
)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// newClient is an internal constructor that returns the concrete type.
func newClient(config *serving.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	logger := o.logger.With("component", "openai-serving")

	// Local OpenAI-compatible servers accept any token
	token := config.APIKey
	if token == "" {
		token = "none"
	}
	llmOpts := []openai.Option{
		openai.WithBaseURL(config.URL),
		openai.WithToken(token),
		openai.WithModel(config.Model),
	}
	if o.httpClient != nil {
		llmOpts = append(llmOpts, openai.WithHTTPClient(o.httpClient))
	}
	llm, err := openai.New(llmOpts...)
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

	return &Client{
		llm:         llm,
		orch:        orch,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

// New creates a remote serving client. The config is validated and
// normalized before use.
//
// Returns serving.Serving interface (not *Client) to enforce abstraction.
func New(config *serving.Config, opts ...Option) (serving.Serving, error) {
	return newClient(config, opts...)
}

// GenerateFromInput sends one chat request per input and returns the
// generations in input order. Failed requests yield nil entries.
func (c *Client) GenerateFromInput(ctx context.Context, inputs []string, systemPrompt string) ([]*string, error) {
	if c.closed.Load() {
		return nil, serving.ErrClosed
	}
	c.logger.Info("generating", "inputs", len(inputs))
	results := c.orch.Dispatch(ctx, orchestrator.BuildRequests(systemPrompt, inputs), c.call)

	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
		}
	}
	if failed > 0 {
		c.logger.Warn("some requests failed", "failed", failed, "total", len(inputs))
	}
	return results, nil
}

func (c *Client) call(ctx context.Context, req orchestrator.Request) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}
	resp, err := c.llm.GenerateContent(ctx, content, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) < 1 {
		return "", serving.ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if tokens, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		c.totalTokens.Add(int64(tokens))
	}
	return serving.FormatReasoning(choice.Content, choice.ReasoningContent), nil
}

// TotalTokens returns the tokens reported by all successful requests.
func (c *Client) TotalTokens() int64 {
	return c.totalTokens.Load()
}

// Close releases the worker pool.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Debug("closing serving client", "total_tokens", c.totalTokens.Load())
	c.orch.Release()
	return nil
}
