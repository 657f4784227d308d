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


package serving

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultAPIKeyEnv is consulted when no API key is configured.
const DefaultAPIKeyEnv = "API_KEY"

const chatCompletionsSuffix = "/chat/completions"

// Config holds configuration for serving clients.
type Config struct {
	// URL is the base URL of an OpenAI-compatible API.
	// Example: "https://api.openai.com/v1", "http://localhost:11434/v1"
	// A full ".../chat/completions" endpoint is accepted and trimmed.
	URL string

	// APIKey is sent as a bearer token. Read from APIKeyEnv when empty.
	APIKey string

	// APIKeyEnv names the environment variable holding the API key.
	// Default: API_KEY
	APIKeyEnv string

	// Model is the model identifier. For local serving this is the model
	// name or path handed to the engine.
	// Example: "gpt-4o", "qwen2.5:7b"
	Model string

	// MaxWorkers bounds concurrent requests.
	// Default: 10
	MaxWorkers int

	// Timeout is the deadline of a single request. Zero disables it.
	// Default: 60s
	Timeout time.Duration

	// Temperature is the sampling temperature for remote requests.
	// Default: 0.0
	Temperature float64

	// MaxAttempts is the total number of tries per request, the first
	// one included. 1 disables retrying.
	// Default: 1
	MaxAttempts int

	// RetryDelay is the backoff before the second attempt.
	// Default: 1s
	RetryDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithURL sets the API base URL.
func WithURL(url string) ConfigOption {
	return func(c *Config) {
		c.URL = url
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAPIKeyEnv sets the environment variable the API key is read from.
func WithAPIKeyEnv(name string) ConfigOption {
	return func(c *Config) {
		c.APIKeyEnv = name
	}
}

// WithModel sets the model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithMaxWorkers sets the request concurrency.
func WithMaxWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.MaxWorkers = n
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
	}
}

// WithRetries sets the attempts per request and the initial backoff.
func WithRetries(attempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = attempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config pointing at a local OpenAI-compatible server.
func DefaultConfig() *Config {
	return &Config{
		URL:         "http://localhost:11434/v1",
		APIKeyEnv:   DefaultAPIKeyEnv,
		MaxWorkers:  10,
		Timeout:     60 * time.Second,
		MaxAttempts: 1,
		RetryDelay:  time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithURL("https://api.openai.com/v1/chat/completions"),
//	    WithModel("gpt-4o"),
//	    WithMaxWorkers(32),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize puts the configuration in canonical form. The URL loses any
// trailing slash and chat completions path, and an empty APIKey is filled
// from the environment.
func (c *Config) Normalize() {
	c.URL = strings.TrimSpace(c.URL)
	c.URL = strings.TrimSuffix(c.URL, "/")
	c.URL = strings.TrimSuffix(c.URL, chatCompletionsSuffix)

	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.URL == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: Model is required", ErrInvalidConfig)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("%w: MaxWorkers must be at least 1", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: Timeout cannot be negative", ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: MaxAttempts must be at least 1", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: Temperature must be between 0 and 2", ErrInvalidConfig)
	}
	return nil
}
