package serving

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:11434/v1", cfg.URL)
	assert.Equal(t, 10, cfg.MaxWorkers)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, DefaultAPIKeyEnv, cfg.APIKeyEnv)
	assert.Zero(t, cfg.Temperature)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithURL("https://api.example.com/v1"),
		WithAPIKey("k"),
		WithModel("gpt-4o"),
		WithMaxWorkers(4),
		WithTimeout(5*time.Second),
		WithTemperature(0.3),
		WithRetries(3, 10*time.Millisecond),
	)

	assert.Equal(t, "https://api.example.com/v1", cfg.URL)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 0.3, cfg.Temperature)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryDelay)
}

func TestConfig_Normalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://api.example.com/v1", "https://api.example.com/v1"},
		{"https://api.example.com/v1/", "https://api.example.com/v1"},
		{"https://api.example.com/v1/chat/completions", "https://api.example.com/v1"},
		{" http://localhost:8000/v1/chat/completions/ ", "http://localhost:8000/v1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg := NewConfig(WithURL(tt.in), WithAPIKey("x"))
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.URL)
		})
	}
}

func TestConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv("API_KEY", "from-default-env")
	t.Setenv("CUSTOM_KEY", "from-custom-env")

	cfg := NewConfig()
	cfg.Normalize()
	assert.Equal(t, "from-default-env", cfg.APIKey)

	cfg = NewConfig(WithAPIKeyEnv("CUSTOM_KEY"))
	cfg.Normalize()
	assert.Equal(t, "from-custom-env", cfg.APIKey)

	cfg = NewConfig(WithAPIKey("explicit"))
	cfg.Normalize()
	assert.Equal(t, "explicit", cfg.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return NewConfig(WithModel("m")) }
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.URL = "" }},
		{"missing model", func(c *Config) { c.Model = "" }},
		{"zero workers", func(c *Config) { c.MaxWorkers = 0 }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
