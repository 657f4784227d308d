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


package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
	"gopkg.in/yaml.v3"
)

// Serving kinds.
const (
	ServingNone   = ""
	ServingRemote = "remote"
	ServingLocal  = "local"
)

// Config is a pipeline file.
//
// Example:
//
//	name: math
//	input: hf:openai/gsm8k/main/train
//	cache:
//	  dir: ./cache
//	  type: jsonl
//	manifest:
//	  dir: ./cache/manifest
//	serving:
//	  kind: remote
//	  url: https://api.example.com/v1
//	  model: qwen2.5-7b-instruct
//	steps:
//	  - name: answers
//	    operator: AnswerGenerator
//	    params:
//	      input_key: question
type Config struct {
	Name     string         `yaml:"name"`
	Input    string         `yaml:"input"`
	Resume   bool           `yaml:"resume"`
	Cache    CacheConfig    `yaml:"cache"`
	Manifest ManifestConfig `yaml:"manifest"`
	Serving  ServingConfig  `yaml:"serving"`
	Steps    []StepConfig   `yaml:"steps"`
}

type CacheConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
	Type   string `yaml:"type"`
}

// ManifestConfig locates the stage manifest. Without a directory no
// manifest is kept and runs cannot resume.
type ManifestConfig struct {
	Dir      string `yaml:"dir"`
	InMemory bool   `yaml:"in_memory"`
}

// Enabled reports whether a manifest is configured.
func (m ManifestConfig) Enabled() bool {
	return m.Dir != "" || m.InMemory
}

type ServingConfig struct {
	Kind        string        `yaml:"kind"`
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxWorkers  int           `yaml:"max_workers"`
	Timeout     time.Duration `yaml:"timeout"`
	Temperature *float64      `yaml:"temperature"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	ModelDir    string        `yaml:"model_dir"`
}

type StepConfig struct {
	Name     string          `yaml:"name"`
	Operator string          `yaml:"operator"`
	Params   operator.Params `yaml:"params"`
}

// LoadConfig reads, normalizes and validates a pipeline file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig is LoadConfig for an open reader. Unknown keys are rejected.
func ParseConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Normalize fills defaults and names unnamed steps after their operator.
func (c *Config) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Input = strings.TrimSpace(c.Input)
	if c.Name == "" {
		c.Name = "pipeline"
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = storage.DefaultCacheDir
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = storage.DefaultFilePrefix
	}
	if c.Cache.Type == "" {
		c.Cache.Type = storage.DefaultCacheType
	}
	c.Serving.Kind = strings.ToLower(strings.TrimSpace(c.Serving.Kind))

	used := make(map[string]int)
	for i := range c.Steps {
		s := &c.Steps[i]
		s.Operator = strings.TrimSpace(s.Operator)
		if s.Name != "" {
			continue
		}
		used[s.Operator]++
		s.Name = s.Operator
		if used[s.Operator] > 1 {
			s.Name = fmt.Sprintf("%s_%d", s.Operator, used[s.Operator])
		}
	}
}

// Validate reports every problem in the file at once.
func (c *Config) Validate() error {
	var problems []string
	if c.Input == "" {
		problems = append(problems, "input is required")
	}
	if !slices.Contains(storage.Formats(), c.Cache.Type) {
		problems = append(problems, fmt.Sprintf("cache.type %q is not one of %v", c.Cache.Type, storage.Formats()))
	}
	switch c.Serving.Kind {
	case ServingNone, ServingRemote:
	case ServingLocal:
		if c.Serving.Model == "" {
			problems = append(problems, "serving.model is required for local serving")
		}
	default:
		problems = append(problems, fmt.Sprintf("serving.kind %q must be remote or local", c.Serving.Kind))
	}
	if len(c.Steps) == 0 {
		problems = append(problems, "at least one step is required")
	}
	seen := make(map[string]bool)
	for i, s := range c.Steps {
		if s.Operator == "" {
			problems = append(problems, fmt.Sprintf("steps[%d]: operator is required", i))
		}
		if seen[s.Name] {
			problems = append(problems, fmt.Sprintf("steps[%d]: duplicate step name %q", i, s.Name))
		}
		seen[s.Name] = true
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}
