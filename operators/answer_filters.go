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


package operators

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

const (
	AnswerTokenLengthFilterName = "AnswerTokenLengthFilter"
	AnswerFormatterFilterName   = "AnswerFormatterFilter"
	AnswerGroundTruthFilterName = "AnswerGroundTruthFilter"
)

// TokenCounter returns the number of tokens text encodes to under model.
type TokenCounter func(model, text string) int

// AnswerTokenLengthFilterConfig configures AnswerTokenLengthFilter.
type AnswerTokenLengthFilterConfig struct {
	InputKey  string `yaml:"input_key"`
	MaxTokens int    `yaml:"max_answer_token_length"`
	Model     string `yaml:"model"`
}

func DefaultAnswerTokenLengthFilterConfig() AnswerTokenLengthFilterConfig {
	return AnswerTokenLengthFilterConfig{
		InputKey:  "generated_cot",
		MaxTokens: 8192,
		Model:     "gpt-3.5-turbo",
	}
}

// AnswerTokenLengthFilter keeps rows whose answer fits in MaxTokens tokens.
// Blank answers are dropped.
type AnswerTokenLengthFilter struct {
	base
	config AnswerTokenLengthFilterConfig
	count  TokenCounter
}

// NewAnswerTokenLengthFilter creates the filter. A nil counter uses the
// tiktoken encoding of config.Model, resolved on first count.
func NewAnswerTokenLengthFilter(config AnswerTokenLengthFilterConfig, counter TokenCounter, logger *slog.Logger) (*AnswerTokenLengthFilter, error) {
	if counter == nil {
		counter = newTokenCounters().Count
	}
	f := &AnswerTokenLengthFilter{base: newBase(AnswerTokenLengthFilterName, logger), config: config, count: counter}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *AnswerTokenLengthFilter) CheckConfig() error {
	return operator.NewChecker(f.name).
		Require("input_key", f.config.InputKey).
		Require("model", f.config.Model).
		Conflict(f.config.MaxTokens <= 0, "max_answer_token_length must be positive").
		Err()
}

func (f *AnswerTokenLengthFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.InputKey}, nil)
	if err != nil {
		return nil, err
	}
	kept := table.Filter(func(_ int, row core.Row) bool {
		answer := core.Text(row[f.config.InputKey])
		if answer == "" {
			return false
		}
		return f.count(f.config.Model, answer) <= f.config.MaxTokens
	})
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}

// AnswerFormatterFilterConfig configures AnswerFormatterFilter.
type AnswerFormatterFilterConfig struct {
	InputKey string `yaml:"input_key"`
}

func DefaultAnswerFormatterFilterConfig() AnswerFormatterFilterConfig {
	return AnswerFormatterFilterConfig{InputKey: "generated_cot"}
}

// AnswerFormatterFilter keeps rows whose answer contains an extractable
// final answer.
type AnswerFormatterFilter struct {
	base
	config AnswerFormatterFilterConfig
}

func NewAnswerFormatterFilter(config AnswerFormatterFilterConfig, logger *slog.Logger) (*AnswerFormatterFilter, error) {
	f := &AnswerFormatterFilter{base: newBase(AnswerFormatterFilterName, logger), config: config}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *AnswerFormatterFilter) CheckConfig() error {
	return operator.NewChecker(f.name).Require("input_key", f.config.InputKey).Err()
}

func (f *AnswerFormatterFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.InputKey}, nil)
	if err != nil {
		return nil, err
	}
	kept := table.Filter(func(_ int, row core.Row) bool {
		return ExtractAnswer(core.Text(row[f.config.InputKey])) != ""
	})
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}

// Compare methods for AnswerGroundTruthFilter.
const (
	CompareExact   = "exact"
	CompareNumeric = "numeric"
)

// AnswerGroundTruthFilterConfig configures AnswerGroundTruthFilter.
type AnswerGroundTruthFilterConfig struct {
	TestAnswerKey string `yaml:"test_answer_key"`
	GTAnswerKey   string `yaml:"gt_answer_key"`
	CompareMethod string `yaml:"compare_method"`
}

func DefaultAnswerGroundTruthFilterConfig() AnswerGroundTruthFilterConfig {
	return AnswerGroundTruthFilterConfig{
		TestAnswerKey: "generated_cot",
		GTAnswerKey:   "golden_answer",
		CompareMethod: CompareExact,
	}
}

// AnswerGroundTruthFilter keeps rows whose extracted answer matches the
// ground truth column.
type AnswerGroundTruthFilter struct {
	base
	config  AnswerGroundTruthFilterConfig
	compare func(answer, truth string) bool
}

func NewAnswerGroundTruthFilter(config AnswerGroundTruthFilterConfig, logger *slog.Logger) (*AnswerGroundTruthFilter, error) {
	f := &AnswerGroundTruthFilter{base: newBase(AnswerGroundTruthFilterName, logger), config: config}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	if config.CompareMethod == CompareNumeric {
		f.compare = numericEqual
	} else {
		f.compare = func(answer, truth string) bool { return answer == truth }
	}
	return f, nil
}

func (f *AnswerGroundTruthFilter) CheckConfig() error {
	return operator.NewChecker(f.name).
		Require("test_answer_key", f.config.TestAnswerKey).
		Require("gt_answer_key", f.config.GTAnswerKey).
		Conflict(f.config.CompareMethod != CompareExact && f.config.CompareMethod != CompareNumeric,
			"compare_method must be \"exact\" or \"numeric\", got \""+f.config.CompareMethod+"\"").
		Err()
}

func (f *AnswerGroundTruthFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.TestAnswerKey, f.config.GTAnswerKey}, nil)
	if err != nil {
		return nil, err
	}
	kept := table.Filter(func(_ int, row core.Row) bool {
		answer := ExtractAnswer(core.Text(row[f.config.TestAnswerKey]))
		return f.compare(answer, core.Text(row[f.config.GTAnswerKey]))
	})
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}

// numericEqual compares two answers as numbers when both parse, and as
// trimmed text otherwise.
func numericEqual(answer, truth string) bool {
	answer, truth = strings.TrimSpace(answer), strings.TrimSpace(truth)
	a, errA := strconv.ParseFloat(strings.ReplaceAll(answer, ",", ""), 64)
	b, errB := strconv.ParseFloat(strings.ReplaceAll(truth, ",", ""), 64)
	if errA != nil || errB != nil {
		return answer == truth
	}
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Abs(b))
}
