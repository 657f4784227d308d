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
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/storage"
)

const (
	AnswerGeneratorName   = "AnswerGenerator"
	QuestionGeneratorName = "QuestionGenerator"

	// SynthOrInputKey tags QuestionGenerator output rows as "synth" or "input".
	SynthOrInputKey = "Synth_or_Input"

	// MaxQuestionPrompts is the number of available transformation modes.
	MaxQuestionPrompts = 5
)

// AnswerGeneratorConfig configures AnswerGenerator.
type AnswerGeneratorConfig struct {
	InputKey     string `yaml:"input_key"`
	OutputKey    string `yaml:"output_key"`
	SystemPrompt string `yaml:"system_prompt"`
}

func DefaultAnswerGeneratorConfig() AnswerGeneratorConfig {
	return AnswerGeneratorConfig{
		InputKey:     "instruction",
		OutputKey:    "generated_cot",
		SystemPrompt: defaultAnswerSystemPrompt,
	}
}

// AnswerGenerator asks the model to answer every row's question. Rows whose
// request failed carry nil in the output column.
type AnswerGenerator struct {
	base
	config  AnswerGeneratorConfig
	serving serving.Serving
}

func NewAnswerGenerator(config AnswerGeneratorConfig, srv serving.Serving, logger *slog.Logger) (*AnswerGenerator, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, AnswerGeneratorName)
	}
	g := &AnswerGenerator{base: newBase(AnswerGeneratorName, logger), config: config, serving: srv}
	if err := g.CheckConfig(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *AnswerGenerator) CheckConfig() error {
	return operator.NewChecker(g.name).
		Require("input_key", g.config.InputKey).
		Require("output_key", g.config.OutputKey).
		Conflict(g.config.InputKey != "" && g.config.InputKey == g.config.OutputKey, "input_key and output_key must differ").
		Err()
}

func (g *AnswerGenerator) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := g.load(ctx, s, []string{g.config.InputKey}, []string{g.config.OutputKey})
	if err != nil {
		return nil, err
	}
	questions, err := table.Strings(g.config.InputKey)
	if err != nil {
		return nil, err
	}
	results, err := g.serving.GenerateFromInput(ctx, questions, g.config.SystemPrompt)
	if err != nil {
		return nil, err
	}
	if err := table.SetColumn(g.config.OutputKey, serving.Values(results)); err != nil {
		return nil, err
	}
	logFailures(g.logger, results)
	if err := g.save(ctx, s, table, table.Len()); err != nil {
		return nil, err
	}
	return []string{g.config.OutputKey}, nil
}

// QuestionGeneratorConfig configures QuestionGenerator.
type QuestionGeneratorConfig struct {
	InputKey   string `yaml:"input_key"`
	NumPrompts int    `yaml:"num_prompts"`
	Seed       uint64 `yaml:"seed"`
}

func DefaultQuestionGeneratorConfig() QuestionGeneratorConfig {
	return QuestionGeneratorConfig{
		InputKey:   "question",
		NumPrompts: 1,
		Seed:       42,
	}
}

// QuestionGenerator synthesizes NumPrompts new questions from each input
// question, each under a different random combination of transformations.
// The output holds the non-blank originals tagged "input" followed by the
// non-empty generations tagged "synth". Generated rows carry only the
// question and the tag.
type QuestionGenerator struct {
	base
	config  QuestionGeneratorConfig
	serving serving.Serving
}

func NewQuestionGenerator(config QuestionGeneratorConfig, srv serving.Serving, logger *slog.Logger) (*QuestionGenerator, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, QuestionGeneratorName)
	}
	g := &QuestionGenerator{base: newBase(QuestionGeneratorName, logger), config: config, serving: srv}
	if err := g.CheckConfig(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *QuestionGenerator) CheckConfig() error {
	return operator.NewChecker(g.name).
		Require("input_key", g.config.InputKey).
		Conflict(g.config.NumPrompts < 1 || g.config.NumPrompts > MaxQuestionPrompts,
			fmt.Sprintf("num_prompts must be within [1, %d], got %d", MaxQuestionPrompts, g.config.NumPrompts)).
		Err()
}

func (g *QuestionGenerator) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := g.load(ctx, s, []string{g.config.InputKey}, []string{SynthOrInputKey})
	if err != nil {
		return nil, err
	}
	before := table.Len()
	table = table.Filter(func(_ int, row core.Row) bool {
		return strings.TrimSpace(core.Text(row[g.config.InputKey])) != ""
	})
	questions, err := table.Strings(g.config.InputKey)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(g.config.Seed, uint64(len(questions))))
	prompts := make([]string, 0, len(questions)*g.config.NumPrompts)
	for _, q := range questions {
		for _, m := range rng.Perm(len(diversityModes))[:g.config.NumPrompts] {
			prompts = append(prompts, questionSynthesisPrompt(diversityModes[m], q))
		}
	}
	results, err := g.serving.GenerateFromInput(ctx, prompts, "")
	if err != nil {
		return nil, err
	}
	logFailures(g.logger, results)

	tags := make([]any, table.Len())
	for i := range tags {
		tags[i] = "input"
	}
	if err := table.SetColumn(SynthOrInputKey, tags); err != nil {
		return nil, err
	}
	synthesized := 0
	for _, r := range results {
		text := strings.TrimSpace(serving.String(r))
		if text == "" {
			continue
		}
		table.Append(core.Row{g.config.InputKey: text, SynthOrInputKey: "synth"})
		synthesized++
	}
	g.logger.Info("questions synthesized", "requested", len(prompts), "kept", synthesized)

	if err := g.save(ctx, s, table, before); err != nil {
		return nil, err
	}
	return []string{g.config.InputKey, SynthOrInputKey}, nil
}

// logFailures reports how many generations came back empty.
func logFailures(logger *slog.Logger, results []*string) {
	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
		}
	}
	if failed > 0 {
		logger.Warn("generations failed", "failed", failed, "total", len(results))
	}
}
