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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/storage"
)

const PseudoAnswerGeneratorName = "PseudoAnswerGenerator"

var errNoMajority = errors.New("no attempt produced an answer")

// PseudoAnswerGeneratorConfig configures PseudoAnswerGenerator.
type PseudoAnswerGeneratorConfig struct {
	InputKey                  string `yaml:"input_key"`
	AnswerKey                 string `yaml:"output_key_answer"`
	AnswerValueKey            string `yaml:"output_key_answer_value"`
	SolutionsKey              string `yaml:"output_key_solutions"`
	CorrectSolutionExampleKey string `yaml:"output_key_correct_solution_example"`
	MaxTimes                  int    `yaml:"max_times"`
	SystemPrompt              string `yaml:"system_prompt"`
}

func DefaultPseudoAnswerGeneratorConfig() PseudoAnswerGeneratorConfig {
	return PseudoAnswerGeneratorConfig{
		InputKey:                  "instruction",
		AnswerKey:                 "pseudo_answers",
		AnswerValueKey:            "pseudo_answer_value",
		SolutionsKey:              "pseudo_solutions",
		CorrectSolutionExampleKey: "pseudo_correct_solution_example",
		MaxTimes:                  3,
		SystemPrompt:              defaultAnswerSystemPrompt,
	}
}

// PseudoAnswerGenerator solves every question MaxTimes times and takes the
// most frequent extracted answer as its pseudo ground truth. Per row it
// writes:
//
//   - AnswerKey: the extracted answer of every attempt, nil where the
//     generation failed
//   - AnswerValueKey: the winning answer
//   - SolutionsKey: the solutions whose answer is the winner
//   - CorrectSolutionExampleKey: the first of those solutions
//
// Blank answers never vote. Ties go to the answer seen first. Rows with
// no winner are dropped, as are blank questions.
type PseudoAnswerGenerator struct {
	base
	config  PseudoAnswerGeneratorConfig
	serving serving.Serving
}

func NewPseudoAnswerGenerator(config PseudoAnswerGeneratorConfig, srv serving.Serving, logger *slog.Logger) (*PseudoAnswerGenerator, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, PseudoAnswerGeneratorName)
	}
	g := &PseudoAnswerGenerator{base: newBase(PseudoAnswerGeneratorName, logger), config: config, serving: srv}
	if err := g.CheckConfig(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *PseudoAnswerGenerator) outputs() []string {
	return []string{g.config.AnswerKey, g.config.SolutionsKey, g.config.CorrectSolutionExampleKey, g.config.AnswerValueKey}
}

func (g *PseudoAnswerGenerator) CheckConfig() error {
	keys := append([]string{g.config.InputKey}, g.outputs()...)
	seen := make(map[string]bool, len(keys))
	duplicate := false
	for _, k := range keys {
		if k != "" && seen[k] {
			duplicate = true
		}
		seen[k] = true
	}
	return operator.NewChecker(g.name).
		Require("input_key", g.config.InputKey).
		Require("output_key_answer", g.config.AnswerKey).
		Require("output_key_answer_value", g.config.AnswerValueKey).
		Require("output_key_solutions", g.config.SolutionsKey).
		Require("output_key_correct_solution_example", g.config.CorrectSolutionExampleKey).
		Conflict(g.config.MaxTimes < 1, fmt.Sprintf("max_times must be at least 1, got %d", g.config.MaxTimes)).
		Conflict(duplicate, "input and output keys must all differ").
		Err()
}

func (g *PseudoAnswerGenerator) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := g.load(ctx, s, []string{g.config.InputKey}, g.outputs())
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

	// attempt t of question i sits at t*len(questions)+i
	prompts := make([]string, 0, len(questions)*g.config.MaxTimes)
	for range g.config.MaxTimes {
		prompts = append(prompts, questions...)
	}
	g.logger.Info("generating candidate solutions", "questions", len(questions), "attempts", g.config.MaxTimes)
	results, err := g.serving.GenerateFromInput(ctx, prompts, g.config.SystemPrompt)
	if err != nil {
		return nil, err
	}
	logFailures(g.logger, results)

	n := len(questions)
	answers := make([]any, n)
	values := make([]any, n)
	solutions := make([]any, n)
	examples := make([]any, n)
	for i := range n {
		attempts := make([]*string, g.config.MaxTimes)
		for t := range attempts {
			attempts[t] = results[t*n+i]
		}
		v := vote(attempts)
		answers[i] = v.answers
		if v.winner == "" {
			g.rowFailed(i, errNoMajority)
			continue
		}
		values[i] = v.winner
		solutions[i] = v.solutions
		examples[i] = v.solutions[0]
	}
	for _, c := range []struct {
		key    string
		values []any
	}{
		{g.config.AnswerKey, answers},
		{g.config.SolutionsKey, solutions},
		{g.config.CorrectSolutionExampleKey, examples},
		{g.config.AnswerValueKey, values},
	} {
		if err := table.SetColumn(c.key, c.values); err != nil {
			return nil, err
		}
	}
	table = table.Filter(func(_ int, row core.Row) bool {
		return !core.IsBlank(row[g.config.AnswerValueKey])
	})
	if err := g.save(ctx, s, table, before); err != nil {
		return nil, err
	}
	return g.outputs(), nil
}

type ballot struct {
	answers   []any
	winner    string
	solutions []any
}

// vote extracts the answer of every attempt and picks the most frequent.
func vote(attempts []*string) ballot {
	var b ballot
	counts := make(map[string]int)
	var order []string
	extracted := make([]string, len(attempts))
	for i, r := range attempts {
		if r == nil {
			b.answers = append(b.answers, nil)
			continue
		}
		a := ExtractAnswer(*r)
		extracted[i] = a
		b.answers = append(b.answers, a)
		if a == "" {
			continue
		}
		if counts[a] == 0 {
			order = append(order, a)
		}
		counts[a]++
	}
	best := 0
	for _, a := range order {
		if counts[a] > best {
			b.winner, best = a, counts[a]
		}
	}
	if b.winner == "" {
		return b
	}
	for i, r := range attempts {
		if r != nil && extracted[i] == b.winner {
			b.solutions = append(b.solutions, *r)
		}
	}
	return b
}
