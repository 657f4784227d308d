package operators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/storage"
)

const (
	QuestionCategoryClassifierName   = "QuestionCategoryClassifier"
	QuestionDifficultyClassifierName = "QuestionDifficultyClassifier"
	MathProblemFilterName            = "MathProblemFilter"

	PrimaryCategoryKey   = "primary_category"
	SecondaryCategoryKey = "secondary_category"

	// UnratedDifficulty marks a row whose rating could not be read.
	UnratedDifficulty = -1.0
)

var (
	errNoReply       = errors.New("no reply")
	errNoJudgement   = errors.New("reply has no judgement_test verdict")
	ratingPattern    = regexp.MustCompile(`Rating:\s*((\d+\.\d+)|\d+)`)
	judgementPattern = regexp.MustCompile(`"judgement_test"\s*:\s*(true|false)`)
)

// QuestionCategoryClassifierConfig configures QuestionCategoryClassifier.
type QuestionCategoryClassifierConfig struct {
	InputKey  string `yaml:"input_key"`
	OutputKey string `yaml:"output_key"`
}

func DefaultQuestionCategoryClassifierConfig() QuestionCategoryClassifierConfig {
	return QuestionCategoryClassifierConfig{
		InputKey:  "instruction",
		OutputKey: "classification_result",
	}
}

// QuestionCategoryClassifier asks the model for a primary and secondary
// category per question. The raw reply lands in OutputKey and the parsed
// categories in primary_category and secondary_category, which stay nil
// when the reply cannot be parsed.
type QuestionCategoryClassifier struct {
	base
	config  QuestionCategoryClassifierConfig
	serving serving.Serving
}

func NewQuestionCategoryClassifier(config QuestionCategoryClassifierConfig, srv serving.Serving, logger *slog.Logger) (*QuestionCategoryClassifier, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, QuestionCategoryClassifierName)
	}
	c := &QuestionCategoryClassifier{base: newBase(QuestionCategoryClassifierName, logger), config: config, serving: srv}
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *QuestionCategoryClassifier) CheckConfig() error {
	return operator.NewChecker(c.name).
		Require("input_key", c.config.InputKey).
		Require("output_key", c.config.OutputKey).
		Err()
}

func (c *QuestionCategoryClassifier) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	outputs := []string{c.config.OutputKey, PrimaryCategoryKey, SecondaryCategoryKey}
	table, err := c.load(ctx, s, []string{c.config.InputKey}, outputs)
	if err != nil {
		return nil, err
	}
	questions, err := table.Strings(c.config.InputKey)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, len(questions))
	for i, q := range questions {
		prompts[i] = questionCategoryPrompt(q)
	}
	results, err := c.serving.GenerateFromInput(ctx, prompts, "")
	if err != nil {
		return nil, err
	}

	primary := make([]any, len(results))
	secondary := make([]any, len(results))
	for i, r := range results {
		if r == nil {
			c.rowFailed(i, errNoReply)
			continue
		}
		var parsed struct {
			Primary   string `json:"primary_category"`
			Secondary string `json:"secondary_category"`
		}
		if err := decodeReply(*r, &parsed); err != nil {
			c.rowFailed(i, fmt.Errorf("parse classification: %w", err))
			continue
		}
		primary[i] = strings.TrimSpace(parsed.Primary)
		secondary[i] = strings.TrimSpace(parsed.Secondary)
	}

	for i, values := range [][]any{serving.Values(results), primary, secondary} {
		if err := table.SetColumn(outputs[i], values); err != nil {
			return nil, err
		}
	}
	if err := c.save(ctx, s, table, table.Len()); err != nil {
		return nil, err
	}
	return outputs, nil
}

// QuestionDifficultyClassifierConfig configures QuestionDifficultyClassifier.
type QuestionDifficultyClassifierConfig struct {
	InputKey  string `yaml:"input_key"`
	OutputKey string `yaml:"output_key"`
}

func DefaultQuestionDifficultyClassifierConfig() QuestionDifficultyClassifierConfig {
	return QuestionDifficultyClassifierConfig{
		InputKey:  "instruction",
		OutputKey: "difficulty_score",
	}
}

// QuestionDifficultyClassifier asks the model to rate each question's
// difficulty. Unreadable ratings are recorded as UnratedDifficulty.
type QuestionDifficultyClassifier struct {
	base
	config  QuestionDifficultyClassifierConfig
	serving serving.Serving
}

func NewQuestionDifficultyClassifier(config QuestionDifficultyClassifierConfig, srv serving.Serving, logger *slog.Logger) (*QuestionDifficultyClassifier, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, QuestionDifficultyClassifierName)
	}
	c := &QuestionDifficultyClassifier{base: newBase(QuestionDifficultyClassifierName, logger), config: config, serving: srv}
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *QuestionDifficultyClassifier) CheckConfig() error {
	return operator.NewChecker(c.name).
		Require("input_key", c.config.InputKey).
		Require("output_key", c.config.OutputKey).
		Err()
}

func (c *QuestionDifficultyClassifier) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := c.load(ctx, s, []string{c.config.InputKey}, []string{c.config.OutputKey})
	if err != nil {
		return nil, err
	}
	questions, err := table.Strings(c.config.InputKey)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, len(questions))
	for i, q := range questions {
		prompts[i] = questionDifficultyPrompt(q)
	}
	results, err := c.serving.GenerateFromInput(ctx, prompts, "")
	if err != nil {
		return nil, err
	}

	scores := make([]any, len(results))
	for i, r := range results {
		score, err := parseRating(serving.String(r))
		if err != nil {
			c.rowFailed(i, err)
		}
		scores[i] = score
	}
	if err := table.SetColumn(c.config.OutputKey, scores); err != nil {
		return nil, err
	}
	if err := c.save(ctx, s, table, table.Len()); err != nil {
		return nil, err
	}
	return []string{c.config.OutputKey}, nil
}

// parseRating reads the "Rating: N" line of a difficulty reply.
func parseRating(reply string) (float64, error) {
	m := ratingPattern.FindStringSubmatch(reply)
	if m == nil {
		return UnratedDifficulty, errors.New("no rating in reply")
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return UnratedDifficulty, err
	}
	return score, nil
}

// MathProblemFilterConfig configures MathProblemFilter.
type MathProblemFilterConfig struct {
	InputKey string `yaml:"input_key"`
}

func DefaultMathProblemFilterConfig() MathProblemFilterConfig {
	return MathProblemFilterConfig{InputKey: "math_problem"}
}

// MathProblemFilter asks the model to judge whether each question is a
// well-formed, solvable math problem and keeps those judged true. Blank
// questions and rows without a usable judgement are dropped.
type MathProblemFilter struct {
	base
	config  MathProblemFilterConfig
	serving serving.Serving
}

func NewMathProblemFilter(config MathProblemFilterConfig, srv serving.Serving, logger *slog.Logger) (*MathProblemFilter, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, MathProblemFilterName)
	}
	f := &MathProblemFilter{base: newBase(MathProblemFilterName, logger), config: config, serving: srv}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *MathProblemFilter) CheckConfig() error {
	return operator.NewChecker(f.name).Require("input_key", f.config.InputKey).Err()
}

func (f *MathProblemFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.InputKey}, nil)
	if err != nil {
		return nil, err
	}
	questions, err := table.Strings(f.config.InputKey)
	if err != nil {
		return nil, err
	}

	// Only non-blank questions are sent; slot maps a request back to its row.
	var prompts []string
	var slot []int
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		prompts = append(prompts, mathProblemPrompt(q))
		slot = append(slot, i)
	}
	results, err := f.serving.GenerateFromInput(ctx, prompts, mathProblemSystemPrompt)
	if err != nil {
		return nil, err
	}

	passed := make([]bool, table.Len())
	for j, r := range results {
		if r == nil {
			f.rowFailed(slot[j], errNoReply)
			continue
		}
		ok, err := judgement(*r)
		if err != nil {
			f.rowFailed(slot[j], err)
			continue
		}
		passed[slot[j]] = ok
	}
	kept := table.Filter(func(i int, _ core.Row) bool { return passed[i] })
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}

// judgement reads the judgement_test verdict. A reply without one is an error.
func judgement(reply string) (bool, error) {
	if m := judgementPattern.FindStringSubmatch(reply); m != nil {
		return m[1] == "true", nil
	}
	var verdict struct {
		JudgementTest *bool `json:"judgement_test"`
	}
	if err := decodeReply(reply, &verdict); err == nil && verdict.JudgementTest != nil {
		return *verdict.JudgementTest, nil
	}
	return false, errNoJudgement
}
