package operators

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

const (
	NgramFilterName       = "NgramFilter"
	AnswerNgramFilterName = "AnswerNgramFilter"
)

var punctuationPattern = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// ngramScore is the ratio of distinct word n-grams to all word n-grams in
// text, after lowercasing and dropping punctuation. Text with fewer than n
// words scores 0.
func ngramScore(text string, n int) float64 {
	words := strings.Fields(punctuationPattern.ReplaceAllString(strings.ToLower(text), ""))
	total := len(words) - n + 1
	if n <= 0 || total <= 0 {
		return 0
	}
	seen := make(map[string]struct{}, total)
	for i := 0; i < total; i++ {
		seen[strings.Join(words[i:i+n], " ")] = struct{}{}
	}
	return float64(len(seen)) / float64(total)
}

// NgramFilterConfig configures NgramFilter.
type NgramFilterConfig struct {
	InputKey  string  `yaml:"input_key"`
	OutputKey string  `yaml:"output_key"`
	MinScore  float64 `yaml:"min_score"`
	MaxScore  float64 `yaml:"max_score"`
	Ngrams    int     `yaml:"ngrams"`
}

func DefaultNgramFilterConfig() NgramFilterConfig {
	return NgramFilterConfig{
		OutputKey: "NgramScore",
		MinScore:  0.99,
		MaxScore:  1,
		Ngrams:    5,
	}
}

// NgramFilter scores repetitiveness of a text column and keeps rows whose
// score lies in [MinScore, MaxScore].
type NgramFilter struct {
	base
	config NgramFilterConfig
}

func NewNgramFilter(config NgramFilterConfig, logger *slog.Logger) (*NgramFilter, error) {
	f := &NgramFilter{base: newBase(NgramFilterName, logger), config: config}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *NgramFilter) CheckConfig() error {
	return checkNgram(operator.NewChecker(f.name).
		Require("input_key", f.config.InputKey).
		Require("output_key", f.config.OutputKey),
		f.config.MinScore, f.config.MaxScore, f.config.Ngrams).Err()
}

func (f *NgramFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.InputKey}, []string{f.config.OutputKey})
	if err != nil {
		return nil, err
	}
	texts, err := table.Strings(f.config.InputKey)
	if err != nil {
		return nil, err
	}
	scores := make([]any, len(texts))
	for i, text := range texts {
		scores[i] = ngramScore(text, f.config.Ngrams)
	}
	if err := table.SetColumn(f.config.OutputKey, scores); err != nil {
		return nil, err
	}
	kept := table.Filter(func(i int, _ core.Row) bool {
		return inRange(scores[i].(float64), f.config.MinScore, f.config.MaxScore)
	})
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return []string{f.config.OutputKey}, nil
}

// AnswerNgramFilterConfig configures AnswerNgramFilter.
type AnswerNgramFilterConfig struct {
	QuestionKey string  `yaml:"question_key"`
	AnswerKey   string  `yaml:"answer_key"`
	MinScore    float64 `yaml:"min_score"`
	MaxScore    float64 `yaml:"max_score"`
	Ngrams      int     `yaml:"ngrams"`
}

func DefaultAnswerNgramFilterConfig() AnswerNgramFilterConfig {
	return AnswerNgramFilterConfig{
		QuestionKey: "instruction",
		AnswerKey:   "generated_cot",
		MinScore:    0.1,
		MaxScore:    1,
		Ngrams:      5,
	}
}

// AnswerNgramFilter drops question/answer pairs whose combined text is too
// repetitive. It adds no columns.
type AnswerNgramFilter struct {
	base
	config AnswerNgramFilterConfig
}

func NewAnswerNgramFilter(config AnswerNgramFilterConfig, logger *slog.Logger) (*AnswerNgramFilter, error) {
	f := &AnswerNgramFilter{base: newBase(AnswerNgramFilterName, logger), config: config}
	if err := f.CheckConfig(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *AnswerNgramFilter) CheckConfig() error {
	return checkNgram(operator.NewChecker(f.name).
		Require("question_key", f.config.QuestionKey).
		Require("answer_key", f.config.AnswerKey),
		f.config.MinScore, f.config.MaxScore, f.config.Ngrams).Err()
}

func (f *AnswerNgramFilter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := f.load(ctx, s, []string{f.config.QuestionKey, f.config.AnswerKey}, nil)
	if err != nil {
		return nil, err
	}
	kept := table.Filter(func(_ int, row core.Row) bool {
		text := core.Text(row[f.config.QuestionKey]) + core.Text(row[f.config.AnswerKey])
		return inRange(ngramScore(text, f.config.Ngrams), f.config.MinScore, f.config.MaxScore)
	})
	if err := f.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}

func checkNgram(c *operator.Checker, minScore, maxScore float64, ngrams int) *operator.Checker {
	return c.
		Range("min_score", minScore, 0, 1).
		Range("max_score", maxScore, 0, 1).
		Conflict(minScore > maxScore, "min_score must not exceed max_score").
		Conflict(ngrams < 1, "ngrams must be at least 1")
}

func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}
