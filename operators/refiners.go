package operators

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/poiesic/dataforge/core"
	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
)

const (
	HTMLURLRemoverName          = "HTMLURLRemover"
	PretrainFormatConverterName = "PretrainFormatConverter"
	ContentDeduplicatorName     = "ContentDeduplicator"
)

var (
	urlPattern     = regexp.MustCompile(`(?m)https?://\S+[\r\n]*`)
	htmlTagPattern = regexp.MustCompile(`<.*?>`)
)

// stripMarkup removes URLs, with any line breaks that follow them, and HTML
// tags from text.
func stripMarkup(text string) string {
	return htmlTagPattern.ReplaceAllString(urlPattern.ReplaceAllString(text, ""), "")
}

// HTMLURLRemoverConfig configures HTMLURLRemover.
type HTMLURLRemoverConfig struct {
	InputKeys []string `yaml:"input_keys"`
}

// HTMLURLRemover strips URLs and HTML tags from text columns in place.
// Non-text cells are left alone.
type HTMLURLRemover struct {
	base
	config HTMLURLRemoverConfig
}

func NewHTMLURLRemover(config HTMLURLRemoverConfig, logger *slog.Logger) (*HTMLURLRemover, error) {
	r := &HTMLURLRemover{base: newBase(HTMLURLRemoverName, logger), config: config}
	if err := r.CheckConfig(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *HTMLURLRemover) CheckConfig() error {
	return operator.NewChecker(r.name).RequireAll("input_keys", r.config.InputKeys).Err()
}

func (r *HTMLURLRemover) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := r.load(ctx, s, r.config.InputKeys, nil)
	if err != nil {
		return nil, err
	}
	modified := 0
	for _, row := range table.Rows() {
		changed := false
		for _, key := range r.config.InputKeys {
			text, ok := row[key].(string)
			if !ok {
				continue
			}
			if refined := stripMarkup(text); refined != text {
				row[key] = refined
				changed = true
			}
		}
		if changed {
			modified++
		}
	}
	r.logger.Debug("markup removed", "rows_modified", modified)
	if err := r.save(ctx, s, table, table.Len()); err != nil {
		return nil, err
	}
	return r.config.InputKeys, nil
}

// PretrainFormatConverterConfig configures PretrainFormatConverter.
type PretrainFormatConverterConfig struct {
	QuestionKey string `yaml:"read_key_question"`
	AnswerKey   string `yaml:"read_key_answer"`
	OutputKey   string `yaml:"output_key"`
}

func DefaultPretrainFormatConverterConfig() PretrainFormatConverterConfig {
	return PretrainFormatConverterConfig{
		QuestionKey: "question",
		AnswerKey:   "answer",
		OutputKey:   "text",
	}
}

// PretrainFormatConverter turns question/answer pairs into plain text
// documents. The output holds only OutputKey, with the question and answer
// joined by a newline.
type PretrainFormatConverter struct {
	base
	config PretrainFormatConverterConfig
}

func NewPretrainFormatConverter(config PretrainFormatConverterConfig, logger *slog.Logger) (*PretrainFormatConverter, error) {
	c := &PretrainFormatConverter{base: newBase(PretrainFormatConverterName, logger), config: config}
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *PretrainFormatConverter) CheckConfig() error {
	return operator.NewChecker(c.name).
		Require("read_key_question", c.config.QuestionKey).
		Require("read_key_answer", c.config.AnswerKey).
		Require("output_key", c.config.OutputKey).
		Err()
}

func (c *PretrainFormatConverter) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := c.load(ctx, s, []string{c.config.QuestionKey, c.config.AnswerKey}, []string{c.config.OutputKey})
	if err != nil {
		return nil, err
	}
	rows := make([]core.Row, table.Len())
	for i, row := range table.Rows() {
		rows[i] = core.Row{c.config.OutputKey: core.Text(row[c.config.QuestionKey]) + "\n" + core.Text(row[c.config.AnswerKey])}
	}
	out := core.NewTable([]string{c.config.OutputKey}, rows)
	if err := c.save(ctx, s, out, table.Len()); err != nil {
		return nil, err
	}
	return []string{c.config.OutputKey}, nil
}

// ContentDeduplicatorConfig configures ContentDeduplicator. With no input
// keys every column takes part in the comparison.
type ContentDeduplicatorConfig struct {
	InputKeys []string `yaml:"input_keys"`
}

// ContentDeduplicator drops rows whose content id over InputKeys repeats an
// earlier row's. The first occurrence is kept.
type ContentDeduplicator struct {
	base
	config ContentDeduplicatorConfig
}

func NewContentDeduplicator(config ContentDeduplicatorConfig, logger *slog.Logger) (*ContentDeduplicator, error) {
	d := &ContentDeduplicator{base: newBase(ContentDeduplicatorName, logger), config: config}
	if err := d.CheckConfig(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ContentDeduplicator) CheckConfig() error {
	c := operator.NewChecker(d.name)
	if len(d.config.InputKeys) > 0 {
		c.RequireAll("input_keys", d.config.InputKeys)
	}
	return c.Err()
}

func (d *ContentDeduplicator) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := d.load(ctx, s, d.config.InputKeys, nil)
	if err != nil {
		return nil, err
	}
	keys := d.config.InputKeys
	if len(keys) == 0 {
		keys = table.Columns()
	}
	seen := make(map[core.ID]struct{}, table.Len())
	kept := table.Filter(func(_ int, row core.Row) bool {
		id := core.RowID(row, keys...)
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
		return true
	})
	if err := d.save(ctx, s, kept, table.Len()); err != nil {
		return nil, err
	}
	return nil, nil
}
