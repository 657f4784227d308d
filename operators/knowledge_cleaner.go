package operators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/storage"
)

const KnowledgeCleanerName = "KnowledgeCleaner"

// KnowledgeCleanerConfig configures KnowledgeCleaner.
type KnowledgeCleanerConfig struct {
	InputKey  string `yaml:"input_key"`
	OutputKey string `yaml:"output_key"`
	Lang      string `yaml:"lang"`
}

func DefaultKnowledgeCleanerConfig() KnowledgeCleanerConfig {
	return KnowledgeCleanerConfig{
		InputKey:  "raw_content",
		OutputKey: "cleaned",
		Lang:      "en",
	}
}

// KnowledgeCleaner has the model strip markup and normalize characters in raw
// documents without touching their facts. The "Solution:" lead-in the prompt
// asks for is removed from the reply. Failed rows carry nil.
type KnowledgeCleaner struct {
	base
	config  KnowledgeCleanerConfig
	serving serving.Serving
}

func NewKnowledgeCleaner(config KnowledgeCleanerConfig, srv serving.Serving, logger *slog.Logger) (*KnowledgeCleaner, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: %s", operator.ErrServingRequired, KnowledgeCleanerName)
	}
	c := &KnowledgeCleaner{base: newBase(KnowledgeCleanerName, logger), config: config, serving: srv}
	if err := c.CheckConfig(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *KnowledgeCleaner) CheckConfig() error {
	return operator.NewChecker(c.name).
		Require("input_key", c.config.InputKey).
		Require("output_key", c.config.OutputKey).
		Conflict(c.config.InputKey != "" && c.config.InputKey == c.config.OutputKey, "input_key and output_key must differ").
		Conflict(c.config.Lang != "en" && c.config.Lang != "zh", fmt.Sprintf("lang must be en or zh, got %q", c.config.Lang)).
		Err()
}

func (c *KnowledgeCleaner) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	table, err := c.load(ctx, s, []string{c.config.InputKey}, []string{c.config.OutputKey})
	if err != nil {
		return nil, err
	}
	raw, err := table.Strings(c.config.InputKey)
	if err != nil {
		return nil, err
	}
	prompts := make([]string, len(raw))
	for i, r := range raw {
		prompts[i] = knowledgeCleanerPrompt(c.config.Lang, r)
	}
	results, err := c.serving.GenerateFromInput(ctx, prompts, "")
	if err != nil {
		return nil, err
	}
	logFailures(c.logger, results)

	cleaned := make([]any, len(results))
	for i, r := range results {
		if r == nil {
			continue
		}
		cleaned[i] = stripSolutionLabel(*r)
	}
	if err := table.SetColumn(c.config.OutputKey, cleaned); err != nil {
		return nil, err
	}
	if err := c.save(ctx, s, table, table.Len()); err != nil {
		return nil, err
	}
	return []string{c.config.OutputKey}, nil
}

func stripSolutionLabel(reply string) string {
	reply = strings.TrimSpace(reply)
	if rest, ok := strings.CutPrefix(reply, "Solution:"); ok {
		return strings.TrimSpace(rest)
	}
	return reply
}
