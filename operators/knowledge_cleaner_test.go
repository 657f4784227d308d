package operators

import (
	"strings"
	"testing"

	"github.com/poiesic/dataforge/serving/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeCleaner_Run(t *testing.T) {
	srv := mock.NewMockServing()
	srv.RespondFunc = func(input, _ string) (string, bool) {
		switch {
		case strings.Contains(input, "<a href"):
			return "Solution: See Example for details.", true
		case strings.Contains(input, "broken"):
			return "", false
		default:
			return "  plain reply  ", true
		}
	}
	c, err := NewKnowledgeCleaner(DefaultKnowledgeCleanerConfig(), srv, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"raw_content": `See <a href="https://example.com">Example</a> for details.`},
		map[string]any{"raw_content": "broken page"},
		map[string]any{"raw_content": "already clean"},
	)
	cols, out := runOp(t, c, s)

	assert.Equal(t, []string{"cleaned"}, cols)
	assert.Equal(t, "See Example for details.", out.Row(0)["cleaned"])
	assert.Nil(t, out.Row(1)["cleaned"])
	assert.Equal(t, "plain reply", out.Row(2)["cleaned"])

	prompt := srv.Inputs()[0][0]
	assert.True(t, strings.HasPrefix(prompt, "You are a meticulous Knowledge Refinement Engineer."))
	assert.Contains(t, prompt, "Raw content to clean:\nSee <a href")
	assert.True(t, strings.HasSuffix(prompt, "Solution:"))
	assert.Equal(t, []string{""}, srv.SystemPrompts())
}

func TestKnowledgeCleaner_ChinesePrompt(t *testing.T) {
	srv := mock.NewMockServing()
	config := DefaultKnowledgeCleanerConfig()
	config.Lang = "zh"
	c, err := NewKnowledgeCleaner(config, srv, nil)
	require.NoError(t, err)

	runOp(t, c, newMemStorage(map[string]any{"raw_content": "原文"}))
	prompt := srv.Inputs()[0][0]
	assert.True(t, strings.HasPrefix(prompt, "你是一名严谨的知识清洗工程师"))
	assert.Contains(t, prompt, "原始内容待清洗：\n原文")
}

func TestKnowledgeCleaner_CheckConfig(t *testing.T) {
	_, err := NewKnowledgeCleaner(DefaultKnowledgeCleanerConfig(), nil, nil)
	assert.Error(t, err)

	_, err = NewKnowledgeCleaner(KnowledgeCleanerConfig{InputKey: "x", OutputKey: "x", Lang: "fr"}, mock.NewMockServing(), nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "must differ")
	assert.ErrorContains(t, err, `lang must be en or zh, got "fr"`)
}
