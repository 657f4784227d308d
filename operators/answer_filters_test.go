package operators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordCounter(_ string, text string) int {
	return len(strings.Fields(text))
}

func TestAnswerTokenLengthFilter_Run(t *testing.T) {
	f, err := NewAnswerTokenLengthFilter(AnswerTokenLengthFilterConfig{
		InputKey:  "answer",
		MaxTokens: 3,
		Model:     "test",
	}, wordCounter, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"answer": "one two three"},
		map[string]any{"answer": "one two three four"},
		map[string]any{"answer": ""},
		map[string]any{"answer": "short"},
	)
	_, out := runOp(t, f, s)
	assert.Equal(t, []string{"one two three", "short"}, column(t, out, "answer"))
}

func TestAnswerTokenLengthFilter_CheckConfig(t *testing.T) {
	_, err := NewAnswerTokenLengthFilter(AnswerTokenLengthFilterConfig{}, wordCounter, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input_key")
	assert.Contains(t, err.Error(), "model")
	assert.Contains(t, err.Error(), "max_answer_token_length must be positive")
}

func TestAnswerFormatterFilter_Run(t *testing.T) {
	f, err := NewAnswerFormatterFilter(AnswerFormatterFilterConfig{InputKey: "cot"}, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"cot": `so \boxed{4}`},
		map[string]any{"cot": "I have no idea"},
		map[string]any{"cot": "total is 12"},
		map[string]any{"cot": nil},
	)
	_, out := runOp(t, f, s)
	assert.Equal(t, []string{`so \boxed{4}`, "total is 12"}, column(t, out, "cot"))
}

func TestAnswerGroundTruthFilter_Exact(t *testing.T) {
	f, err := NewAnswerGroundTruthFilter(AnswerGroundTruthFilterConfig{
		TestAnswerKey: "cot",
		GTAnswerKey:   "gt",
		CompareMethod: CompareExact,
	}, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"cot": `\boxed{4}`, "gt": "4"},
		map[string]any{"cot": `\boxed{4.0}`, "gt": "4"},
		map[string]any{"cot": "the answer is 5", "gt": "4"},
	)
	_, out := runOp(t, f, s)
	assert.Equal(t, []string{`\boxed{4}`}, column(t, out, "cot"))
}

func TestAnswerGroundTruthFilter_Numeric(t *testing.T) {
	f, err := NewAnswerGroundTruthFilter(AnswerGroundTruthFilterConfig{
		TestAnswerKey: "cot",
		GTAnswerKey:   "gt",
		CompareMethod: CompareNumeric,
	}, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"cot": `\boxed{4.0}`, "gt": "4"},
		map[string]any{"cot": `\boxed{1,000}`, "gt": 1000.0},
		map[string]any{"cot": `\boxed{x}`, "gt": "x"},
		map[string]any{"cot": "the answer is 5", "gt": "4"},
	)
	_, out := runOp(t, f, s)
	assert.Equal(t, []string{`\boxed{4.0}`, `\boxed{1,000}`, `\boxed{x}`}, column(t, out, "cot"))
}

func TestAnswerGroundTruthFilter_UnknownMethod(t *testing.T) {
	_, err := NewAnswerGroundTruthFilter(AnswerGroundTruthFilterConfig{
		TestAnswerKey: "cot",
		GTAnswerKey:   "gt",
		CompareMethod: "fuzzy",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compare_method")
}
