package operators

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/poiesic/dataforge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerPipelineRoot_DerivesMissingGroundTruth(t *testing.T) {
	dir := t.TempDir()
	withGT := filepath.Join(dir, "with_gt.jsonl")
	withoutGT := filepath.Join(dir, "without_gt.jsonl")
	root, err := NewAnswerPipelineRoot(AnswerPipelineRootConfig{
		AnswerKey:           "answer",
		GTKey:               "gt",
		OutputFileWithGT:    withGT,
		OutputFileWithoutGT: withoutGT,
	}, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"gt": "", "answer": "42"},
		map[string]any{"gt": "7", "answer": "irrelevant"},
	)
	cols, out := runOp(t, root, s)

	assert.Equal(t, []string{"gt"}, cols)
	assert.Equal(t, []string{"42", "7"}, column(t, out, "gt"))
	assert.Equal(t, []string{"42", "irrelevant"}, column(t, out, "answer"))

	written, err := storage.ReadFile(context.Background(), withGT)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "7"}, column(t, written, "gt"))
	assert.NoFileExists(t, withoutGT)
}

func TestAnswerPipelineRoot_WithoutGroundTruthPartition(t *testing.T) {
	dir := t.TempDir()
	withGT := filepath.Join(dir, "with_gt.json")
	withoutGT := filepath.Join(dir, "without_gt.json")
	root, err := NewAnswerPipelineRoot(AnswerPipelineRootConfig{
		AnswerKey:           "answer",
		GTKey:               "gt",
		OutputFileWithGT:    withGT,
		OutputFileWithoutGT: withoutGT,
	}, nil)
	require.NoError(t, err)

	s := newMemStorage(
		map[string]any{"gt": nil, "answer": "the answer is 3"},
		map[string]any{"gt": "", "answer": "no numbers here"},
		map[string]any{"gt": "", "answer": ""},
	)
	_, out := runOp(t, root, s)
	assert.Equal(t, []string{"3"}, column(t, out, "gt"))

	rest, err := storage.ReadFile(context.Background(), withoutGT)
	require.NoError(t, err)
	require.Equal(t, 2, rest.Len())
	assert.Nil(t, rest.Row(0)["gt"])
	assert.Nil(t, rest.Row(1)["gt"])
	assert.Equal(t, "no numbers here", rest.Row(0)["answer"])
}

func TestAnswerPipelineRoot_CreatesAbsentColumn(t *testing.T) {
	root, err := NewAnswerPipelineRoot(DefaultAnswerPipelineRootConfig(), nil)
	require.NoError(t, err)

	s := newMemStorage(map[string]any{"output": `\boxed{9}`})
	_, out := runOp(t, root, s)
	assert.Equal(t, []string{"9"}, column(t, out, "golden_answer"))
}

func TestAnswerPipelineRoot_CheckConfig(t *testing.T) {
	_, err := NewAnswerPipelineRoot(AnswerPipelineRootConfig{
		OutputFileWithGT:    "same.jsonl",
		OutputFileWithoutGT: "same.jsonl",
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input_answer_key")
	assert.Contains(t, err.Error(), "input_gt_key")
	assert.Contains(t, err.Error(), "must differ")
}
