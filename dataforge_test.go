package dataforge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/pipeline"
	"github.com/poiesic/dataforge/serving"
	"github.com/poiesic/dataforge/serving/mock"
	"github.com/poiesic/dataforge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConfig(t *testing.T) *pipeline.Config {
	t.Helper()
	dir := t.TempDir()
	input := writeFile(t, dir, "questions.jsonl",
		`{"instruction": "alpha beta gamma delta epsilon zeta"}`+"\n"+
			`{"instruction": "alpha beta gamma delta epsilon zeta"}`+"\n"+
			`{"instruction": "one two three four five one two three four five one two three four five"}`+"\n")
	return &pipeline.Config{
		Name:     "workspace-test",
		Input:    input,
		Cache:    pipeline.CacheConfig{Dir: filepath.Join(dir, "cache"), Type: "jsonl"},
		Manifest: pipeline.ManifestConfig{InMemory: true},
		Steps: []pipeline.StepConfig{
			{Operator: "ContentDeduplicator"},
			{Operator: "NgramFilter", Params: operator.Params{"input_key": "instruction"}},
			{Name: "answers", Operator: "AnswerGenerator"},
		},
	}
}

func TestWorkspace_Run(t *testing.T) {
	ctx := context.Background()
	srv := mock.NewMockServing()
	srv.RespondFunc = func(input, _ string) (string, bool) {
		return `\boxed{42}`, true
	}

	w, err := NewWorkspace(ctx, testConfig(t), WithServing(srv))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, []string{"ContentDeduplicator", "NgramFilter", "answers"}, w.Pipeline().Steps())

	result, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"NgramScore"}, result.Columns("NgramFilter"))
	assert.Equal(t, []string{"generated_cot"}, result.Columns("answers"))

	stages, err := w.Stages(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, 2, stages[0].Rows, "duplicate removed")
	assert.Equal(t, 1, stages[1].Rows, "repetitive text removed")
	assert.Equal(t, []string{"instruction", "NgramScore", "generated_cot"}, stages[2].Columns)

	final, err := storage.ReadFile(ctx, stages[2].Path)
	require.NoError(t, err)
	assert.Equal(t, `\boxed{42}`, final.Row(0)["generated_cot"])

	require.NoError(t, w.ClearStages(ctx))
	stages, err = w.Stages(ctx)
	require.NoError(t, err)
	assert.Empty(t, stages)

	require.NoError(t, w.Close())
	assert.False(t, srv.IsClosed(), "caller-provided serving stays open")
}

func TestWorkspace_ServingRequired(t *testing.T) {
	w, err := NewWorkspace(context.Background(), testConfig(t))
	assert.ErrorIs(t, err, operator.ErrServingRequired)
	assert.Nil(t, w)
}

func TestWorkspace_UnknownOperator(t *testing.T) {
	config := testConfig(t)
	config.Steps = append(config.Steps, pipeline.StepConfig{Operator: "NoSuchOperator"})

	_, err := NewWorkspace(context.Background(), config, WithServing(mock.NewMockServing()))
	assert.ErrorIs(t, err, operator.ErrNotFound)
}

func TestWorkspace_InvalidConfig(t *testing.T) {
	_, err := NewWorkspace(context.Background(), &pipeline.Config{})
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestWorkspace_WithoutManifest(t *testing.T) {
	config := testConfig(t)
	config.Manifest = pipeline.ManifestConfig{}
	config.Steps = config.Steps[:1]

	w, err := NewWorkspace(context.Background(), config)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Run(context.Background())
	require.NoError(t, err)
	stages, err := w.Stages(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stages)
	assert.NoError(t, w.ClearStages(context.Background()))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.jsonl", `{"text": "<b>hi</b> https://x.y"}`+"\n")
	path := writeFile(t, dir, "pipeline.yaml", `
name: open-test
input: `+input+`
cache:
  dir: `+filepath.Join(dir, "cache")+`
manifest:
  dir: `+filepath.Join(dir, "manifest")+`
steps:
  - operator: HTMLURLRemover
    params:
      input_keys: [text]
`)
	w, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Run(context.Background())
	require.NoError(t, err)
	out, err := storage.ReadFile(context.Background(), w.Storage().StagePath(1))
	require.NoError(t, err)
	assert.Equal(t, "hi ", out.Row(0)["text"])
}

func TestNewServing(t *testing.T) {
	srv, err := newServing(context.Background(), pipeline.ServingConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, srv)

	temp := 0.5
	srv, err = newServing(context.Background(), pipeline.ServingConfig{
		Kind:        pipeline.ServingRemote,
		URL:         "http://127.0.0.1:1/v1",
		Model:       "m",
		Temperature: &temp,
		MaxAttempts: 2,
	}, nil)
	require.NoError(t, err)
	_, ok := srv.(serving.UsageReporter)
	assert.True(t, ok)
	assert.NoError(t, srv.Close())

	_, err = newServing(context.Background(), pipeline.ServingConfig{Kind: pipeline.ServingRemote}, nil)
	assert.ErrorIs(t, err, serving.ErrInvalidConfig)
}
