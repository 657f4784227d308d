package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/dataforge/operator"
	"github.com/poiesic/dataforge/storage"
	"github.com/poiesic/dataforge/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stampOp adds a column holding its own name to every row.
type stampOp struct {
	column   string
	checkErr error
	runErr   error
	runs     int
	stages   []int
}

func (o *stampOp) CheckConfig() error { return o.checkErr }

func (o *stampOp) Desc(string) string { return "stamps rows" }

func (o *stampOp) Run(ctx context.Context, s storage.Storage) ([]string, error) {
	o.runs++
	o.stages = append(o.stages, s.Cursor())
	if o.runErr != nil {
		return nil, o.runErr
	}
	t, err := s.Read(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]any, t.Len())
	for i := range values {
		values[i] = o.column
	}
	if err := t.SetColumn(o.column, values); err != nil {
		return nil, err
	}
	if _, err := s.Write(ctx, t); err != nil {
		return nil, err
	}
	return []string{o.column}, nil
}

func newInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"q\": \"a\"}\n{\"q\": \"b\"}\n"), 0644))
	return path
}

func TestPipeline_RunChainsStages(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFileStorage(newInput(t), storage.WithCacheDir(t.TempDir()))
	require.NoError(t, err)

	var progress bytes.Buffer
	p, err := New(s, WithProgress(&progress))
	require.NoError(t, err)
	first, second := &stampOp{column: "first"}, &stampOp{column: "second"}
	require.NoError(t, p.Add("one", first))
	require.NoError(t, p.Add("two", second))
	assert.Equal(t, []string{"one", "two"}, p.Steps())

	result, err := p.Run(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.Zero(t, result.Resumed)
	require.Len(t, result.Steps, 2)
	assert.Equal(t, []string{"first"}, result.Columns("one"))
	assert.Equal(t, []string{"second"}, result.Columns("two"))
	assert.Nil(t, result.Columns("missing"))
	assert.Equal(t, []int{0}, first.stages)
	assert.Equal(t, []int{1}, second.stages)
	assert.Contains(t, progress.String(), "2/2")

	final, err := storage.ReadFile(ctx, s.StagePath(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "first", "second"}, final.Columns())
}

func TestPipeline_ChecksAllConfigsFirst(t *testing.T) {
	s, err := storage.NewFileStorage(newInput(t), storage.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	p, err := New(s)
	require.NoError(t, err)

	good := &stampOp{column: "good"}
	badA := &stampOp{checkErr: &operator.ConfigError{Operator: "A", Missing: []string{"input_key"}}}
	badB := &stampOp{checkErr: &operator.ConfigError{Operator: "B", Missing: []string{"output_key"}}}
	require.NoError(t, p.Add("good", good))
	require.NoError(t, p.Add("a", badA))
	require.NoError(t, p.Add("b", badB))

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, operator.ErrConfig)
	assert.Contains(t, err.Error(), "step a")
	assert.Contains(t, err.Error(), "step b")
	assert.Zero(t, good.runs, "no step runs when any config is invalid")
}

func TestPipeline_StopsOnFirstError(t *testing.T) {
	s, err := storage.NewFileStorage(newInput(t), storage.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	p, err := New(s)
	require.NoError(t, err)

	boom := errors.New("boom")
	failing := &stampOp{runErr: boom}
	after := &stampOp{column: "after"}
	require.NoError(t, p.Add("first", &stampOp{column: "first"}))
	require.NoError(t, p.Add("failing", failing))
	require.NoError(t, p.Add("after", after))

	result, err := p.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step failing")
	require.NotNil(t, result)
	assert.Len(t, result.Steps, 1)
	assert.Zero(t, after.runs)
}

func TestPipeline_AddErrors(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrStorageRequired)

	s, err := storage.NewFileStorage(newInput(t))
	require.NoError(t, err)
	p, err := New(s)
	require.NoError(t, err)

	assert.ErrorIs(t, p.Add("", &stampOp{}), operator.ErrConfig)
	assert.ErrorIs(t, p.Add("x", nil), operator.ErrConfig)
	require.NoError(t, p.Add("x", &stampOp{}))
	assert.ErrorIs(t, p.Add("x", &stampOp{}), ErrDuplicateStep)

	empty, err := New(s)
	require.NoError(t, err)
	_, err = empty.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestPipeline_CanceledContext(t *testing.T) {
	s, err := storage.NewFileStorage(newInput(t), storage.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	p, err := New(s)
	require.NoError(t, err)
	op := &stampOp{column: "x"}
	require.NoError(t, p.Add("x", op))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, op.runs)
}

func TestPipeline_Resume(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := badger.NewMemoryManifest()
	require.NoError(t, err)
	defer backend.Close()

	input := newInput(t)
	cache := t.TempDir()
	newStorage := func() *storage.FileStorage {
		s, err := storage.NewFileStorage(input, storage.WithCacheDir(cache), storage.WithManifest(repo, "resume-test"))
		require.NoError(t, err)
		return s
	}

	// First run fails at the third step after two stages are recorded.
	p, err := New(newStorage())
	require.NoError(t, err)
	first, second := &stampOp{column: "first"}, &stampOp{column: "second"}
	third := &stampOp{column: "third", runErr: errors.New("model offline")}
	require.NoError(t, p.Add("first", first))
	require.NoError(t, p.Add("second", second))
	require.NoError(t, p.Add("third", third))
	_, err = p.Run(ctx)
	require.Error(t, err)

	// Second run resumes at the third step.
	s := newStorage()
	p, err = New(s, WithResume(true))
	require.NoError(t, err)
	first, second, third = &stampOp{column: "first"}, &stampOp{column: "second"}, &stampOp{column: "third"}
	require.NoError(t, p.Add("first", first))
	require.NoError(t, p.Add("second", second))
	require.NoError(t, p.Add("third", third))

	result, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Resumed)
	assert.True(t, result.Steps[0].Skipped)
	assert.True(t, result.Steps[1].Skipped)
	assert.False(t, result.Steps[2].Skipped)
	assert.Zero(t, first.runs)
	assert.Zero(t, second.runs)
	assert.Equal(t, []int{2}, third.stages)

	final, err := storage.ReadFile(ctx, s.StagePath(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "first", "second", "third"}, final.Columns())
}

func TestPipeline_ResumeWithoutManifestRunsAll(t *testing.T) {
	s, err := storage.NewFileStorage(newInput(t), storage.WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	p, err := New(s, WithResume(true))
	require.NoError(t, err)
	op := &stampOp{column: "x"}
	require.NoError(t, p.Add("x", op))

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Resumed)
	assert.Equal(t, 1, op.runs)
}

func TestPipeline_FreshRunForgetsEarlierStages(t *testing.T) {
	ctx := context.Background()
	repo, backend, err := badger.NewMemoryManifest()
	require.NoError(t, err)
	defer backend.Close()

	input := newInput(t)
	cache := t.TempDir()
	build := func(resume bool, ops ...*stampOp) *Pipeline {
		s, err := storage.NewFileStorage(input, storage.WithCacheDir(cache), storage.WithManifest(repo, "fresh-test"))
		require.NoError(t, err)
		p, err := New(s, WithResume(resume))
		require.NoError(t, err)
		for _, op := range ops {
			require.NoError(t, p.Add(op.column, op))
		}
		return p
	}

	// Two stages get recorded before the third step fails.
	_, err = build(false, &stampOp{column: "first"}, &stampOp{column: "second"},
		&stampOp{column: "third", runErr: errors.New("model offline")}).Run(ctx)
	require.Error(t, err)

	// A fresh run fails before writing anything.
	_, err = build(false, &stampOp{column: "first", runErr: errors.New("bad input")},
		&stampOp{column: "second"}, &stampOp{column: "third"}).Run(ctx)
	require.Error(t, err)

	// Resuming must not trust the records of the first run.
	first, second, third := &stampOp{column: "first"}, &stampOp{column: "second"}, &stampOp{column: "third"}
	result, err := build(true, first, second, third).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Resumed)
	assert.Equal(t, 1, first.runs)
	assert.Equal(t, 1, second.runs)
	assert.Equal(t, 1, third.runs)
}
