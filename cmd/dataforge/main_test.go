package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"dataforge"}, args...))
	return out.String(), err
}

func writePipeline(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(`{"text": "<p>hello</p>"}`+"\n"+`{"text": "<p>hello</p>"}`+"\n"), 0644))
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: cli-test
input: `+input+`
cache:
  dir: `+filepath.Join(dir, "cache")+`
manifest:
  dir: `+filepath.Join(dir, "manifest")+`
steps:
  - operator: HTMLURLRemover
    params:
      input_keys: [text]
  - operator: ContentDeduplicator
`), 0644))
	return path
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			_, err := runApp(t, "--log-level", tt.level, "operators")
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOperatorsCommand(t *testing.T) {
	out, err := runApp(t, "operators")
	require.NoError(t, err)
	assert.Contains(t, out, "NgramFilter\n")
	assert.Contains(t, out, "AnswerPipelineRoot\n")
	assert.Contains(t, out, "ContentDeduplicator\n")
}

func TestDescribeCommand(t *testing.T) {
	en, err := runApp(t, "describe", "NgramFilter")
	require.NoError(t, err)
	assert.NotEmpty(t, en)

	zh, err := runApp(t, "describe", "--lang", "zh", "NgramFilter")
	require.NoError(t, err)
	assert.NotEqual(t, en, zh)

	_, err = runApp(t, "describe", "NoSuchOperator")
	require.Error(t, err)

	_, err = runApp(t, "describe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operator name is required")
}

func TestRunCommand(t *testing.T) {
	path := writePipeline(t)

	out, err := runApp(t, "run", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "HTMLURLRemover")
	assert.Contains(t, out, "ContentDeduplicator")

	out, err = runApp(t, "stages", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1  jsonl")
	assert.Contains(t, out, "2  jsonl")

	out, err = runApp(t, "run", "--config", path, "--resume")
	require.NoError(t, err)
	assert.Contains(t, out, "skipped")

	out, err = runApp(t, "stages", "--config", path, "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "stages cleared")

	out, err = runApp(t, "stages", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded stages")
}

func TestCheckCommand(t *testing.T) {
	out, err := runApp(t, "check", "--config", writePipeline(t))
	require.NoError(t, err)
	assert.Contains(t, out, "cli-test: 2 steps ok")

	_, err = runApp(t, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config")
}
