package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/dataforge/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
name: math
input: data/questions.jsonl
cache:
  dir: ./out
  type: json
manifest:
  dir: ./out/manifest
serving:
  kind: Remote
  url: https://api.example.com/v1
  model: qwen
  max_workers: 4
  timeout: 30s
  temperature: 0.2
  max_attempts: 3
steps:
  - operator: ContentDeduplicator
  - operator: NgramFilter
    params:
      input_key: question
      ngrams: 4
  - operator: NgramFilter
  - name: answers
    operator: AnswerGenerator
`

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "math", c.Name)
	assert.Equal(t, "./out", c.Cache.Dir)
	assert.Equal(t, "json", c.Cache.Type)
	assert.Equal(t, storage.DefaultFilePrefix, c.Cache.Prefix)
	assert.True(t, c.Manifest.Enabled())
	assert.Equal(t, ServingRemote, c.Serving.Kind)
	assert.Equal(t, 30*time.Second, c.Serving.Timeout)
	assert.Equal(t, 3, c.Serving.MaxAttempts)
	require.NotNil(t, c.Serving.Temperature)
	assert.Equal(t, 0.2, *c.Serving.Temperature)

	require.Len(t, c.Steps, 4)
	assert.Equal(t, "ContentDeduplicator", c.Steps[0].Name)
	assert.Equal(t, "NgramFilter", c.Steps[1].Name)
	assert.Equal(t, "NgramFilter_2", c.Steps[2].Name)
	assert.Equal(t, "answers", c.Steps[3].Name)
	assert.Equal(t, "question", c.Steps[1].Params["input_key"])
	assert.Equal(t, 4, c.Steps[1].Params["ngrams"])
}

func TestParseConfig_Defaults(t *testing.T) {
	c, err := ParseConfig(strings.NewReader("input: in.csv\nsteps:\n  - operator: HTMLURLRemover\n"))
	require.NoError(t, err)
	assert.Equal(t, "pipeline", c.Name)
	assert.Equal(t, storage.DefaultCacheDir, c.Cache.Dir)
	assert.Equal(t, storage.DefaultCacheType, c.Cache.Type)
	assert.False(t, c.Manifest.Enabled())
	assert.Equal(t, ServingNone, c.Serving.Kind)
}

func TestParseConfig_ReportsEveryProblem(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(`
cache:
  type: xml
serving:
  kind: magic
steps:
  - name: a
  - name: a
    operator: X
`))
	require.ErrorIs(t, err, ErrInvalidConfig)
	msg := err.Error()
	assert.Contains(t, msg, "input is required")
	assert.Contains(t, msg, `cache.type "xml"`)
	assert.Contains(t, msg, `serving.kind "magic"`)
	assert.Contains(t, msg, "steps[0]: operator is required")
	assert.Contains(t, msg, `duplicate step name "a"`)
}

func TestParseConfig_LocalNeedsModel(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("input: a.json\nserving:\n  kind: local\nsteps:\n  - operator: X\n"))
	assert.ErrorContains(t, err, "serving.model")
}

func TestParseConfig_UnknownKey(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("input: a.json\nstpes: []\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseConfig_Empty(t *testing.T) {
	_, err := ParseConfig(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, c.Steps, 4)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
