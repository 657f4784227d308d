package operator

import (
	"errors"
	"testing"

	"github.com/poiesic/dataforge/serving/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescription_For(t *testing.T) {
	d := Description{ZH: "过滤", EN: "filter", Generic: "generic"}
	assert.Equal(t, "过滤", d.For("zh"))
	assert.Equal(t, "filter", d.For("en"))
	assert.Equal(t, "generic", d.For("fr"))
	assert.Equal(t, "generic", d.For(""))

	assert.Equal(t, "filter", Description{EN: "filter"}.For("de"))
	assert.Equal(t, "generic", Description{Generic: "generic"}.For("zh"))
}

func TestConfigError(t *testing.T) {
	err := NewChecker("NgramFilter").
		Require("input_key", "").
		Require("output_key", "").
		Require("present", "x").
		Range("min_score", 2, 0, 1).
		Err()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, []string{"input_key", "output_key"}, cfgErr.Missing)
	assert.Len(t, cfgErr.Conflicting, 1)
	assert.Contains(t, err.Error(), "input_key, output_key")
	assert.Contains(t, err.Error(), "min_score")

	assert.NoError(t, NewChecker("x").Require("a", "b").Err())
}

func TestChecker_RequireAllAndConflict(t *testing.T) {
	err := NewChecker("op").
		RequireAll("keys", nil).
		RequireAll("others", []string{"a", ""}).
		RequireAll("fine", []string{"a"}).
		Conflict(true, "pick exactly one").
		Conflict(false, "never").
		Err()

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"keys", "others"}, cfgErr.Missing)
	assert.Equal(t, []string{"pick exactly one"}, cfgErr.Conflicting)
}

func TestPerRowError(t *testing.T) {
	cause := errors.New("bad json")
	err := error(&PerRowError{Index: 3, Err: cause})

	assert.ErrorIs(t, err, ErrPerRow)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "row 3: bad json", err.Error())
}

func TestDeps(t *testing.T) {
	var deps Deps
	assert.NotNil(t, deps.LoggerFor("x"))

	_, err := deps.RequireServing("AnswerGenerator")
	assert.ErrorIs(t, err, ErrServingRequired)
	assert.ErrorIs(t, err, ErrConfig)

	deps.Serving = mock.NewMockServing()
	s, err := deps.RequireServing("AnswerGenerator")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

type sampleConfig struct {
	InputKey string   `yaml:"input_key"`
	MinScore float64  `yaml:"min_score"`
	Ngrams   int      `yaml:"ngrams"`
	Keys     []string `yaml:"keys"`
}

func TestParams(t *testing.T) {
	p := Params{"input_key": "text", "min_score": 0.5, "ngrams": 3, "keys": []any{"a", "b"}}

	require.NoError(t, p.Require("op", "input_key", "ngrams"))
	err := p.Require("op", "input_key", "output_key", "extra")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, []string{"output_key", "extra"}, cfgErr.Missing)

	cfg := sampleConfig{MinScore: 0.99}
	require.NoError(t, p.Decode(&cfg))
	assert.Equal(t, sampleConfig{InputKey: "text", MinScore: 0.5, Ngrams: 3, Keys: []string{"a", "b"}}, cfg)

	assert.Equal(t, []string{"input_key", "keys", "min_score", "ngrams"}, p.Keys())
}

func TestParams_DecodeKeepsDefaultsAndRejectsUnknown(t *testing.T) {
	cfg := sampleConfig{MinScore: 0.99, Ngrams: 5}
	require.NoError(t, Params{"input_key": "t"}.Decode(&cfg))
	assert.Equal(t, 0.99, cfg.MinScore)
	assert.Equal(t, 5, cfg.Ngrams)

	require.NoError(t, Params(nil).Decode(&cfg))

	err := Params{"inptu_key": "typo"}.Decode(&cfg)
	assert.ErrorIs(t, err, ErrConfig)

	err = Params{"ngrams": "five"}.Decode(&cfg)
	assert.ErrorIs(t, err, ErrConfig)
}
