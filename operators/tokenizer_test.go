package operators

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/dataforge/operator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEncoder yields one token per word.
type wordEncoder struct{}

func (wordEncoder) Encode(text string, _, _ []string) []int {
	return make([]int, len(strings.Fields(text)))
}

// countLoads swaps the encoding loader for one that records every model it
// is asked to resolve.
func countLoads(t *testing.T, fail map[string]bool) func() []string {
	t.Helper()
	var (
		mu     sync.Mutex
		models []string
	)
	previous := loadEncoding
	loadEncoding = func(model string) (encoder, error) {
		mu.Lock()
		defer mu.Unlock()
		models = append(models, model)
		if fail[model] {
			return nil, errors.New("unknown model")
		}
		return wordEncoder{}, nil
	}
	t.Cleanup(func() { loadEncoding = previous })
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), models...)
	}
}

func TestRegister_TokenizerLoadedOnceOnFirstBuild(t *testing.T) {
	loads := countLoads(t, nil)
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Empty(t, loads(), "registering loads nothing")

	for range 3 {
		_, err := reg.Build(AnswerTokenLengthFilterName, nil, operator.Deps{})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"gpt-3.5-turbo"}, loads())

	op, err := reg.Build(AnswerTokenLengthFilterName, operator.Params{"model": "gpt-4", "max_answer_token_length": 2}, operator.Deps{})
	require.NoError(t, err)
	_, err = reg.Build(AnswerTokenLengthFilterName, operator.Params{"model": "gpt-4"}, operator.Deps{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-3.5-turbo", "gpt-4"}, loads())

	s := newMemStorage(
		map[string]any{"generated_cot": "two words"},
		map[string]any{"generated_cot": "three words here"},
	)
	_, out := runOp(t, op, s)
	assert.Equal(t, []string{"two words"}, column(t, out, "generated_cot"))
	assert.Len(t, loads(), 2, "counting rows reuses the resolved encoding")
}

func TestRegister_TokenizerNotLoadedForOtherOperators(t *testing.T) {
	loads := countLoads(t, nil)
	reg, err := NewRegistry()
	require.NoError(t, err)

	_, err = reg.Build(NgramFilterName, operator.Params{"input_key": "text"}, operator.Deps{})
	require.NoError(t, err)
	_, err = reg.Build(AnswerFormatterFilterName, nil, operator.Deps{})
	require.NoError(t, err)
	assert.Empty(t, loads())
}

func TestTokenCounters_FailedLoadIsRemembered(t *testing.T) {
	loads := countLoads(t, map[string]bool{"mystery": true})
	counters := newTokenCounters()

	_, err := counters.resolve("mystery")
	require.Error(t, err)
	_, err = counters.resolve("mystery")
	assert.ErrorIs(t, err, errNoEncoding)
	assert.Equal(t, []string{"mystery"}, loads())

	assert.Equal(t, 3, counters.Count("gpt-4", "one two three"))
	assert.Equal(t, []string{"mystery", "gpt-4"}, loads())
}
