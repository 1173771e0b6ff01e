package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScorer(t *testing.T) {
	for _, name := range []string{
		"token_set_ratio", "token_sort_ratio", "partial_ratio",
		"partial_token_set_ratio", "partial_token_sort_ratio",
		"ratio", "quick_ratio", "weighted_ratio", "levenshtein",
	} {
		s, err := ParseScorer(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, s.String())
	}

	s, err := ParseScorer(" Partial_Ratio ")
	require.NoError(t, err)
	assert.Equal(t, ScorerPartialRatio, s)

	_, err = ParseScorer("jaro_winkler")
	require.ErrorIs(t, err, ErrUnknownScorer)
	assert.Contains(t, err.Error(), "partial_ratio")
}

func TestScorerDispatch(t *testing.T) {
	assert.InDelta(t, 100, ScorerPartialRatio.Score("czech", "czechia"), 1e-9)
	assert.InDelta(t, Ratio("czech", "czechia"), ScorerRatio.Score("czech", "czechia"), 1e-9)
	assert.Zero(t, Scorer(99).Score("a", "a"))
	assert.Equal(t, "Scorer(99)", Scorer(99).String())
	assert.Len(t, ScorerNames(), 9)
}
