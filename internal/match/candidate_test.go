package match

import (
	"context"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entity-harmonizer/internal/registry"
)

func newTestRanker(t *testing.T, entities []registry.Entity, scorer Scorer) *Ranker {
	t.Helper()

	idx, err := BuildIndex(entities)
	require.NoError(t, err)

	return NewRanker(idx, scorer, ProcessDefault)
}

func TestRank_AmbiguousKorea(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerPartialRatio)

	got := r.Rank("S. Korea")
	require.Len(t, got, 7, spew.Sdump(got))

	assert.Equal(t, "South Korea", got[0].Name, spew.Sdump(got))
	assert.InDelta(t, 100*12.0/13.0, got[0].Score, 1e-9)
	assert.Equal(t, "North Korea", got[1].Name)
}

func TestRank_ScoresAreMonotonic(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerWeightedRatio)

	for _, raw := range []string{"S. Korea", "Czech", "Soviet Union", "Britain", "Atlantis"} {
		got := r.Rank(raw)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[0].Score, got[i].Score, "%s: %s", raw, spew.Sdump(got))
			assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score, raw)
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerTokenSetRatio)

	first := r.Rank("Korea")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Rank("Korea"))
	}
}

func TestRank_TiesKeepRegistryOrder(t *testing.T) {
	entities := []registry.Entity{{Name: "Aa"}, {Name: "Bb"}, {Name: "Cc"}}
	r := newTestRanker(t, entities, ScorerRatio)

	got := r.Rank("xyz")
	assert.Equal(t, []string{"Aa", "Bb", "Cc"}, got.Names())

	for _, c := range got {
		assert.Zero(t, c.Score)
	}
}

func TestRank_IdenticalNameSortsFirst(t *testing.T) {
	entities := []registry.Entity{{Name: "Niger"}, {Name: "Nigeria"}}

	// Without the override both score 100 and Niger would win the tie.
	assert.InDelta(t, 100, PartialRatio("nigeria", "niger"), 1e-9)

	r := newTestRanker(t, entities, ScorerPartialRatio)
	got := r.Rank("Nigeria")

	assert.Equal(t, []string{"Nigeria", "Niger"}, got.Names())
	assert.Equal(t, MaxScore, got[0].Score, "sentinel must be clamped")
}

func TestRank_BestAliasWins(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerTokenSetRatio)

	got := r.Rank("Soviet Union")
	best := got.Best()
	require.NotNil(t, best)
	assert.Equal(t, "USSR (former)", best.Name)
	assert.Equal(t, "Union of Soviet Socialist Republics", best.MatchedOn)
	assert.InDelta(t, 100, best.Score, 1e-9)
}

func TestRankAll_MatchesSequential(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerPartialRatio)
	names := []string{"S. Korea", "Czech", "Atlantis", "Soviet Union", "Britain", "UK", "Frankreich"}

	parallel, err := r.RankAll(context.Background(), names, 4)
	require.NoError(t, err)

	sequential, err := r.RankAll(context.Background(), names, 1)
	require.NoError(t, err)

	require.Len(t, parallel, len(names))
	for i, name := range names {
		assert.Equal(t, r.Rank(name), parallel[i], name)
		assert.Equal(t, sequential[i], parallel[i], name)
	}
}

func TestRankAll_Cancelled(t *testing.T) {
	r := newTestRanker(t, koreaEntities(), ScorerPartialRatio)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RankAll(ctx, []string{"a", "b"}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCandidateList_Helpers(t *testing.T) {
	candidates := CandidateList{
		{Name: "A", Score: 90},
		{Name: "B", Score: 80},
		{Name: "C", Score: 70},
	}

	assert.Len(t, candidates.Top(2), 2)
	assert.Len(t, candidates.Top(10), 3)
	assert.Len(t, candidates.Top(-1), 3)
	assert.Equal(t, "A", candidates.Best().Name)
	assert.Nil(t, CandidateList{}.Best())
	assert.Equal(t, []string{"A", "B"}, candidates.AboveThreshold(80).Names())

	filtered := candidates.Without(map[string]bool{"A": true})
	assert.Equal(t, []string{"B", "C"}, filtered.Names())
	assert.Equal(t, []string{"A", "B", "C"}, candidates.Names(), "receiver untouched")
}

func TestCandidate_String(t *testing.T) {
	assert.Equal(t, "South Korea (92)", Candidate{Name: "South Korea", Score: 92.3, MatchedOn: "South Korea"}.String())
	assert.Equal(t, `USSR (100, via "Soviet Union")`, Candidate{Name: "USSR", Score: 100, MatchedOn: "Soviet Union"}.String())
	assert.Equal(t, "S. Korea (Eurostat)", Candidate{Name: "S. Korea (Eurostat)", Synthetic: true}.String())
}
