package match

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownScorer is returned when a configuration names a similarity
// function outside the supported set.
var ErrUnknownScorer = errors.New("unknown similarity function")

// Scorer is the closed set of similarity functions a session can rank with.
type Scorer int

const (
	ScorerTokenSetRatio Scorer = iota
	ScorerTokenSortRatio
	ScorerPartialRatio
	ScorerPartialTokenSetRatio
	ScorerPartialTokenSortRatio
	ScorerRatio
	ScorerQuickRatio
	ScorerWeightedRatio
	ScorerLevenshtein
)

var scorerNames = [...]string{
	ScorerTokenSetRatio:         "token_set_ratio",
	ScorerTokenSortRatio:        "token_sort_ratio",
	ScorerPartialRatio:          "partial_ratio",
	ScorerPartialTokenSetRatio:  "partial_token_set_ratio",
	ScorerPartialTokenSortRatio: "partial_token_sort_ratio",
	ScorerRatio:                 "ratio",
	ScorerQuickRatio:            "quick_ratio",
	ScorerWeightedRatio:         "weighted_ratio",
	ScorerLevenshtein:           "levenshtein",
}

var scorerFuncs = [...]func(a, b string) float64{
	ScorerTokenSetRatio:         TokenSetRatio,
	ScorerTokenSortRatio:        TokenSortRatio,
	ScorerPartialRatio:          PartialRatio,
	ScorerPartialTokenSetRatio:  PartialTokenSetRatio,
	ScorerPartialTokenSortRatio: PartialTokenSortRatio,
	ScorerRatio:                 Ratio,
	ScorerQuickRatio:            QuickRatio,
	ScorerWeightedRatio:         WeightedRatio,
	ScorerLevenshtein:           LevenshteinRatio,
}

// ParseScorer resolves a configuration name such as "partial_ratio".
// Matching is case-insensitive.
func ParseScorer(name string) (Scorer, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, n := range scorerNames {
		if n == want {
			return Scorer(i), nil
		}
	}

	return 0, fmt.Errorf("%w %q (expected one of %s)",
		ErrUnknownScorer, name, strings.Join(ScorerNames(), ", "))
}

// ScorerNames lists the configuration names of all scorers.
func ScorerNames() []string {
	return append([]string(nil), scorerNames[:]...)
}

// String returns the configuration name of the scorer.
func (s Scorer) String() string {
	if !s.valid() {
		return fmt.Sprintf("Scorer(%d)", int(s))
	}

	return scorerNames[s]
}

// Score compares two already processed strings.
func (s Scorer) Score(a, b string) float64 {
	if !s.valid() {
		return 0
	}

	return scorerFuncs[s](a, b)
}

func (s Scorer) valid() bool {
	return s >= 0 && int(s) < len(scorerNames)
}
