package match

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"entity-harmonizer/internal/common"
)

const (
	// IdenticalSentinel is the score forced onto a candidate whose name is
	// byte-for-byte equal to the raw name, so it sorts ahead of anything a
	// scorer can produce. Scores are clamped to MaxScore after sorting.
	IdenticalSentinel = 9999.0
	// DefaultThreshold is the automatic acceptance cutoff.
	DefaultThreshold = 80.0
	// DefaultMaxSuggestions is how many candidates are offered per name.
	DefaultMaxSuggestions = 5
)

// Candidate is a canonical entity ranked against a raw name.
type Candidate struct {
	// Name is the canonical name, or the synthetic institution label.
	Name string
	// Score is the similarity in the 0-100 range.
	Score float64
	// MatchedOn is the canonical name or alias that produced Score.
	MatchedOn string
	// Synthetic marks candidates that are not canonical entities.
	Synthetic bool
}

// String formats the candidate for prompts and logs.
func (c Candidate) String() string {
	if c.Synthetic {
		return c.Name
	}

	if c.MatchedOn != "" && c.MatchedOn != c.Name {
		return fmt.Sprintf("%s (%.0f, via %q)", c.Name, c.Score, c.MatchedOn)
	}

	return fmt.Sprintf("%s (%.0f)", c.Name, c.Score)
}

// CandidateList is a ranked list of candidates, best first.
type CandidateList []Candidate

// Len implements sort.Interface.
func (c CandidateList) Len() int { return len(c) }

// Swap implements sort.Interface.
func (c CandidateList) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

// Less implements sort.Interface.
// Sorts by score descending; used with sort.Stable so ties keep registry order.
func (c CandidateList) Less(i, j int) bool {
	return c[i].Score > c[j].Score
}

// Top returns the top n candidates.
func (c CandidateList) Top(n int) CandidateList {
	if n < 0 || n >= len(c) {
		return c
	}

	return c[:n]
}

// Best returns the best candidate, or nil if no candidates.
func (c CandidateList) Best() *Candidate {
	if _, ok := common.First(c); !ok {
		return nil
	}

	return &c[0]
}

// AboveThreshold returns candidates scoring at least threshold.
func (c CandidateList) AboveThreshold(threshold float64) CandidateList {
	var result CandidateList

	for _, cand := range c {
		if cand.Score >= threshold {
			result = append(result, cand)
		}
	}

	return result
}

// Without returns a new list without the candidates named in excluded.
// The receiver is left untouched.
func (c CandidateList) Without(excluded map[string]bool) CandidateList {
	result := make(CandidateList, 0, len(c))

	for _, cand := range c {
		if !excluded[cand.Name] {
			result = append(result, cand)
		}
	}

	return result
}

// Names returns the candidate names in order.
func (c CandidateList) Names() []string {
	names := make([]string, len(c))
	for i, cand := range c {
		names[i] = cand.Name
	}

	return names
}

// Ranker scores every canonical entity of an index against raw names.
// It is read-only after construction and safe for concurrent use.
type Ranker struct {
	entries   []Entry
	processed [][]string
	scorer    Scorer
	processor Processor
}

// NewRanker prepares a ranker; searchable names are processed once here.
func NewRanker(index *AliasIndex, scorer Scorer, processor Processor) *Ranker {
	entries := index.Entries()
	processed := make([][]string, len(entries))

	for i, e := range entries {
		processed[i] = make([]string, len(e.Names))
		for j, name := range e.Names {
			processed[i][j] = processor.Apply(name)
		}
	}

	return &Ranker{
		entries:   entries,
		processed: processed,
		scorer:    scorer,
		processor: processor,
	}
}

// Scorer returns the similarity function the ranker uses.
func (r *Ranker) Scorer() Scorer {
	return r.scorer
}

// Rank returns every canonical entity ranked against raw, best first.
// An entity scores the best of its canonical name and aliases. Equal
// scores keep registry order, so the ranking is deterministic.
func (r *Ranker) Rank(raw string) CandidateList {
	processedRaw := r.processor.Apply(raw)
	candidates := make(CandidateList, 0, len(r.entries))

	for i, e := range r.entries {
		best := Candidate{Name: e.Canonical, Score: -1}

		for j, name := range e.Names {
			var score float64
			if name == raw {
				score = IdenticalSentinel
			} else {
				score = r.scorer.Score(processedRaw, r.processed[i][j])
			}

			if score > best.Score {
				best.Score = score
				best.MatchedOn = name
			}
		}

		candidates = append(candidates, best)
	}

	sort.Stable(candidates)

	for i := range candidates {
		if candidates[i].Score > MaxScore {
			candidates[i].Score = MaxScore
		}
	}

	return candidates
}

// RankAll ranks every name using up to workers goroutines. The result is
// indexed like names and identical to calling Rank sequentially.
func (r *Ranker) RankAll(ctx context.Context, names []string, workers int) ([]CandidateList, error) {
	rankings := make([]CandidateList, len(names))

	if workers <= 1 {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			rankings[i] = r.Rank(name)
		}

		return rankings, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rankings[i] = r.Rank(name)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return rankings, nil
}
