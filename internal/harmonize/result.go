package harmonize

import (
	"time"

	"entity-harmonizer/internal/diagnostic"
	"entity-harmonizer/internal/match"
)

// Item is the state record of one distinct raw name.
type Item struct {
	// Name is the raw name as found in the dataset.
	Name string
	// State is the item's position in the state machine.
	State State
	// Target is the canonical name or custom text it maps to.
	Target string
	// Canonical is false for custom targets outside the registry.
	Canonical bool
	// Score is the similarity of the accepted candidate (100 for alias hits).
	Score float64
	// Source records who produced the mapping.
	Source Source
	// Candidates is the full cached ranking for ambiguous names.
	Candidates match.CandidateList

	// learnable is set for resolutions that would teach the registry a new alias.
	learnable bool
}

// Result is the outcome of a session. It stays valid, and partial, when
// the session was interrupted.
type Result struct {
	SessionID   string
	Scorer      string
	Started     time.Time
	Finished    time.Time
	Interrupted bool
	// Items follows the order of the distinct input names.
	Items       []*Item
	Diagnostics diagnostic.Diagnostics
}

// Mapping returns raw name -> target for every AutoMatched and Resolved item.
func (r *Result) Mapping() map[string]string {
	m := make(map[string]string)

	for _, it := range r.Items {
		if it.State.Terminal() && it.State != Skipped {
			m[it.Name] = it.Target
		}
	}

	return m
}

// Item returns the record of a raw name, or nil.
func (r *Result) Item(name string) *Item {
	for _, it := range r.Items {
		if it.Name == name {
			return it
		}
	}

	return nil
}

// InState returns the items currently in state s, in input order.
func (r *Result) InState(s State) []*Item {
	var out []*Item

	for _, it := range r.Items {
		if it.State == s {
			out = append(out, it)
		}
	}

	return out
}

// Unresolved returns the ambiguous items no decision was applied to.
func (r *Result) Unresolved() []*Item {
	var out []*Item

	for _, it := range r.Items {
		if !it.State.Terminal() {
			out = append(out, it)
		}
	}

	return out
}

// Counts tallies items per state.
func (r *Result) Counts() map[State]int {
	counts := make(map[State]int)
	for _, it := range r.Items {
		counts[it.State]++
	}

	return counts
}

// LearnedAliases returns canonical name -> raw names for resolutions onto
// canonical entities whose raw name is not yet a known alias. Custom
// targets outside the registry are never included.
func (r *Result) LearnedAliases() map[string][]string {
	learned := make(map[string][]string)

	for _, it := range r.Items {
		if it.State == Resolved && it.learnable {
			learned[it.Target] = append(learned[it.Target], it.Name)
		}
	}

	return learned
}
