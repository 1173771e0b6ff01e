package harmonize

import (
	"context"
	"errors"
	"fmt"

	"entity-harmonizer/internal/match"
)

var (
	// ErrInterrupted is returned by a provider when the operator aborts.
	// The session stops and returns its partial result without error.
	ErrInterrupted = errors.New("harmonization interrupted")
	// ErrInvalidDecision marks a decision that cannot be applied to its prompt.
	ErrInvalidDecision = errors.New("invalid decision")
)

// Decision is the outcome chosen for one ambiguous name.
type Decision struct {
	Kind DecisionKind
	// Index into Prompt.Candidates for KindAcceptCandidate.
	Index int
	// Text is the custom name for KindCustom.
	Text string
	// Source records who decided; the session defaults it to SourceOperator.
	Source Source
}

// AcceptTop accepts the best ranked candidate.
func AcceptTop() Decision { return Decision{Kind: KindAcceptTop} }

// AcceptCandidate accepts Prompt.Candidates[index].
func AcceptCandidate(index int) Decision { return Decision{Kind: KindAcceptCandidate, Index: index} }

// Custom maps the name onto text, canonical or not.
func Custom(text string) Decision { return Decision{Kind: KindCustom, Text: text} }

// Skip ignores the name; it gets no mapping entry.
func Skip() Decision { return Decision{Kind: KindSkip} }

// Defer leaves the name unresolved.
func Defer() Decision { return Decision{Kind: KindDefer} }

// String formats the decision for logs.
func (d Decision) String() string {
	switch d.Kind {
	case KindAcceptCandidate:
		return fmt.Sprintf("%s(%d)", d.Kind, d.Index)
	case KindCustom:
		return fmt.Sprintf("%s(%q)", d.Kind, d.Text)
	default:
		return d.Kind.String()
	}
}

// Prompt is what a provider sees for one ambiguous name.
type Prompt struct {
	// Name is the raw name to resolve.
	Name string
	// Position is the 1-based position among the ambiguous names; Total their count.
	Position int
	Total    int
	// Candidates is the remaining ranking, best first. When an institution
	// is configured its synthetic candidate comes first.
	Candidates match.CandidateList
	// PageSize is how many ranked candidates to show at once.
	PageSize int
	// Rejected explains why the previous decision for this name was refused.
	Rejected error
}

// Ranked returns the candidates without the synthetic institution entry.
func (p Prompt) Ranked() match.CandidateList {
	if len(p.Candidates) > 0 && p.Candidates[0].Synthetic {
		return p.Candidates[1:]
	}

	return p.Candidates
}

// HasSynthetic reports whether Candidates starts with the institution entry.
func (p Prompt) HasSynthetic() bool {
	return len(p.Candidates) > 0 && p.Candidates[0].Synthetic
}

// DecisionProvider chooses how an ambiguous name is resolved.
type DecisionProvider interface {
	Decide(ctx context.Context, p Prompt) (Decision, error)
}

// DecisionFunc adapts a function to DecisionProvider.
type DecisionFunc func(ctx context.Context, p Prompt) (Decision, error)

// Decide implements DecisionProvider.
func (f DecisionFunc) Decide(ctx context.Context, p Prompt) (Decision, error) {
	return f(ctx, p)
}

// Automatic accepts the top ranked candidate when its score reaches
// Threshold and defers otherwise. It never guesses below the threshold.
type Automatic struct {
	Threshold float64
}

// Decide implements DecisionProvider.
func (a Automatic) Decide(_ context.Context, p Prompt) (Decision, error) {
	if p.Ranked().AboveThreshold(a.Threshold).Best() == nil {
		return Defer(), nil
	}

	d := AcceptTop()
	d.Source = SourceAuto

	return d, nil
}

// Chain asks each provider in order and returns the first decision that is
// not a Defer.
func Chain(providers ...DecisionProvider) DecisionProvider {
	return chain(providers)
}

type chain []DecisionProvider

func (c chain) Decide(ctx context.Context, p Prompt) (Decision, error) {
	for _, provider := range c {
		d, err := provider.Decide(ctx, p)
		if err != nil {
			return Decision{}, err
		}

		if d.Kind != KindDefer {
			return d, nil
		}
	}

	return Defer(), nil
}
