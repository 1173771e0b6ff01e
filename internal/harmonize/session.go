package harmonize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"entity-harmonizer/internal/common"
	"entity-harmonizer/internal/match"
	"entity-harmonizer/internal/registry"
)

// Session resolves raw names against one alias index with a fixed
// configuration. A Session may be Run several times; every Run starts
// from a clean resolution state.
type Session struct {
	index    *match.AliasIndex
	ranker   *match.Ranker
	cfg      Config
	logger   *zap.Logger
	previous map[string]string
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPreviousMapping reuses decisions from an earlier run: names found in
// previous are resolved to their recorded target without asking.
func WithPreviousMapping(previous map[string]string) Option {
	return func(s *Session) {
		s.previous = previous
	}
}

// WithClock overrides time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession validates cfg and prepares a ranker over index.
func NewSession(index *match.AliasIndex, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if index == nil {
		return nil, fmt.Errorf("%w: alias index is required", ErrInvalidConfig)
	}

	s := &Session{
		index:  index,
		ranker: match.NewRanker(index, cfg.Scorer(), cfg.ProcessorValue()),
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// New builds the alias index of reg and a session over it. Alias
// collisions fail here when cfg.StrictAliases is set.
func New(reg *registry.Registry, cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	index, err := match.BuildIndex(reg.Entities, match.WithStrictAliases(cfg.StrictAliases))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return NewSession(index, cfg, opts...)
}

// Index returns the alias index the session matches against.
func (s *Session) Index() *match.AliasIndex {
	return s.index
}

// Ranker returns the session's candidate ranker.
func (s *Session) Ranker() *match.Ranker {
	return s.ranker
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Run harmonizes names. Duplicates are dropped, keeping the first
// occurrence. Ambiguous names are resolved one at a time, in input order,
// through provider.
//
// Cancelling ctx or a provider returning ErrInterrupted stops the loop;
// the partial result is returned with Interrupted set and a nil error.
// Any other provider error is returned together with the partial result.
func (s *Session) Run(ctx context.Context, names []string, provider DecisionProvider) (*Result, error) {
	res := &Result{
		SessionID: uuid.NewString(),
		Scorer:    s.ranker.Scorer().String(),
		Started:   s.now(),
	}

	res.Diagnostics.Merge(s.index.Diagnostics())

	awaiting := s.split(res, common.Unique(names))

	log := s.logger.With(zap.String("session", res.SessionID))
	log.Info("split raw names",
		zap.Int("names", len(res.Items)),
		zap.Int("auto_matched", len(res.InState(AutoMatched))),
		zap.Int("ambiguous", len(awaiting)))

	err := s.resolve(ctx, log, res, awaiting, provider)

	for _, it := range res.Unresolved() {
		res.Diagnostics.AddWarning("unresolved_name", "no decision recorded", "", it.Name,
			it.Candidates.Top(3).Names()...)
	}

	res.Finished = s.now()

	counts := res.Counts()
	log.Info("session finished",
		zap.Bool("interrupted", res.Interrupted),
		zap.Int("auto_matched", counts[AutoMatched]),
		zap.Int("resolved", counts[Resolved]),
		zap.Int("skipped", counts[Skipped]),
		zap.Int("unresolved", counts[AwaitingResolution]))

	return res, err
}

// split moves every name out of Pending: alias hits and reused decisions
// become terminal, the rest is returned for resolution.
func (s *Session) split(res *Result, names []string) []*Item {
	var awaiting []*Item

	for _, name := range names {
		it := &Item{Name: name, State: Pending}
		res.Items = append(res.Items, it)

		if target, ok := s.previous[name]; ok && target != "" {
			it.State = Resolved
			it.Target = target
			it.Canonical = s.index.IsCanonical(target)
			it.Source = SourcePrevious

			continue
		}

		if s.cfg.MatchIdentical && s.index.Contains(name) {
			// Contains was checked, so Lookup cannot fail.
			canonical, _ := s.index.Lookup(name)
			it.State = AutoMatched
			it.Target = canonical
			it.Canonical = true
			it.Score = match.MaxScore
			it.Source = SourceAlias

			continue
		}

		awaiting = append(awaiting, it)
	}

	return awaiting
}

func (s *Session) resolve(
	ctx context.Context,
	log *zap.Logger,
	res *Result,
	awaiting []*Item,
	provider DecisionProvider,
) error {
	rawNames := make([]string, len(awaiting))
	for i, it := range awaiting {
		rawNames[i] = it.Name
	}

	rankings, err := s.ranker.RankAll(ctx, rawNames, s.cfg.Workers)
	if err != nil {
		for _, it := range awaiting {
			it.State = AwaitingResolution
		}

		if isInterruption(ctx, err) {
			res.Interrupted = true
			return nil
		}

		return fmt.Errorf("ranking candidates: %w", err)
	}

	for i, it := range awaiting {
		it.State = AwaitingResolution
		it.Candidates = rankings[i]
	}

	consumed := make(map[string]bool)

	// Previously reused targets count as session decisions.
	for _, it := range res.Items {
		if it.Source == SourcePrevious {
			consumed[it.Target] = true
		}
	}

	for pos, it := range awaiting {
		if ctx.Err() != nil {
			res.Interrupted = true
			return nil
		}

		prompt := s.prompt(it, pos+1, len(awaiting), consumed)

		for attempt := 1; ; attempt++ {
			d, err := provider.Decide(ctx, prompt)
			if err != nil {
				if isInterruption(ctx, err) {
					log.Info("session interrupted", zap.String("name", it.Name))
					res.Interrupted = true

					return nil
				}

				return fmt.Errorf("deciding %q: %w", it.Name, err)
			}

			applyErr := s.apply(res, it, prompt, d, consumed)
			if applyErr == nil {
				log.Debug("decision applied",
					zap.String("name", it.Name),
					zap.Stringer("decision", d),
					zap.Stringer("state", it.State),
					zap.String("target", it.Target))

				break
			}

			log.Warn("decision rejected",
				zap.String("name", it.Name),
				zap.Stringer("decision", d),
				zap.Int("attempt", attempt),
				zap.Error(applyErr))

			if attempt >= s.cfg.MaxAttempts {
				res.Diagnostics.AddWarning("invalid_decision",
					fmt.Sprintf("gave up after %d invalid decisions: %v", attempt, applyErr), "", it.Name)

				break
			}

			prompt.Rejected = applyErr
		}
	}

	return nil
}

// prompt builds the candidate list offered for it. The cached ranking is
// filtered, never modified.
func (s *Session) prompt(it *Item, position, total int, consumed map[string]bool) Prompt {
	offered := it.Candidates
	if s.cfg.ExcludeConsumed {
		offered = offered.Without(consumed)
	}

	if s.cfg.Institution != "" {
		synthetic := match.Candidate{
			Name:      fmt.Sprintf("%s (%s)", it.Name, s.cfg.Institution),
			Synthetic: true,
		}
		offered = append(match.CandidateList{synthetic}, offered...)
	}

	return Prompt{
		Name:       it.Name,
		Position:   position,
		Total:      total,
		Candidates: offered,
		PageSize:   s.cfg.MaxSuggestions,
	}
}

// apply records decision d for it, or returns an ErrInvalidDecision.
func (s *Session) apply(res *Result, it *Item, p Prompt, d Decision, consumed map[string]bool) error {
	source := d.Source
	if source == "" {
		source = SourceOperator
	}

	switch d.Kind {
	case KindAcceptTop:
		best := p.Ranked().Best()
		if best == nil {
			return fmt.Errorf("%w: no candidates left for %q", ErrInvalidDecision, it.Name)
		}

		s.accept(it, *best, source, consumed)

	case KindAcceptCandidate:
		if d.Index < 0 || d.Index >= len(p.Candidates) {
			return fmt.Errorf("%w: candidate %d out of range [0, %d)", ErrInvalidDecision, d.Index, len(p.Candidates))
		}

		s.accept(it, p.Candidates[d.Index], source, consumed)

	case KindCustom:
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return fmt.Errorf("%w: empty custom name", ErrInvalidDecision)
		}

		if canonical, err := s.index.Lookup(text); err == nil {
			cand := match.Candidate{Name: canonical, MatchedOn: text}
			for _, c := range it.Candidates {
				if c.Name == canonical {
					cand.Score = c.Score
					break
				}
			}

			s.accept(it, cand, source, consumed)

			break
		}

		s.accept(it, match.Candidate{Name: text, Synthetic: true}, source, consumed)
		res.Diagnostics.AddInfo("non_canonical_target",
			fmt.Sprintf("mapped to %q, which is not a canonical name", text), "", it.Name)

	case KindSkip:
		it.State = Skipped
		it.Source = source

	case KindDefer:
		// Stays AwaitingResolution and is reported as unresolved.

	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidDecision, d.Kind)
	}

	return nil
}

func (s *Session) accept(it *Item, c match.Candidate, source Source, consumed map[string]bool) {
	it.State = Resolved
	it.Target = c.Name
	it.Canonical = !c.Synthetic
	it.Score = c.Score
	it.Source = source
	it.learnable = it.Canonical && !s.index.Contains(it.Name)
	consumed[c.Name] = true
}

func isInterruption(ctx context.Context, err error) bool {
	return errors.Is(err, ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}
