package harmonize

import (
	"errors"
	"fmt"
	"strings"

	"entity-harmonizer/internal/common"
	"entity-harmonizer/internal/match"
)

// ErrInvalidConfig wraps every configuration problem found by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the options of a harmonization session.
type Config struct {
	// SimilarityFunction names the scorer used to rank candidates.
	SimilarityFunction string `yaml:"similarity_function" mapstructure:"similarity_function"`
	// Processor is "default" or "none".
	Processor string `yaml:"processor" mapstructure:"processor"`
	// MatchIdentical lets exact alias hits bypass review.
	MatchIdentical bool `yaml:"match_identical" mapstructure:"match_identical"`
	// MaxSuggestions is how many candidates are shown per ambiguous name.
	MaxSuggestions int `yaml:"max_suggestions" mapstructure:"max_suggestions"`
	// AutoThreshold is the automatic acceptance cutoff (0-100).
	AutoThreshold float64 `yaml:"auto_threshold" mapstructure:"auto_threshold"`
	// Institution, when set, adds a "<name> (<institution>)" candidate.
	Institution string `yaml:"institution" mapstructure:"institution"`
	// ExcludeConsumed hides targets already chosen earlier in the session.
	ExcludeConsumed bool `yaml:"exclude_consumed" mapstructure:"exclude_consumed"`
	// StrictAliases turns alias collisions into a configuration error.
	StrictAliases bool `yaml:"strict_aliases" mapstructure:"strict_aliases"`
	// SkipMarker is the interactive input that skips a name.
	SkipMarker string `yaml:"skip_marker" mapstructure:"skip_marker"`
	// Workers bounds the goroutines used to precompute rankings.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// LearnAliases persists resolved names as aliases of their target.
	LearnAliases bool `yaml:"learn_aliases" mapstructure:"learn_aliases"`
	// MaxAttempts bounds how often a provider is re-asked after an invalid decision.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityFunction: match.ScorerPartialRatio.String(),
		Processor:          match.ProcessDefault.String(),
		MatchIdentical:     true,
		MaxSuggestions:     match.DefaultMaxSuggestions,
		AutoThreshold:      match.DefaultThreshold,
		ExcludeConsumed:    true,
		SkipMarker:         "i",
		Workers:            1,
		MaxAttempts:        3,
	}
}

// Validate reports every invalid option, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error

	if _, err := match.ParseScorer(c.SimilarityFunction); err != nil {
		errs = append(errs, err)
	}

	if _, err := match.ParseProcessor(c.Processor); err != nil {
		errs = append(errs, err)
	}

	if !common.IsInRange(0, c.AutoThreshold, match.MaxScore) {
		errs = append(errs, fmt.Errorf("auto_threshold %v outside [0, 100]", c.AutoThreshold))
	}

	if c.MaxSuggestions < 1 {
		errs = append(errs, fmt.Errorf("max_suggestions must be at least 1, got %d", c.MaxSuggestions))
	}

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}

	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts))
	}

	marker := strings.TrimSpace(c.SkipMarker)
	switch {
	case marker == "":
		errs = append(errs, errors.New("skip_marker must not be empty"))
	case marker == CustomMarker || marker == MoreMarker || isDigits(marker):
		errs = append(errs, fmt.Errorf("skip_marker %q clashes with another prompt command", c.SkipMarker))
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Scorer returns the configured scorer. Call Validate first.
func (c Config) Scorer() match.Scorer {
	s, _ := match.ParseScorer(c.SimilarityFunction)
	return s
}

// ProcessorValue returns the configured processor. Call Validate first.
func (c Config) ProcessorValue() match.Processor {
	p, _ := match.ParseProcessor(c.Processor)
	return p
}

// Prompt commands reserved next to the skip marker.
const (
	CustomMarker = "c"
	MoreMarker   = "more"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
