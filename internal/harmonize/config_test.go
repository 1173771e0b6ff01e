package harmonize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"entity-harmonizer/internal/match"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, match.ScorerPartialRatio, cfg.Scorer())
	assert.Equal(t, match.ProcessDefault, cfg.ProcessorValue())
	assert.True(t, cfg.MatchIdentical)
	assert.True(t, cfg.ExcludeConsumed)
	assert.Equal(t, 5, cfg.MaxSuggestions)
	assert.InDelta(t, 80.0, cfg.AutoThreshold, 1e-9)
	assert.Equal(t, "i", cfg.SkipMarker)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown scorer", func(c *Config) { c.SimilarityFunction = "jaro" }, "jaro"},
		{"unknown processor", func(c *Config) { c.Processor = "stem" }, "stem"},
		{"threshold above range", func(c *Config) { c.AutoThreshold = 101 }, "auto_threshold"},
		{"negative threshold", func(c *Config) { c.AutoThreshold = -1 }, "auto_threshold"},
		{"no suggestions", func(c *Config) { c.MaxSuggestions = 0 }, "max_suggestions"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"no attempts", func(c *Config) { c.MaxAttempts = 0 }, "max_attempts"},
		{"empty skip marker", func(c *Config) { c.SkipMarker = "" }, "skip_marker"},
		{"custom marker as skip", func(c *Config) { c.SkipMarker = CustomMarker }, "skip_marker"},
		{"digit skip marker", func(c *Config) { c.SkipMarker = "0" }, "skip_marker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityFunction = "jaro"
	cfg.Workers = -2

	err := cfg.Validate()
	require.ErrorIs(t, err, match.ErrUnknownScorer)
	assert.Contains(t, err.Error(), "workers")
}

func TestConfigValidate_ScorerNamesAreCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityFunction = " Token_Set_Ratio "

	require.NoError(t, cfg.Validate())
	assert.Equal(t, match.ScorerTokenSetRatio, cfg.Scorer())
}
