package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"entity-harmonizer/internal/harmonize"
)

// settings is everything a command can be configured with. Values come
// from flags, HARMONIZE_* environment variables, an optional config file
// and the defaults, in that order.
type settings struct {
	harmonize.Config `mapstructure:",squash"`

	Registry  string `mapstructure:"registry"`
	Database  string `mapstructure:"database"`
	OutputDir string `mapstructure:"output_dir"`
	Verbose   bool   `mapstructure:"verbose"`
}

// flagKeys maps flag names onto configuration keys.
var flagKeys = map[string]string{
	"registry":         "registry",
	"database":         "database",
	"output-dir":       "output_dir",
	"verbose":          "verbose",
	"similarity":       "similarity_function",
	"processor":        "processor",
	"match-identical":  "match_identical",
	"max-suggestions":  "max_suggestions",
	"threshold":        "auto_threshold",
	"institution":      "institution",
	"exclude-consumed": "exclude_consumed",
	"strict-aliases":   "strict_aliases",
	"skip-marker":      "skip_marker",
	"workers":          "workers",
	"learn-aliases":    "learn_aliases",
	"max-attempts":     "max_attempts",
}

func addConfigFlags(fs *pflag.FlagSet) {
	def := harmonize.DefaultConfig()

	fs.String("config", "", "YAML config file")
	fs.String("registry", "entities.yaml", "canonical entity registry")
	fs.String("database", "", "SQLite history database (disabled when empty)")
	fs.String("output-dir", ".", "directory for mapping files")
	fs.BoolP("verbose", "v", false, "debug logging")

	fs.String("similarity", def.SimilarityFunction, "similarity function: "+strings.Join(scorerNames(), ", "))
	fs.String("processor", def.Processor, "string processor: default or none")
	fs.Bool("match-identical", def.MatchIdentical, "auto-match exact alias hits")
	fs.Int("max-suggestions", def.MaxSuggestions, "candidates shown per page")
	fs.Float64("threshold", def.AutoThreshold, "automatic acceptance threshold (0-100)")
	fs.String("institution", def.Institution, "offer \"<name> (<institution>)\" as a candidate")
	fs.Bool("exclude-consumed", def.ExcludeConsumed, "hide targets already chosen in the session")
	fs.Bool("strict-aliases", def.StrictAliases, "fail on alias collisions")
	fs.String("skip-marker", def.SkipMarker, "input that skips a name")
	fs.Int("workers", def.Workers, "goroutines used to rank candidates")
	fs.Bool("learn-aliases", def.LearnAliases, "write resolved names back to the registry as aliases")
	fs.Int("max-attempts", def.MaxAttempts, "invalid answers accepted per name")
}

// newViper wires defaults, environment and flags into a fresh viper instance.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	def := harmonize.DefaultConfig()
	defaults := map[string]any{
		"registry":            "entities.yaml",
		"database":            "",
		"output_dir":          ".",
		"verbose":             false,
		"similarity_function": def.SimilarityFunction,
		"processor":           def.Processor,
		"match_identical":     def.MatchIdentical,
		"max_suggestions":     def.MaxSuggestions,
		"auto_threshold":      def.AutoThreshold,
		"institution":         def.Institution,
		"exclude_consumed":    def.ExcludeConsumed,
		"strict_aliases":      def.StrictAliases,
		"skip_marker":         def.SkipMarker,
		"workers":             def.Workers,
		"learn_aliases":       def.LearnAliases,
		"max_attempts":        def.MaxAttempts,
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("HARMONIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	return v, nil
}

// loadSettings reads the optional config file and decodes the result.
func loadSettings(v *viper.Viper, configFile string) (settings, error) {
	var s settings

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return s, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := s.Config.Validate(); err != nil {
		return s, err
	}

	if s.Registry == "" {
		return s, errors.New("registry path must not be empty")
	}

	return s, nil
}

// newLogger writes to stderr: human readable debug output when verbose,
// warnings and errors only otherwise.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
