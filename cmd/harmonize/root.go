package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entity-harmonizer/internal/harmonize"
	"entity-harmonizer/internal/match"
	"entity-harmonizer/internal/registry"
)

// app carries the state shared by all commands once flags are parsed.
type app struct {
	settings settings
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "harmonize",
		Short: "Map free-text entity names onto canonical names",
		Long: `harmonize maps the entity names found in a dataset (country names,
historical states, regional aggregates) onto the canonical names of a
YAML entity registry.

Exact alias hits are mapped automatically. Every other name is shown
with ranked suggestions and resolved interactively, or automatically
above a similarity threshold.

Configuration is read from flags, HARMONIZE_* environment variables
and an optional YAML file (--config).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	addConfigFlags(root.PersistentFlags())

	root.AddCommand(a.runCmd())
	root.AddCommand(a.suggestCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.addAliasCmd())
	root.AddCommand(a.historyCmd())

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := newViper(cmd.Flags())
	if err != nil {
		return err
	}

	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	s, err := loadSettings(v, configFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(s.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a.settings = s
	a.logger = logger

	return nil
}

// loadRegistry reads and validates the configured registry. Validation
// warnings are logged; errors fail the command.
func (a *app) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.LoadFile(a.settings.Registry)
	if err != nil {
		return nil, err
	}

	diags := registry.Validate(reg)
	for _, w := range diags.Warnings {
		a.logger.Warn("registry warning", zap.String("diagnostic", w.String()))
	}

	if err := diags.Error(); err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", reg.Path, err)
	}

	return reg, nil
}

func (a *app) newSession(reg *registry.Registry, opts ...harmonize.Option) (*harmonize.Session, error) {
	opts = append([]harmonize.Option{harmonize.WithLogger(a.logger)}, opts...)
	return harmonize.New(reg, a.settings.Config, opts...)
}

func scorerNames() []string {
	return match.ScorerNames()
}
