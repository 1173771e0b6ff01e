package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"entity-harmonizer/internal/dataset"
	"entity-harmonizer/internal/harmonize"
	"entity-harmonizer/internal/match"
	"entity-harmonizer/internal/prompt"
	"entity-harmonizer/internal/registry"
	"entity-harmonizer/internal/store"
)

// persistTimeout bounds writes made after the session ended, which run
// even when the session was interrupted.
const persistTimeout = 30 * time.Second

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func (a *app) runCmd() *cobra.Command {
	var (
		column      string
		name        string
		auto        bool
		autoThenAsk bool
		reuse       bool
		review      string
	)

	cmd := &cobra.Command{
		Use:   "run DATASET",
		Short: "Harmonize the entity names of a dataset",
		Long: `Harmonize the entity names of a CSV, TSV or plain text (one name per
line) file and write <output-dir>/<dataset>.countries.json.

Example:
  harmonize run gdp.csv --column country
  harmonize run gdp.csv --column country --auto --threshold 90
  harmonize run names.txt --auto-then-ask --reuse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if auto && autoThenAsk {
				return errors.New("--auto and --auto-then-ask are mutually exclusive")
			}

			if name == "" {
				name = datasetName(args[0])
			}

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			names, err := dataset.ReadFile(args[0], column)
			if err != nil {
				return err
			}

			outPath := store.MappingPath(a.settings.OutputDir, name)

			var opts []harmonize.Option

			if reuse {
				previous, err := a.previousMapping(cmd, name, outPath)
				if err != nil {
					return err
				}

				opts = append(opts, harmonize.WithPreviousMapping(previous))
			}

			session, err := a.newSession(reg, opts...)
			if err != nil {
				return err
			}

			var provider harmonize.DecisionProvider

			automatic := harmonize.Automatic{Threshold: a.settings.AutoThreshold}
			console := prompt.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout(),
				prompt.WithSkipMarker(a.settings.SkipMarker), prompt.WithLogger(a.logger))

			switch {
			case auto:
				provider = automatic
			case autoThenAsk:
				provider = harmonize.Chain(automatic, console)
			default:
				provider = console
			}

			res, err := session.Run(cmd.Context(), names, provider)
			if res == nil {
				return err
			}

			// A partial result is still worth keeping.
			if writeErr := a.saveResult(cmd, name, outPath, res); writeErr != nil {
				return errors.Join(err, writeErr)
			}

			if review != "" {
				if reviewErr := writeReview(review, res, a.settings.MaxSuggestions); reviewErr != nil {
					return errors.Join(err, reviewErr)
				}
			}

			printSummary(cmd.OutOrStdout(), res, outPath)

			return err
		},
	}

	cmd.Flags().StringVarP(&column, "column", "c", "", "column holding entity names (first column when empty)")
	cmd.Flags().StringVar(&name, "name", "", "dataset name used for output files (file name by default)")
	cmd.Flags().BoolVar(&auto, "auto", false, "accept the best candidate above the threshold, never ask")
	cmd.Flags().BoolVar(&autoThenAsk, "auto-then-ask", false, "accept above the threshold, ask for the rest")
	cmd.Flags().BoolVar(&reuse, "reuse", false, "reuse decisions from the previous mapping of the dataset")
	cmd.Flags().StringVar(&review, "review", "", "write a YAML review of the session to this file")

	return cmd
}

// previousMapping prefers the mapping file and falls back to the history
// database. A dataset never harmonized before has no previous mapping.
func (a *app) previousMapping(cmd *cobra.Command, name, outPath string) (map[string]string, error) {
	previous, err := store.ReadJSON(outPath)
	if err == nil {
		a.logger.Info("reusing mapping file", zap.String("path", outPath), zap.Int("names", len(previous)))
		return previous, nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if a.settings.Database == "" {
		return nil, nil
	}

	db, err := store.OpenSQLite(cmd.Context(), a.settings.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	previous, err = db.LatestMapping(cmd.Context(), name)
	if errors.Is(err, store.ErrNoSession) {
		return nil, nil
	}

	return previous, err
}

// persistContext keeps the values of the command context but not its
// cancellation: an interrupted session is still recorded.
func persistContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(cmd.Context()), persistTimeout)
}

func (a *app) saveResult(cmd *cobra.Command, name, outPath string, res *harmonize.Result) error {
	if err := store.WriteJSON(outPath, res.Mapping()); err != nil {
		return err
	}

	ctx, cancel := persistContext(cmd)
	defer cancel()

	var errs []error

	if a.settings.Database != "" {
		if err := a.record(ctx, name, res); err != nil {
			errs = append(errs, err)
		}
	}

	if a.settings.LearnAliases {
		learned := res.LearnedAliases()
		if len(learned) > 0 {
			added, err := registry.AddAliases(a.settings.Registry, learned)
			if err != nil {
				// The mapping is already written; the registry can be fixed later.
				a.logger.Warn("failed to persist learned aliases", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "learned %d aliases into %s\n", added, a.settings.Registry)
		}
	}

	return errors.Join(errs...)
}

func (a *app) record(ctx context.Context, name string, res *harmonize.Result) error {
	db, err := store.OpenSQLite(ctx, a.settings.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.SaveResult(ctx, name, res)
}

func writeReview(path string, res *harmonize.Result, limit int) error {
	data, err := harmonize.ExportReviewYAML(res, limit)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write review %s: %w", path, err)
	}

	return nil
}

func printSummary(w io.Writer, res *harmonize.Result, outPath string) {
	counts := res.Counts()

	fmt.Fprintln(w, headerStyle.Render("Harmonization summary"))
	fmt.Fprintf(w, "  auto-matched: %d\n", counts[harmonize.AutoMatched])
	fmt.Fprintf(w, "  resolved:     %d\n", counts[harmonize.Resolved])
	fmt.Fprintf(w, "  skipped:      %d\n", counts[harmonize.Skipped])
	fmt.Fprintf(w, "  unresolved:   %d\n", counts[harmonize.AwaitingResolution])

	if res.Interrupted {
		fmt.Fprintln(w, warnStyle.Render("  session interrupted, mapping is partial"))
	}

	for _, d := range res.Diagnostics.Warnings {
		fmt.Fprintln(w, warnStyle.Render("  "+d.String()))
	}

	for _, d := range res.Diagnostics.Infos {
		fmt.Fprintln(w, "  "+d.String())
	}

	fmt.Fprintf(w, "mapping written to %s\n", outPath)
}

func (a *app) suggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest NAME...",
		Short: "Show ranked candidates for names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}

			session, err := a.newSession(reg)
			if err != nil {
				return err
			}

			if limit <= 0 {
				limit = a.settings.MaxSuggestions
			}

			w := cmd.OutOrStdout()

			for _, name := range args {
				fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%q", name)))

				if canonical, err := session.Index().Lookup(name); err == nil {
					fmt.Fprintf(w, "  alias of %s\n", canonical)
					continue
				}

				for i, c := range session.Ranker().Rank(name).Top(limit) {
					fmt.Fprintf(w, "  %2d) %s\n", i+1, c)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "candidates per name (max-suggestions by default)")

	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the registry and report alias conflicts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()

			reg, err := registry.LoadFile(a.settings.Registry)
			if err != nil {
				return err
			}

			diags := registry.Validate(reg)

			index, err := match.BuildIndex(reg.Entities, match.WithStrictAliases(a.settings.StrictAliases))
			if err != nil {
				diags.AddError("alias_conflict", err.Error(), "", "")
			} else {
				diags.Merge(index.Diagnostics())
			}

			for _, d := range diags.Errors {
				fmt.Fprintln(w, errStyle.Render("error: "+d.String()))
			}

			for _, d := range diags.Warnings {
				fmt.Fprintln(w, warnStyle.Render("warning: "+d.String()))
			}

			for _, d := range diags.Infos {
				fmt.Fprintln(w, "info: "+d.String())
			}

			if err := diags.Error(); err != nil {
				return fmt.Errorf("registry %s is invalid", reg.Path)
			}

			fmt.Fprintf(w, "%s: %d entities, %d names and aliases\n", reg.Path, len(index.Canonical()), index.Len())

			return nil
		},
	}
}

func (a *app) addAliasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-alias CANONICAL ALIAS...",
		Short: "Append aliases to a registry entity",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := registry.AddAliases(a.settings.Registry, map[string][]string{args[0]: args[1:]})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added %d aliases to %s\n", added, args[0])

			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history DATASET",
		Short: "List recorded sessions of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.settings.Database == "" {
				return errors.New("--database is required")
			}

			db, err := store.OpenSQLite(cmd.Context(), a.settings.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			sessions, err := db.Sessions(cmd.Context(), datasetName(args[0]))
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, s := range sessions {
				status := ""
				if s.Interrupted {
					status = " (interrupted)"
				}

				fmt.Fprintf(w, "%s  %s  %-24s %d/%d mapped%s\n",
					s.Finished.Local().Format("2006-01-02 15:04"), s.ID, s.Scorer, s.Mapped, s.Names, status)
			}

			return nil
		},
	}
}

func datasetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
