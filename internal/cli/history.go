package cli

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command and its subcommands.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded audit runs",
		Long: `List recorded audit runs, newest first, with their finding counts and
the digest of the repositories they audited.

Examples:
  tickerguard history --limit 5
  tickerguard history show latest
  tickerguard history finding integrity INFY`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")

	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id|latest>",
		Short:         "Show the findings of one audit run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(rootOpts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "finding <plugin> <target>",
		Short:         "Trace one finding across audit runs",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryFinding(rootOpts, args[0], args[1], cmd)
		},
	})

	return cmd
}

// openStore opens the configured database without restoring anything.
func openStore(opts *RootOptions) (*store.Store, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	if opts.Limit < 1 {
		return NewExitError(ExitCommandError, "--limit must be >= 1")
	}
	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListAuditRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list audit runs", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No audit runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %6s  failures=%d findings=%d  digest=%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Duration, r.Failures, r.Findings, shortDigest(r.SnapshotDigest))
	}
	return nil
}

// RunView is the printable form of a stored audit run.
type RunView struct {
	ID             string            `json:"id"`
	StartedAt      time.Time         `json:"started_at"`
	Duration       time.Duration     `json:"duration"`
	SnapshotDigest string            `json:"snapshot_digest"`
	Targets        []string          `json:"targets,omitempty"`
	Findings       []audit.Finding   `json:"findings"`
	Errors         map[string]string `json:"errors,omitempty"`
}

func runHistoryShow(opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	var run store.AuditRun
	if id == "latest" {
		run, err = st.LatestAuditRun(cmd.Context())
	} else {
		run, err = st.ReadAuditRun(cmd.Context(), id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("audit run %s not found", id), nil)
		return WrapExitError(ExitCommandError, "unknown audit run", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read audit run", err)
	}

	view := RunView{
		ID:             run.ID,
		StartedAt:      run.StartedAt,
		Duration:       run.Duration,
		SnapshotDigest: run.SnapshotDigest,
		Targets:        run.Targets,
		Findings:       run.Findings,
		Errors:         run.Errors,
	}
	if formatter.IsJSON() {
		return formatter.Success(view)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "run %s at %s (%s), digest %s\n", view.ID, view.StartedAt.Format(time.RFC3339), view.Duration, shortDigest(view.SnapshotDigest))
	failed := audit.Failures(view.Findings)
	audit.Sort(failed)
	for _, f := range failed {
		fmt.Fprintf(w, "  %s\n", f)
	}
	plugins := make([]string, 0, len(view.Errors))
	for plugin := range view.Errors {
		plugins = append(plugins, plugin)
	}
	slices.Sort(plugins)
	for _, plugin := range plugins {
		fmt.Fprintf(w, "  plugin %s failed: %s\n", plugin, view.Errors[plugin])
	}
	fmt.Fprintf(w, "failures=%d passes=%d\n", len(failed), len(view.Findings)-len(failed))
	return nil
}

func runHistoryFinding(opts *RootOptions, pluginID, target string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	history, err := st.FindingHistory(cmd.Context(), pluginID, target)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read finding history", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(history)
	}
	if len(history) == 0 {
		fmt.Fprintf(formatter.Writer, "No findings recorded for %s %s.\n", pluginID, target)
		return nil
	}
	for _, rec := range history {
		fmt.Fprintf(formatter.Writer, "%s  %s  %s\n", rec.StartedAt.Format(time.RFC3339), rec.RunID, rec.Finding)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
