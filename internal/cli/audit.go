package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/section"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	Targets  []string
	Page     int
	PageSize int
	Strict   bool
	Orders   string
	NoSave   bool
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit [plugin...]",
		Short: "Run integrity audits",
		Long: `Run the named audit plugins (every enabled plugin when none are named)
against the stored repositories and record the run in the audit history.

With --target the plugins check only those tickers and report a PASS for
each target without a violation. Plugins that audit the repository as a
whole reject targets.

Exit codes:
  0 - Audit completed (failures are reported, not fatal)
  1 - A plugin errored, or --strict and at least one failure
  2 - Command error (unknown plugin, unreadable database, etc.)

Examples:
  tickerguard audit
  tickerguard audit integrity duplicate-pairids
  tickerguard audit stale-review --target RELIANCE --target TCS
  tickerguard audit trade-risk --orders ./orders.yaml --strict`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "restrict plugins to these tickers")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page of findings to print")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "findings per page (default audit.page_size)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 when any finding fails")
	cmd.Flags().StringVar(&opts.Orders, "orders", "", "YAML or JSON list of live orders for trade-risk")
	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "do not record the run in the audit history")

	return cmd
}

func runAudit(opts *AuditOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	orders, err := loadOrders(opts.Orders)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load orders", err)
	}

	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), sessionOptions{orders: orders})
	if err != nil {
		return err
	}
	defer s.close()

	targets := make([]string, 0, len(opts.Targets))
	for _, t := range opts.Targets {
		targets = append(targets, model.CleanInput(t))
	}

	report, err := s.app.Audit(ctx, ids, targets)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "audit failed", err)
	}

	if !opts.NoSave {
		if err := recordRun(cmd, s.store, s.app.Repos, report, targets); err != nil {
			return err
		}
	}

	findings := audit.Dedupe(report.Findings())
	audit.Sort(findings)
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.Audit.PageSize
	}
	page, err := audit.Paginate(findings, opts.Page, pageSize)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid page", err)
	}
	if err := formatter.Findings(report.RunID, page, sectionHeaders(s.app.Sections, findings)); err != nil {
		return err
	}

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "plugin %s failed: %v\n", res.PluginID, res.Err)
		}
	}
	if n := len(report.Errors()); n > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d plugin(s) failed", n))
	}
	if opts.Strict {
		if n := len(audit.Failures(findings)); n > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d finding(s) failed", n))
		}
	}
	return nil
}

// sectionHeaders renders each plugin's section header over all of its
// findings, not just the printed page.
func sectionHeaders(sections *section.Sections, findings []audit.Finding) map[string]string {
	byPlugin := make(map[string][]audit.Finding)
	for _, f := range findings {
		byPlugin[f.PluginID] = append(byPlugin[f.PluginID], f)
	}
	headers := make(map[string]string, len(byPlugin))
	for id, group := range byPlugin {
		if sec, ok := sections.Get(id); ok {
			headers[id] = sec.HeaderFormatter(group)
		}
	}
	return headers
}

// recordRun stores report in the audit history under the current digest.
func recordRun(cmd *cobra.Command, st *store.Store, set *repo.Set, report *audit.Report, targets []string) error {
	digest, err := repo.Digest(set.Snapshot())
	if err != nil {
		return fmt.Errorf("digest snapshot: %w", err)
	}
	if err := st.WriteAuditRun(cmd.Context(), store.RunFromReport(report, digest, targets)); err != nil {
		return WrapExitError(ExitCommandError, "failed to record audit run", err)
	}
	return nil
}

// loadOrders reads a list of orders from a YAML or JSON file. An empty path
// means no orders.
func loadOrders(path string) ([]model.Order, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	var orders []model.Order
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&orders); err != nil {
		return nil, fmt.Errorf("parse orders %s: %w", path, err)
	}
	return orders, nil
}

// FixOptions holds flags for the fix command.
type FixOptions struct {
	*RootOptions
	Targets []string
}

// NewFixCommand creates the fix command.
func NewFixCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FixOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fix <plugin>...",
		Short: "Apply an audit section's fixes",
		Long: `Run each named plugin and apply its section's fix-all to the failing
findings, then save the repositories. Sections whose findings need
case-by-case review (alerts-coverage, trade-risk, stale-review) have no
fix-all and are rejected.

With --target only those tickers are audited, and each failing finding is
fixed on its own the way a single finding is handled in the section. This
also works for review sections that have a per-finding fix.

Examples:
  tickerguard fix duplicate-pairids ticker-collision
  tickerguard fix stale-review --target RELIANCE`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(opts, args, cmd)
		},
	}
	cmd.Flags().StringSliceVarP(&opts.Targets, "target", "t", nil, "fix only the findings for these tickers")
	return cmd
}

// FixResult is the number of findings each plugin's fixes changed.
type FixResult struct {
	Fixed  map[string]int `json:"fixed"`
	Digest string         `json:"digest"`
}

func runFix(opts *FixOptions, ids []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	targets := make([]string, 0, len(opts.Targets))
	for _, t := range opts.Targets {
		targets = append(targets, model.CleanInput(t))
	}

	result := FixResult{Fixed: make(map[string]int, len(ids))}
	var fixErr error
	for _, id := range ids {
		var n int
		if len(targets) > 0 {
			n, err = s.app.FixTargets(ctx, id, targets)
		} else {
			n, err = s.app.Fix(ctx, id)
		}
		result.Fixed[id] = n
		if err != nil {
			fixErr = err
			break
		}
	}

	// Partial fixes are still saved.
	digest, err := s.save(ctx)
	if err != nil {
		return err
	}
	result.Digest = digest

	if fixErr != nil {
		_ = formatter.Error(ErrCodeGeneric, fixErr.Error(), result)
		return WrapExitError(ExitCommandError, "fix failed", fixErr)
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	for _, id := range ids {
		fmt.Fprintf(formatter.Writer, "%s: fixed %d\n", id, result.Fixed[id])
	}
	return nil
}
