package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/model"
)

// NewCategoryCommand creates the category command and its subcommands.
func NewCategoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage watch and flag category lists",
		Long: `Manage the watch and flag category families. Each family has slots
0-7; a ticker sits in at most one slot per family. Watch slot 5 is the
derived default list and cannot be recorded into.`,
	}

	var dryRun bool
	clean := &cobra.Command{
		Use:           "clean",
		Short:         "Drop category members that are no longer mapped",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategoryClean(rootOpts, dryRun, cmd)
		},
	}
	clean.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be removed without changing anything")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "record <watch|flag> <index> <tv-ticker>...",
			Short: "Toggle tickers in a category slot",
			Long: `Toggle each ticker's membership in a slot. A ticker already in the slot
is removed; otherwise it is added and removed from every other slot of the
same family.`,
			Args:          cobra.MinimumNArgs(3),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCategoryRecord(rootOpts, args, cmd)
			},
		},
		&cobra.Command{
			Use:           "default",
			Short:         "Recompute the derived default watch list",
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCategoryDefault(rootOpts, cmd)
			},
		},
		clean,
		&cobra.Command{
			Use:           "show <tv-ticker>",
			Short:         "Show a ticker's slots in both families",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCategoryShow(rootOpts, args[0], cmd)
			},
		},
	)
	return cmd
}

// RecordResult reports a category toggle.
type RecordResult struct {
	Family model.Family    `json:"family"`
	Index  int             `json:"index"`
	Toggle category.Toggle `json:"toggle"`
}

func runCategoryRecord(opts *RootOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	family, err := model.ParseFamily(args[0])
	if err != nil {
		_ = formatter.Error(ErrCodeReference, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid family", err)
	}
	index, err := strconv.Atoi(args[1])
	if err != nil {
		_ = formatter.Error(ErrCodeReference, fmt.Sprintf("index %q is not a number", args[1]), nil)
		return WrapExitError(ExitCommandError, "invalid index", err)
	}
	tickers := make([]model.TvTicker, 0, len(args)-2)
	for _, a := range args[2:] {
		tickers = append(tickers, model.TvTicker(model.CleanInput(a)))
	}

	s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	toggle, err := s.app.Categories.RecordCategory(family, index, tickers)
	if err != nil {
		_ = formatter.Error(ErrCodeReference, err.Error(), nil)
		return WrapExitError(ExitCommandError, "record category failed", err)
	}
	s.app.Categories.UpdateDefaultList(s.app.Universe())
	if _, err := s.save(ctx); err != nil {
		return err
	}
	return formatter.SuccessText(RecordResult{Family: family, Index: index, Toggle: toggle},
		"%s[%d] added=%v removed=%v", family, index, toggle.Added, toggle.Removed)
}

func runCategoryDefault(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	list := s.app.Categories.UpdateDefaultList(s.app.Universe())
	if _, err := s.save(ctx); err != nil {
		return err
	}
	if formatter.IsJSON() {
		return formatter.Success(list)
	}
	for _, tv := range list {
		fmt.Fprintln(formatter.Writer, tv)
	}
	return nil
}

func runCategoryClean(opts *RootOptions, dryRun bool, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	universe := s.app.Universe()
	var report category.CleanReport
	if dryRun {
		report = s.app.Categories.DryRunClean(universe)
	} else {
		report = s.app.Categories.Clean(universe)
		if _, err := s.save(ctx); err != nil {
			return err
		}
	}

	if formatter.IsJSON() {
		return formatter.Success(report)
	}
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	for _, family := range model.Families {
		for i := 0; i < model.NumIndices; i++ {
			for _, tv := range report.Removed[family][model.Index(i)] {
				fmt.Fprintf(formatter.Writer, "%s %s[%d] %s\n", verb, family, i, tv)
			}
		}
	}
	fmt.Fprintf(formatter.Writer, "%s %d membership(s)\n", verb, report.Count())
	return nil
}

func runCategoryShow(opts *RootOptions, arg string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	tv := model.TvTicker(model.CleanInput(arg))
	membership := s.app.Categories.Membership(tv)
	if formatter.IsJSON() {
		return formatter.Success(membership)
	}
	for _, family := range model.Families {
		fmt.Fprintf(formatter.Writer, "%s: %v\n", family, membership[family])
	}
	return nil
}
