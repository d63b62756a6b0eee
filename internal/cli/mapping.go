package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/pair"
)

// MapOptions holds flags for the map command.
type MapOptions struct {
	*RootOptions
	Symbol   string
	PairID   string
	Name     string
	Exchange string
	Query    string
	Pick     int
	Yes      bool
}

// MapResult reports a mapping attempt.
type MapResult struct {
	Tv        model.TvTicker      `json:"tv"`
	Selected  model.PairInfo      `json:"selected"`
	Mapped    bool                `json:"mapped"`
	Confirmed []pair.Confirmation `json:"confirmed,omitempty"`
	Refused   *pair.Confirmation  `json:"refused,omitempty"`
}

// NewMapCommand creates the map command.
func NewMapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MapOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "map <tv-ticker>",
		Short: "Map a tv ticker to a pair",
		Long: `Map a charting-platform ticker to an alerting-platform pair.

The pair is given explicitly with --symbol and --pair-id, or found with
--query (the first result unless --pick is set). When other investing
tickers already share the pairId, or the investing ticker is already mapped
from another tv ticker, each step asks for confirmation; refusing any step
leaves everything unchanged. --yes accepts every step.

Exit codes:
  0 - Mapped
  1 - A guard-rail step was refused
  2 - Command error

Examples:
  tickerguard map RELIANCE --symbol RELIANCE --pair-id 6408 --name "Reliance Industries"
  tickerguard map NSE:TCS --query "tata consultancy" --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "investing ticker to map to")
	cmd.Flags().StringVar(&opts.PairID, "pair-id", "", "alerting-platform pairId")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name of the pair")
	cmd.Flags().StringVar(&opts.Exchange, "exchange", "NSE", "exchange of the pair")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "search stored pairs instead of giving one")
	cmd.Flags().IntVar(&opts.Pick, "pick", 1, "which search result to map (1-based)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "accept every guard-rail step")
	cmd.MarkFlagsMutuallyExclusive("query", "symbol")

	return cmd
}

func runMap(opts *MapOptions, tvArg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	tv := model.TvTicker(model.CleanInput(tvArg))
	selected, err := selectPair(ctx, opts, s)
	if err != nil {
		_ = formatter.Error(ErrCodeReference, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no pair selected", err)
	}

	result := MapResult{Tv: tv, Selected: selected}
	confirmer := recordingConfirmer(&result, promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr()))
	if opts.Yes {
		confirmer = recordingConfirmer(&result, pair.AlwaysConfirm)
	}

	mapped, err := s.app.Pairs.MapTicker(ctx, selected, tv, confirmer)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "map failed", err)
	}
	result.Mapped = mapped
	if !mapped {
		_ = formatter.Error(ErrCodeRefused, fmt.Sprintf("mapping %s -> %s refused", tv, selected.Symbol), result)
		return NewExitError(ExitFailure, "mapping refused")
	}

	if _, err := s.save(ctx); err != nil {
		return err
	}
	return formatter.SuccessText(result, "mapped %s -> %s (pairId %s)", tv, selected.Symbol, selected.PairID)
}

// selectPair resolves the --symbol/--pair-id or --query flags to one pair.
func selectPair(ctx context.Context, opts *MapOptions, s *session) (model.PairInfo, error) {
	if opts.Query == "" {
		return model.PairInfo{
			Name:     opts.Name,
			PairID:   model.PairID(strings.TrimSpace(opts.PairID)),
			Exchange: opts.Exchange,
			Symbol:   model.InvestingTicker(model.CleanInput(opts.Symbol)),
		}, nil
	}
	found, err := s.app.Pairs.SearchPairs(ctx, opts.Query)
	if err != nil {
		return model.PairInfo{}, err
	}
	if opts.Pick < 1 || opts.Pick > len(found) {
		return model.PairInfo{}, fmt.Errorf("query %q returned %d pair(s), cannot pick %d", opts.Query, len(found), opts.Pick)
	}
	return found[opts.Pick-1], nil
}

// recordingConfirmer notes every answered step in result.
func recordingConfirmer(result *MapResult, next pair.Confirmer) pair.Confirmer {
	return pair.ConfirmFunc(func(ctx context.Context, c pair.Confirmation) (bool, error) {
		ok, err := next.Confirm(ctx, c)
		if err != nil {
			return false, err
		}
		if ok {
			result.Confirmed = append(result.Confirmed, c)
		} else {
			refused := c
			result.Refused = &refused
		}
		return ok, nil
	})
}

// promptConfirmer asks on out and reads y/N answers from in. End of input
// counts as a refusal.
func promptConfirmer(in io.Reader, out io.Writer) pair.Confirmer {
	scanner := bufio.NewScanner(in)
	return pair.ConfirmFunc(func(_ context.Context, c pair.Confirmation) (bool, error) {
		fmt.Fprintf(out, "%s: %s\nProceed? [y/N] ", c.Kind, c.Reason)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, fmt.Errorf("read answer: %w", err)
			}
			return false, nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	})
}

// StopOptions holds flags for the stop command.
type StopOptions struct {
	*RootOptions
	Investing bool
}

// StopResult reports what stop removed.
type StopResult struct {
	Ticker  string `json:"ticker"`
	Cleaned bool   `json:"cleaned_from_lists"`
}

// NewStopCommand creates the stop command.
func NewStopCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StopOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stop <ticker>",
		Short: "Stop tracking a ticker everywhere",
		Long: `Stop tracking a ticker: remove its pair, every tv ticker mapped to it,
their exchange, sequence, recent and category records, and delete its alerts
on the alerting platform.

The argument is a tv ticker unless --investing is set.

Example:
  tickerguard stop RELIANCE
  tickerguard stop RELIANCE-NSE --investing`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Investing, "investing", false, "treat the argument as an investing ticker")
	return cmd
}

func runStop(opts *StopOptions, arg string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts.RootOptions, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	ticker := model.CleanInput(arg)
	var cleaned bool
	if opts.Investing {
		cleaned = s.app.Pairs.StopTrackingByInvestingTicker(ctx, model.InvestingTicker(ticker))
	} else {
		cleaned = s.app.Pairs.StopTrackingByTvTicker(ctx, model.TvTicker(ticker))
	}
	if _, err := s.save(ctx); err != nil {
		return err
	}
	return formatter.SuccessText(StopResult{Ticker: ticker, Cleaned: cleaned},
		"stopped tracking %s (cleaned from lists: %t)", ticker, cleaned)
}

// Translation is a tv ticker in every platform namespace.
type Translation struct {
	Tv        model.TvTicker        `json:"tv"`
	Investing model.InvestingTicker `json:"investing,omitempty"`
	PairID    model.PairID          `json:"pair_id,omitempty"`
	Kite      model.KiteSymbol      `json:"kite"`
	Exchange  string                `json:"exchange"`
}

// NewTranslateCommand creates the translate command.
func NewTranslateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <tv-ticker>...",
		Short: "Show a tv ticker's identity on every platform",
		Args:  cobra.MinimumNArgs(1),
		Example: `  tickerguard translate M&M RELIANCE
  tickerguard translate NSE:NIFTY --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runTranslate(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	out := make([]Translation, 0, len(args))
	for _, arg := range args {
		tv := model.TvTicker(model.CleanInput(arg))
		t := Translation{
			Tv:       tv,
			Kite:     s.app.Symbols.TvToKite(tv),
			Exchange: s.app.Symbols.TvToExchangeTicker(tv),
		}
		if inv, ok := s.app.Symbols.TvToInvesting(tv); ok {
			t.Investing = inv
			if info, ok := s.app.Pairs.InvestingTickerToPairInfo(inv); ok {
				t.PairID = info.PairID
			}
		}
		out = append(out, t)
	}

	if formatter.IsJSON() {
		return formatter.Success(out)
	}
	for _, t := range out {
		inv := string(t.Investing)
		if inv == "" {
			inv = "-"
		}
		pid := string(t.PairID)
		if pid == "" {
			pid = "-"
		}
		fmt.Fprintf(formatter.Writer, "%s  investing=%s pairId=%s kite=%s exchange=%s\n", t.Tv, inv, pid, t.Kite, t.Exchange)
	}
	return nil
}
