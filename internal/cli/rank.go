package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/rank"
)

// NewRankCommand creates the rank command and its subcommands.
func NewRankCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank competing aliases, canonical first",
		Long: `Score the aliases competing for one identity and print them best first.
Rankings read the repositories and never change them.

Examples:
  tickerguard rank pair 104
  tickerguard rank tv TCS`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:           "pair <pairId>",
			Short:         "Rank the investing tickers sharing a pairId",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRank(rootOpts, cmd, func(s *session) ([]rank.Ranked, error) {
					pid := model.PairID(model.CleanInput(args[0]))
					invs := s.app.Repos.Pairs.InvestingTickersFor(pid)
					if len(invs) == 0 {
						return nil, &model.ReferenceError{Kind: "pairId", Value: string(pid)}
					}
					return s.app.Ranker.RankInvestingTickers(invs), nil
				})
			},
		},
		&cobra.Command{
			Use:           "tv <investing-ticker>",
			Short:         "Rank the tv tickers mapped to an investing ticker",
			Args:          cobra.ExactArgs(1),
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRank(rootOpts, cmd, func(s *session) ([]rank.Ranked, error) {
					inv := model.InvestingTicker(model.CleanInput(args[0]))
					tvs := s.app.Repos.Tickers.TvTickersFor(inv)
					if len(tvs) == 0 {
						return nil, &model.ReferenceError{Kind: "investing ticker", Value: string(inv)}
					}
					return s.app.Ranker.RankTvTickers(tvs), nil
				})
			},
		},
	)
	return cmd
}

func runRank(opts *RootOptions, cmd *cobra.Command, candidates func(*session) ([]rank.Ranked, error)) error {
	formatter := opts.formatter(cmd)

	s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr(), sessionOptions{})
	if err != nil {
		return err
	}
	defer s.close()

	ranked, err := candidates(s)
	if err != nil {
		_ = formatter.Error(ErrCodeReference, err.Error(), nil)
		return referenceExit("rank failed", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(ranked)
	}
	for i, r := range ranked {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %-24s %5d\n", marker, r.Ticker, r.Score)
	}
	return nil
}
