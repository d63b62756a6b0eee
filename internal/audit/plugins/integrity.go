package plugins

import (
	"context"
	"fmt"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// Integrity flags pairs that cannot be navigated to: an investing ticker
// with PairInfo but no tv ticker mapped to it. When several investing
// tickers share a pairId, one finding is reported for the pairId, and only
// if none of them is mapped; duplicates themselves are the
// duplicate-pairids plugin's concern. Targets are investing tickers.
type Integrity struct {
	deps Deps
}

func (p *Integrity) ID() string    { return IDIntegrity }
func (p *Integrity) Title() string { return "Integrity" }

func (p *Integrity) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	targets = clean(targets)
	tg := newTargeting(targets)
	universe := p.deps.Repos.Pairs.Keys()
	if tg.active() {
		universe = make([]model.InvestingTicker, len(targets))
		for i, s := range targets {
			universe[i] = model.InvestingTicker(s)
		}
	}

	var findings []audit.Finding
	seenPair := make(map[model.PairID]bool)
	err := audit.ForEachBatch(ctx, universe, p.deps.Settings.BatchSize, func(inv model.InvestingTicker) {
		info, ok := p.deps.Repos.Pairs.Get(inv)
		if !ok || seenPair[info.PairID] {
			return
		}
		seenPair[info.PairID] = true

		aliases := p.deps.Repos.Pairs.InvestingTickersFor(info.PairID)
		for _, alias := range aliases {
			if len(p.deps.Repos.Tickers.TvTickersFor(alias)) > 0 {
				return
			}
		}

		ranked := p.deps.Ranker.RankInvestingTickers(aliases)
		target := inv
		if len(ranked) > 0 {
			target = model.InvestingTicker(ranked[0].Ticker)
		}
		for _, alias := range aliases {
			tg.hit(string(alias))
		}
		findings = append(findings, audit.Finding{
			PluginID: IDIntegrity,
			Code:     CodeNoTvMapping,
			Target:   string(target),
			Message:  fmt.Sprintf("%s (pairId %s, %s) has no tv mapping", target, info.PairID, info.Name),
			Severity: audit.SeverityHigh,
			Status:   audit.StatusFail,
			Data: map[string]any{
				"pair_id": string(info.PairID),
				"aliases": strs(aliases),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return append(findings, tg.passes(IDIntegrity, targets)...), nil
}
