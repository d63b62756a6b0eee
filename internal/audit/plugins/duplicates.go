package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/rank"
)

// DuplicatePairIDs reports every pairId shared by more than one investing
// ticker. Data carries the ranked aliases with the canonical entry first.
type DuplicatePairIDs struct {
	deps Deps
}

func (p *DuplicatePairIDs) ID() string    { return IDDuplicatePairIDs }
func (p *DuplicatePairIDs) Title() string { return "Duplicate PairIds" }

func (p *DuplicatePairIDs) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	if err := audit.RejectTargets(IDDuplicatePairIDs, targets); err != nil {
		return nil, err
	}

	groups := p.deps.Repos.Pairs.ByPairID()
	pairIDs := make([]model.PairID, 0, len(groups))
	for pid, invs := range groups {
		if len(invs) > 1 {
			pairIDs = append(pairIDs, pid)
		}
	}
	sort.Slice(pairIDs, func(i, j int) bool { return pairIDs[i] < pairIDs[j] })

	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, pairIDs, p.deps.Settings.BatchSize, func(pid model.PairID) {
		ranked := p.deps.Ranker.RankInvestingTickers(groups[pid])
		findings = append(findings, audit.Finding{
			PluginID: IDDuplicatePairIDs,
			Code:     CodeDuplicatePairID,
			Target:   string(pid),
			Message:  fmt.Sprintf("pairId %s is shared by %d investing tickers; canonical %s", pid, len(ranked), ranked[0].Ticker),
			Severity: audit.SeverityMedium,
			Status:   audit.StatusFail,
			Data:     rankedData(ranked),
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// TickerCollision reports every investing ticker reverse-mapped from more
// than one tv ticker.
type TickerCollision struct {
	deps Deps
}

func (p *TickerCollision) ID() string    { return IDTickerCollision }
func (p *TickerCollision) Title() string { return "Ticker Collision" }

func (p *TickerCollision) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	if err := audit.RejectTargets(IDTickerCollision, targets); err != nil {
		return nil, err
	}

	reverse := p.deps.Repos.Tickers.ReverseIndex()
	invs := make([]model.InvestingTicker, 0, len(reverse))
	for inv, tvs := range reverse {
		if len(tvs) > 1 {
			invs = append(invs, inv)
		}
	}
	sort.Slice(invs, func(i, j int) bool { return invs[i] < invs[j] })

	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, invs, p.deps.Settings.BatchSize, func(inv model.InvestingTicker) {
		ranked := p.deps.Ranker.RankTvTickers(reverse[inv])
		findings = append(findings, audit.Finding{
			PluginID: IDTickerCollision,
			Code:     CodeTickerCollision,
			Target:   string(inv),
			Message:  fmt.Sprintf("%s is mapped from %d tv tickers; canonical %s", inv, len(ranked), ranked[0].Ticker),
			Severity: audit.SeverityMedium,
			Status:   audit.StatusFail,
			Data:     rankedData(ranked),
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// rankedData exposes a ranking as finding data: the canonical ticker, the
// aliases to remove and the full scored list.
func rankedData(ranked []rank.Ranked) map[string]any {
	aliases := make([]string, 0, len(ranked)-1)
	for _, r := range ranked[1:] {
		aliases = append(aliases, r.Ticker)
	}
	return map[string]any{
		"canonical": ranked[0].Ticker,
		"aliases":   aliases,
		"ranked":    ranked,
	}
}
