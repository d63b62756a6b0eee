package plugins

import (
	"context"
	"fmt"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// AlertsCoverage flags unwatched tv tickers whose instrument has zero or
// exactly one alert. Findings are grouped per investing ticker. Targets are
// tv tickers.
type AlertsCoverage struct {
	deps Deps
}

func (p *AlertsCoverage) ID() string    { return IDAlertsCoverage }
func (p *AlertsCoverage) Title() string { return "Alerts Coverage" }

func (p *AlertsCoverage) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	targets = clean(targets)
	tg := newTargeting(targets)
	universe := p.deps.Repos.Tickers.Keys()
	if tg.active() {
		universe = tvTickers(targets)
	}

	var findings []audit.Finding
	reported := make(map[string]bool)
	emit := func(tv model.TvTicker, f audit.Finding) {
		tg.hit(string(tv))
		if reported[f.Target] {
			return
		}
		reported[f.Target] = true
		findings = append(findings, f)
	}

	err := audit.ForEachBatch(ctx, universe, p.deps.Settings.BatchSize, func(tv model.TvTicker) {
		if p.deps.Categories.IsWatched(tv) {
			return
		}
		inv, ok := p.deps.Repos.Tickers.Get(tv)
		if !ok {
			emit(tv, audit.Finding{
				PluginID: IDAlertsCoverage,
				Code:     CodeNoInvestingMapping,
				Target:   string(tv),
				Message:  fmt.Sprintf("%s has no investing mapping", tv),
				Severity: audit.SeverityHigh,
				Status:   audit.StatusFail,
				Data:     map[string]any{"tv": string(tv)},
			})
			return
		}
		info, ok := p.deps.Repos.Pairs.Get(inv)
		if !ok {
			emit(tv, audit.Finding{
				PluginID: IDAlertsCoverage,
				Code:     CodeNoPairInfo,
				Target:   string(inv),
				Message:  fmt.Sprintf("%s (from %s) has no pair info", inv, tv),
				Severity: audit.SeverityHigh,
				Status:   audit.StatusFail,
				Data:     map[string]any{"tv": string(tv)},
			})
			return
		}

		count := p.deps.Repos.Alerts.Count(info.PairID)
		data := map[string]any{"tv": string(tv), "pair_id": string(info.PairID), "alerts": count}
		switch count {
		case 0:
			emit(tv, audit.Finding{
				PluginID: IDAlertsCoverage,
				Code:     CodeNoAlerts,
				Target:   string(inv),
				Message:  fmt.Sprintf("%s is not watched and has no alerts", tv),
				Severity: audit.SeverityMedium,
				Status:   audit.StatusFail,
				Data:     data,
			})
		case 1:
			emit(tv, audit.Finding{
				PluginID: IDAlertsCoverage,
				Code:     CodeSingleAlert,
				Target:   string(inv),
				Message:  fmt.Sprintf("%s is not watched and has a single alert", tv),
				Severity: audit.SeverityLow,
				Status:   audit.StatusFail,
				Data:     data,
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return append(findings, tg.passes(IDAlertsCoverage, targets)...), nil
}
