package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// StaleReview flags mapped tv tickers that were never visited, or whose
// last visit is older than the stale window. Targets are tv tickers.
type StaleReview struct {
	deps Deps
}

func (p *StaleReview) ID() string    { return IDStaleReview }
func (p *StaleReview) Title() string { return "Stale Review" }

func (p *StaleReview) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	targets = clean(targets)
	tg := newTargeting(targets)
	universe := p.deps.Repos.Tickers.Keys()
	if tg.active() {
		universe = tvTickers(targets)
	}

	now := p.deps.Now()
	window := p.deps.Settings.StaleWindow
	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, universe, p.deps.Settings.BatchSize, func(tv model.TvTicker) {
		last, ok := p.deps.Repos.Recent.LastVisit(tv)
		if !ok {
			tg.hit(string(tv))
			findings = append(findings, audit.Finding{
				PluginID: IDStaleReview,
				Code:     CodeNeverVisited,
				Target:   string(tv),
				Message:  fmt.Sprintf("%s has never been visited", tv),
				Severity: audit.SeverityHigh,
				Status:   audit.StatusFail,
			})
			return
		}
		age := now.Sub(last)
		if age <= window {
			return
		}
		tg.hit(string(tv))
		days := int(age.Hours() / 24)
		findings = append(findings, audit.Finding{
			PluginID: IDStaleReview,
			Code:     CodeStale,
			Target:   string(tv),
			Message:  fmt.Sprintf("%s last visited %d days ago", tv, days),
			Severity: audit.SeverityMedium,
			Status:   audit.StatusFail,
			Data: map[string]any{
				"last_visit": last.UTC().Format(time.RFC3339),
				"age_days":   days,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return append(findings, tg.passes(IDStaleReview, targets)...), nil
}
