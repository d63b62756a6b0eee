package section

import (
	"context"
	"fmt"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/plugins"
	"github.com/roach88/tickerguard/internal/model"
)

type builder struct {
	d Deps
}

// each applies fix to every finding and counts the ones that changed state.
func each(fix func(context.Context, audit.Finding) (bool, error)) func(context.Context, []audit.Finding) (int, error) {
	return func(ctx context.Context, findings []audit.Finding) (int, error) {
		n := 0
		for _, f := range findings {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			changed, err := fix(ctx, f)
			if err != nil {
				return n, fmt.Errorf("fix %s: %w", f.Target, err)
			}
			if changed {
				n++
			}
		}
		return n, nil
	}
}

// openTv navigates to the tv ticker a finding concerns.
func (b builder) openTv(ctx context.Context, f audit.Finding) error {
	if tv, ok := f.Data["tv"].(string); ok && tv != "" {
		return b.d.Navigator.Open(ctx, model.TvTicker(tv))
	}
	return b.d.Navigator.Open(ctx, model.TvTicker(f.Target))
}

// openInvesting navigates to the tv ticker mapped to an investing target.
func (b builder) openInvesting(ctx context.Context, f audit.Finding) error {
	return b.d.Navigator.Open(ctx, b.d.Symbols.InvestingToTv(model.InvestingTicker(f.Target)))
}

func (b builder) alertsCoverage() Section {
	return Section{
		PluginID:  plugins.IDAlertsCoverage,
		Title:     "Alerts Coverage",
		LeftClick: b.openTv,
		RightClick: func(ctx context.Context, f audit.Finding) (bool, error) {
			if f.Code == plugins.CodeNoInvestingMapping {
				b.d.Pairs.StopTrackingByTvTicker(ctx, model.TvTicker(f.Target))
				return true, nil
			}
			b.d.Pairs.StopTrackingByInvestingTicker(ctx, model.InvestingTicker(f.Target))
			return true, nil
		},
	}
}

func (b builder) integrity() Section {
	fix := func(ctx context.Context, f audit.Finding) (bool, error) {
		if !b.d.Repos.Pairs.Has(model.InvestingTicker(f.Target)) {
			return false, nil
		}
		b.d.Pairs.StopTrackingByInvestingTicker(ctx, model.InvestingTicker(f.Target))
		return true, nil
	}
	return Section{
		PluginID:   plugins.IDIntegrity,
		Title:      "Integrity",
		LeftClick:  b.openInvesting,
		RightClick: fix,
		FixAll:     each(fix),
	}
}

func (b builder) duplicatePairIDs() Section {
	fix := func(_ context.Context, f audit.Finding) (bool, error) {
		changed := false
		for _, alias := range stringList(f.Data["aliases"]) {
			if b.d.Pairs.RemovePairByInvestingTicker(model.InvestingTicker(alias)) {
				changed = true
			}
		}
		return changed, nil
	}
	return Section{
		PluginID: plugins.IDDuplicatePairIDs,
		Title:    "Duplicate PairIds",
		LeftClick: func(ctx context.Context, f audit.Finding) error {
			canonical, _ := f.Data["canonical"].(string)
			return b.d.Navigator.Open(ctx, b.d.Symbols.InvestingToTv(model.InvestingTicker(canonical)))
		},
		RightClick: fix,
		FixAll:     each(fix),
	}
}

func (b builder) tickerCollision() Section {
	fix := func(_ context.Context, f audit.Finding) (bool, error) {
		changed := false
		for _, alias := range stringList(f.Data["aliases"]) {
			if b.d.Symbols.DeleteTvMapping(model.TvTicker(alias)) {
				changed = true
			}
		}
		return changed, nil
	}
	return Section{
		PluginID: plugins.IDTickerCollision,
		Title:    "Ticker Collision",
		LeftClick: func(ctx context.Context, f audit.Finding) error {
			canonical, _ := f.Data["canonical"].(string)
			return b.d.Navigator.Open(ctx, model.TvTicker(canonical))
		},
		RightClick: fix,
		FixAll:     each(fix),
	}
}

func (b builder) orphanAlerts() Section {
	fix := func(ctx context.Context, f audit.Finding) (bool, error) {
		return b.d.Pairs.DeleteAlertsForPairID(ctx, model.PairID(f.Target)) > 0, nil
	}
	return Section{
		PluginID:   plugins.IDOrphanAlerts,
		Title:      "Orphan Alerts",
		RightClick: fix,
		FixAll:     each(fix),
		Header: func(findings []audit.Finding) string {
			pairIDs := make(map[string]struct{})
			for _, f := range audit.Failures(findings) {
				pairIDs[f.Target] = struct{}{}
			}
			return fmt.Sprintf("Orphan Alerts (%d pairIds)", len(pairIDs))
		},
	}
}

func (b builder) orphan(pluginID, title string) Section {
	fix := func(ctx context.Context, f audit.Finding) (bool, error) {
		b.d.Pairs.StopTrackingByTvTicker(ctx, model.TvTicker(f.Target))
		return true, nil
	}
	return Section{
		PluginID:   pluginID,
		Title:      title,
		LeftClick:  b.openTv,
		RightClick: fix,
		FixAll:     each(fix),
	}
}

func (b builder) tradeRisk() Section {
	return Section{
		PluginID:  plugins.IDTradeRisk,
		Title:     "Trade Risk Multiple",
		LeftClick: b.openTv,
	}
}

func (b builder) staleReview() Section {
	return Section{
		PluginID:  plugins.IDStaleReview,
		Title:     "Stale Review",
		LeftClick: b.openTv,
		RightClick: func(_ context.Context, f audit.Finding) (bool, error) {
			b.d.Repos.Recent.Visit(model.TvTicker(f.Target), b.d.Now())
			return true, nil
		},
	}
}

func (b builder) alertDrift() Section {
	return Section{
		PluginID: plugins.IDAlertDrift,
		Title:    "Alert Drift",
		RightClick: func(ctx context.Context, f audit.Finding) (bool, error) {
			n, err := b.d.Pairs.RetryDrift(ctx, f.Target)
			return n > 0, err
		},
		FixAll: func(ctx context.Context, findings []audit.Finding) (int, error) {
			ids := make([]string, len(findings))
			for i, f := range findings {
				ids[i] = f.Target
			}
			return b.d.Pairs.RetryDrift(ctx, ids...)
		},
	}
}

// stringList reads a string list from finding data, whether it was built in
// process or decoded from JSON.
func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
