package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// OrphanAlerts reports mirrored alerts whose pairId no Pair entry carries.
type OrphanAlerts struct {
	deps Deps
}

func (p *OrphanAlerts) ID() string    { return IDOrphanAlerts }
func (p *OrphanAlerts) Title() string { return "Orphan Alerts" }

func (p *OrphanAlerts) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	if err := audit.RejectTargets(IDOrphanAlerts, targets); err != nil {
		return nil, err
	}

	owned := make(map[model.PairID]bool)
	for pid := range p.deps.Repos.Pairs.ByPairID() {
		owned[pid] = true
	}

	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, p.deps.Repos.Alerts.Keys(), p.deps.Settings.BatchSize, func(pid model.PairID) {
		if owned[pid] {
			return
		}
		alerts, _ := p.deps.Repos.Alerts.Get(pid)
		if len(alerts) == 0 {
			return
		}
		ids := make([]string, len(alerts))
		for i, a := range alerts {
			ids[i] = a.ID
		}
		sort.Strings(ids)
		findings = append(findings, audit.Finding{
			PluginID: IDOrphanAlerts,
			Code:     CodeOrphanAlert,
			Target:   string(pid),
			Message:  fmt.Sprintf("%d alert(s) for pairId %s have no pair entry", len(ids), pid),
			Severity: audit.SeverityHigh,
			Status:   audit.StatusFail,
			Data:     map[string]any{"alert_ids": ids, "count": len(ids)},
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// orphanScan reports tv-keyed entries whose tv ticker is absent from the
// Ticker repository. Composite tickers are never mapped and are skipped.
type orphanScan struct {
	deps  Deps
	id    string
	title string
	code  string
	what  string
	keys  func() []model.TvTicker
	data  func(model.TvTicker) map[string]any
}

func (p *orphanScan) ID() string    { return p.id }
func (p *orphanScan) Title() string { return p.title }

func (p *orphanScan) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	if err := audit.RejectTargets(p.id, targets); err != nil {
		return nil, err
	}

	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, p.keys(), p.deps.Settings.BatchSize, func(tv model.TvTicker) {
		if model.IsComposite(tv) || p.deps.Repos.Tickers.Has(tv) {
			return
		}
		findings = append(findings, audit.Finding{
			PluginID: p.id,
			Code:     p.code,
			Target:   string(tv),
			Message:  fmt.Sprintf("%s for %s has no ticker mapping", p.what, tv),
			Severity: audit.SeverityLow,
			Status:   audit.StatusFail,
			Data:     p.data(tv),
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func newOrphanExchange(d Deps) *orphanScan {
	return &orphanScan{
		deps:  d,
		id:    IDOrphanExchange,
		title: "Orphan Exchange",
		code:  CodeOrphanExchange,
		what:  "exchange override",
		keys:  d.Repos.Exchanges.Keys,
		data: func(tv model.TvTicker) map[string]any {
			ex, _ := d.Repos.Exchanges.Get(tv)
			return map[string]any{"exchange": ex}
		},
	}
}

func newOrphanFlags(d Deps) *orphanScan {
	return &orphanScan{
		deps:  d,
		id:    IDOrphanFlags,
		title: "Orphan Flags",
		code:  CodeOrphanFlag,
		what:  "flag",
		keys: func() []model.TvTicker {
			assigned := d.Repos.Flags.Assigned()
			out := make([]model.TvTicker, 0, len(assigned))
			for tv := range assigned {
				out = append(out, tv)
			}
			sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
			return out
		},
		data: func(tv model.TvTicker) map[string]any {
			idx := d.Repos.Flags.IndicesOf(tv)
			ints := make([]int, len(idx))
			for i, v := range idx {
				ints[i] = int(v)
			}
			return map[string]any{"indices": ints}
		},
	}
}

func newOrphanSequences(d Deps) *orphanScan {
	return &orphanScan{
		deps:  d,
		id:    IDOrphanSequences,
		title: "Orphan Sequences",
		code:  CodeOrphanSequence,
		what:  "sequence",
		keys:  d.Repos.Sequences.Keys,
		data: func(tv model.TvTicker) map[string]any {
			seq, _ := d.Repos.Sequences.Get(tv)
			return map[string]any{"sequence": string(seq)}
		},
	}
}
