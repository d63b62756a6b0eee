package pair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/symbol"
)

// Deps are the collaborators a Manager is built from. Repos, Symbols,
// Categories, Alerts and Dispatcher are required.
type Deps struct {
	Repos      *repo.Set
	Symbols    *symbol.Manager
	Categories *category.Manager
	Alerts     platform.AlertClient
	Search     platform.SymbolSearch
	Dispatcher *platform.Dispatcher
	Feed       platform.FeedNotifier
	Reporter   platform.Reporter
	Now        func() time.Time
	Logger     *slog.Logger
}

// Manager owns mapping creation and the stop-tracking cascade.
type Manager struct {
	repos      *repo.Set
	symbols    *symbol.Manager
	categories *category.Manager
	alerts     platform.AlertClient
	search     platform.SymbolSearch
	dispatcher *platform.Dispatcher
	feed       platform.FeedNotifier
	reporter   platform.Reporter
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Manager from d.
func New(d Deps) (*Manager, error) {
	switch {
	case d.Repos == nil:
		return nil, errors.New("pair manager: repos is required")
	case d.Symbols == nil:
		return nil, errors.New("pair manager: symbol manager is required")
	case d.Categories == nil:
		return nil, errors.New("pair manager: category manager is required")
	case d.Alerts == nil:
		return nil, errors.New("pair manager: alert client is required")
	case d.Dispatcher == nil:
		return nil, errors.New("pair manager: dispatcher is required")
	}

	m := &Manager{
		repos:      d.Repos,
		symbols:    d.Symbols,
		categories: d.Categories,
		alerts:     d.Alerts,
		search:     d.Search,
		dispatcher: d.Dispatcher,
		feed:       d.Feed,
		reporter:   d.Reporter,
		now:        d.Now,
		logger:     d.Logger,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.feed == nil || m.reporter == nil {
		ln := platform.LogNotifier{Logger: m.logger}
		if m.feed == nil {
			m.feed = ln
		}
		if m.reporter == nil {
			m.reporter = ln
		}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// CreateInvestingToPairMapping stores info under inv.
func (m *Manager) CreateInvestingToPairMapping(inv model.InvestingTicker, info model.PairInfo) {
	m.repos.Pairs.Set(inv, info)
}

// InvestingTickerToPairInfo returns the PairInfo stored under inv.
func (m *Manager) InvestingTickerToPairInfo(inv model.InvestingTicker) (model.PairInfo, bool) {
	return m.repos.Pairs.Get(inv)
}

// MapTicker maps tv to selected.Symbol after resolving the guard rails with c.
// It returns false, without writing anything, when any step is refused.
func (m *Manager) MapTicker(ctx context.Context, selected model.PairInfo, tv model.TvTicker, c Confirmer) (bool, error) {
	if tv == "" || selected.Symbol == "" || selected.PairID == "" {
		return false, fmt.Errorf("map ticker: tv, symbol and pairId are required (tv=%q symbol=%q pairId=%q)",
			tv, selected.Symbol, selected.PairID)
	}

	g := m.CheckGuardRails(selected, tv)
	ok, err := g.Resolve(ctx, c)
	if err != nil {
		return false, fmt.Errorf("map ticker %s: %w", tv, err)
	}
	if !ok {
		m.logger.Info("mapping aborted by operator", "tv", tv, "investing", selected.Symbol)
		return false, nil
	}

	m.CreateInvestingToPairMapping(selected.Symbol, selected)
	m.symbols.CreateTvToInvestingMapping(tv, selected.Symbol)
	m.logger.Info("ticker mapped",
		"tv", tv,
		"investing", selected.Symbol,
		"pair_id", selected.PairID,
		"confirmed_steps", len(g.Steps),
	)
	return true, nil
}

// StopTrackingByInvestingTicker removes inv and every tv ticker mapped to it
// from all repositories, and deletes the pair's alerts on the remote
// platform. It returns whether any of those tv tickers held a category
// membership, which tells callers whether category views need a repaint.
func (m *Manager) StopTrackingByInvestingTicker(ctx context.Context, inv model.InvestingTicker) bool {
	info, hasInfo := m.repos.Pairs.Get(inv)
	m.repos.Pairs.Delete(inv)
	tvs := m.symbols.DeleteInvestingMappings(inv)

	cleaned := false
	for _, tv := range tvs {
		if m.cascadeTv(tv) {
			cleaned = true
		}
	}

	if hasInfo {
		m.DeleteAlertsForPairID(ctx, info.PairID)
	}

	m.logger.Info("stopped tracking",
		"investing", inv,
		"tv", tvs,
		"had_pair", hasInfo,
		"cleaned_from_lists", cleaned,
	)
	return cleaned
}

// StopTrackingByTvTicker resolves tv to its investing ticker and stops
// tracking that. An unmapped tv only gets its tv-keyed records removed.
func (m *Manager) StopTrackingByTvTicker(ctx context.Context, tv model.TvTicker) bool {
	if inv, ok := m.symbols.TvToInvesting(tv); ok {
		return m.StopTrackingByInvestingTicker(ctx, inv)
	}
	cleaned := m.cascadeTv(tv)
	m.logger.Info("stopped tracking unmapped tv ticker", "tv", tv, "cleaned_from_lists", cleaned)
	return cleaned
}

// RemovePairByInvestingTicker deletes only the Pair entry for inv.
func (m *Manager) RemovePairByInvestingTicker(inv model.InvestingTicker) bool {
	removed := m.repos.Pairs.Delete(inv)
	if removed {
		m.logger.Info("removed duplicate pair alias", "investing", inv)
	}
	return removed
}

// cascadeTv removes every tv-keyed record of tv and asks for a repaint.
func (m *Manager) cascadeTv(tv model.TvTicker) bool {
	cleaned := m.categories.Evict(tv)
	m.repos.Exchanges.Delete(tv)
	m.repos.Sequences.Delete(tv)
	m.repos.Recent.Delete(tv)
	m.feed.Repaint(tv)
	return cleaned
}

func (m *Manager) deleteRemoteAlert(ctx context.Context, a model.Alert) {
	m.dispatcher.Go(ctx, "delete alert "+a.ID,
		func(ctx context.Context) error {
			return m.alerts.DeleteAlert(ctx, a)
		},
		func(err error) {
			m.reporter.Report(fmt.Sprintf("failed to delete alert %s for pair %s", a.ID, a.PairID), err)
			m.repos.Drift.Record(a, err, m.now())
		},
	)
}

// SearchPairs asks the symbol-search platform for candidate pairs.
func (m *Manager) SearchPairs(ctx context.Context, query string) ([]model.PairInfo, error) {
	if m.search == nil {
		return nil, errors.New("search pairs: no symbol search configured")
	}
	pairs, err := m.search.FetchSymbolData(ctx, query)
	if err != nil {
		m.reporter.Report("symbol search failed", err)
		return nil, fmt.Errorf("search pairs %q: %w", query, err)
	}
	return pairs, nil
}

// CreateAlert creates a price alert for inv on the remote platform and, once
// that succeeds, mirrors it locally.
func (m *Manager) CreateAlert(ctx context.Context, inv model.InvestingTicker, price, ltp decimal.Decimal) (model.Alert, error) {
	info, ok := m.repos.Pairs.Get(inv)
	if !ok {
		return model.Alert{}, fmt.Errorf("create alert: %w", &model.ReferenceError{Kind: "investing ticker", Value: string(inv)})
	}
	alert, err := m.alerts.CreateAlert(ctx, info.Name, info.PairID, price, ltp)
	if err != nil {
		m.reporter.Report("alert creation failed", err)
		return model.Alert{}, fmt.Errorf("create alert for %s: %w", inv, err)
	}
	if alert.PairID == "" {
		alert.PairID = info.PairID
	}
	m.repos.Alerts.Add(alert)
	m.logger.Info("alert created", "investing", inv, "pair_id", alert.PairID, "price", alert.Price.String())
	return alert, nil
}

// DeleteAlertsForPairID drops every mirrored alert for pairID and deletes
// them on the remote platform. It returns how many were dropped.
func (m *Manager) DeleteAlertsForPairID(ctx context.Context, pairID model.PairID) int {
	alerts, _ := m.repos.Alerts.Get(pairID)
	for _, a := range alerts {
		m.deleteRemoteAlert(ctx, a)
	}
	m.repos.Alerts.Delete(pairID)
	if len(alerts) > 0 {
		m.logger.Info("deleted alerts", "pair_id", pairID, "count", len(alerts))
	}
	return len(alerts)
}

// RetryDrift re-attempts the remote deletions recorded in the drift ledger,
// all of them when no ids are given. Successful entries are cleared;
// failures are recorded again and returned joined.
func (m *Manager) RetryDrift(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		ids = m.repos.Drift.Keys()
	}
	var errs []error
	fixed := 0
	for _, id := range ids {
		entry, ok := m.repos.Drift.Get(id)
		if !ok {
			continue
		}
		if err := m.alerts.DeleteAlert(ctx, entry.Alert); err != nil {
			m.repos.Drift.Record(entry.Alert, err, m.now())
			errs = append(errs, fmt.Errorf("retry alert %s: %w", id, err))
			continue
		}
		m.repos.Drift.Delete(id)
		fixed++
	}
	if fixed > 0 {
		m.logger.Info("drift reconciled", "fixed", fixed, "failed", len(errs))
	}
	return fixed, errors.Join(errs...)
}
