// Package app builds the tickerguard object graph.
//
// Construction runs strictly bottom-up: repositories, then managers, then
// plugins, then the runner and sections. Nothing can be built before its
// dependencies exist, so the graph is acyclic by construction.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/plugins"
	"github.com/roach88/tickerguard/internal/audit/section"
	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/pair"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/rank"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/symbol"
)

// Options are the external collaborators. Nil platform clients fall back to
// an in-memory platform.
type Options struct {
	Config    *config.Config
	Repos     *repo.Set
	Alerts    platform.AlertClient
	Search    platform.SymbolSearch
	Orders    platform.OrderSource
	Feed      platform.FeedNotifier
	Reporter  platform.Reporter
	Navigator section.Navigator
	Metrics   *audit.Metrics
	Now       func() time.Time
	RunIDs    func() string
	Logger    *slog.Logger
}

// App is the wired graph.
type App struct {
	Config     *config.Config
	Repos      *repo.Set
	Symbols    *symbol.Manager
	Categories *category.Manager
	Ranker     *rank.Ranker
	Pairs      *pair.Manager
	Dispatcher *platform.Dispatcher
	Runner     *audit.Runner
	Sections   *section.Sections
	Logger     *slog.Logger
	Now        func() time.Time
}

// New wires every component from o.
func New(o Options) (*App, error) {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Repos == nil {
		o.Repos = repo.NewSet()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Alerts == nil || o.Search == nil || o.Orders == nil {
		mem := platform.NewMemory()
		if o.Alerts == nil {
			o.Alerts = mem
		}
		if o.Search == nil {
			o.Search = mem
		}
		if o.Orders == nil {
			o.Orders = mem
		}
	}
	cfg := o.Config

	extra := make(map[model.TvTicker]model.KiteSymbol, len(cfg.Symbols.Kite))
	for tv, kite := range cfg.Symbols.Kite {
		extra[model.TvTicker(tv)] = model.KiteSymbol(kite)
	}
	symbols, err := symbol.New(o.Repos.Tickers, o.Repos.Exchanges, extra)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	categories := category.New(o.Repos, o.Logger)
	ranker := rank.New(o.Repos, cfg.Rank.PreferredExchanges)
	dispatcher := platform.NewDispatcher(o.Logger)

	pairs, err := pair.New(pair.Deps{
		Repos:      o.Repos,
		Symbols:    symbols,
		Categories: categories,
		Alerts:     o.Alerts,
		Search:     o.Search,
		Dispatcher: dispatcher,
		Feed:       o.Feed,
		Reporter:   o.Reporter,
		Now:        o.Now,
		Logger:     o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	all, err := plugins.Default(plugins.Deps{
		Repos:      o.Repos,
		Ranker:     ranker,
		Categories: categories,
		Symbols:    symbols,
		Orders:     o.Orders,
		Now:        o.Now,
		Logger:     o.Logger,
		Settings: plugins.Settings{
			BatchSize:     cfg.Audit.BatchSize,
			StaleWindow:   cfg.StaleWindow(),
			RiskLimit:     cfg.RiskLimit(),
			RiskTolerance: cfg.RiskTolerance(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}
	var enabled []audit.Plugin
	for _, p := range all {
		if !slices.Contains(cfg.Audit.Disabled, p.ID()) {
			enabled = append(enabled, p)
		}
	}
	registry, err := audit.NewRegistry(enabled...)
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	runOpts := []audit.RunnerOption{
		audit.WithConcurrency(cfg.Audit.Concurrency),
		audit.WithLogger(o.Logger),
		audit.WithClock(o.Now),
		audit.WithRunIDs(o.RunIDs),
	}
	if o.Metrics != nil {
		runOpts = append(runOpts, audit.WithMetrics(o.Metrics))
	}

	sections, err := section.Build(section.Deps{
		Repos:     o.Repos,
		Pairs:     pairs,
		Symbols:   symbols,
		Navigator: o.Navigator,
		Now:       o.Now,
		Logger:    o.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build app: %w", err)
	}

	return &App{
		Config:     cfg,
		Repos:      o.Repos,
		Symbols:    symbols,
		Categories: categories,
		Ranker:     ranker,
		Pairs:      pairs,
		Dispatcher: dispatcher,
		Runner:     audit.NewRunner(registry, runOpts...),
		Sections:   sections,
		Logger:     o.Logger,
		Now:        o.Now,
	}, nil
}

// Audit runs the plugins named by ids (all when empty) against targets.
func (a *App) Audit(ctx context.Context, ids, targets []string) (*audit.Report, error) {
	return a.Runner.Run(ctx, ids, targets)
}

// Fix runs pluginID and applies its section's fix-all to the findings. It
// waits for any remote deletions the fixes dispatched.
func (a *App) Fix(ctx context.Context, pluginID string) (int, error) {
	sec, ok := a.Sections.Get(pluginID)
	if !ok {
		return 0, fmt.Errorf("fix: unknown plugin %q", pluginID)
	}
	if sec.FixAll == nil {
		return 0, fmt.Errorf("fix %s: %w", pluginID, section.ErrNoFixAll)
	}
	findings, err := a.Runner.RunPlugin(ctx, pluginID, nil)
	if err != nil {
		return 0, fmt.Errorf("fix %s: %w", pluginID, err)
	}
	n, err := sec.OnFixAll(ctx, findings)
	a.Dispatcher.Wait()
	if err != nil {
		return n, fmt.Errorf("fix %s: %w", pluginID, err)
	}
	a.Logger.Info("fix applied", "plugin", pluginID, "fixed", n)
	return n, nil
}

// FixTargets runs pluginID against targets and fixes each failing finding
// one at a time with the section's right-click handler. Sections without a
// fix-all can still be fixed this way.
func (a *App) FixTargets(ctx context.Context, pluginID string, targets []string) (int, error) {
	sec, ok := a.Sections.Get(pluginID)
	if !ok {
		return 0, fmt.Errorf("fix: unknown plugin %q", pluginID)
	}
	findings, err := a.Runner.RunPlugin(ctx, pluginID, targets)
	if err != nil {
		return 0, fmt.Errorf("fix %s: %w", pluginID, err)
	}
	defer a.Dispatcher.Wait()
	n := 0
	for _, f := range audit.Failures(findings) {
		changed, err := sec.OnRightClick(ctx, f)
		if err != nil {
			return n, fmt.Errorf("fix %s %s: %w", pluginID, f.Target, err)
		}
		if changed {
			n++
		}
	}
	a.Logger.Info("targeted fix applied", "plugin", pluginID, "targets", targets, "fixed", n)
	return n, nil
}

// Universe returns every mapped tv ticker, the live universe the default
// watch list is derived from.
func (a *App) Universe() []model.TvTicker {
	return a.Repos.Tickers.Keys()
}

// Wait blocks until every dispatched remote call has finished.
func (a *App) Wait() {
	a.Dispatcher.Wait()
}
