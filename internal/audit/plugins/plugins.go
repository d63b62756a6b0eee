package plugins

import (
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/rank"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/symbol"
)

// Plugin ids.
const (
	IDAlertsCoverage   = "alerts-coverage"
	IDIntegrity        = "integrity"
	IDDuplicatePairIDs = "duplicate-pairids"
	IDTickerCollision  = "ticker-collision"
	IDOrphanAlerts     = "orphan-alerts"
	IDOrphanExchange   = "orphan-exchange"
	IDOrphanFlags      = "orphan-flags"
	IDOrphanSequences  = "orphan-sequences"
	IDTradeRisk        = "trade-risk"
	IDStaleReview      = "stale-review"
	IDAlertDrift       = "alert-drift"
)

// Finding codes.
const (
	CodeNoInvestingMapping = "NO_INVESTING_MAPPING"
	CodeNoPairInfo         = "NO_PAIR_INFO"
	CodeNoAlerts           = "NO_ALERTS"
	CodeSingleAlert        = "SINGLE_ALERT"
	CodeNoTvMapping        = "NO_TV_MAPPING"
	CodeDuplicatePairID    = "DUPLICATE_PAIR_ID"
	CodeTickerCollision    = "TICKER_COLLISION"
	CodeOrphanAlert        = "ORPHAN_ALERT"
	CodeOrphanExchange     = "ORPHAN_EXCHANGE"
	CodeOrphanFlag         = "ORPHAN_FLAG"
	CodeOrphanSequence     = "ORPHAN_SEQUENCE"
	CodeRiskMismatch       = "RISK_MULTIPLE_MISMATCH"
	CodeNeverVisited       = "NEVER_VISITED"
	CodeStale              = "STALE"
	CodeRemoteDeleteFailed = "REMOTE_DELETE_FAILED"
)

// Defaults for Settings.
const (
	DefaultStaleWindow = 90 * 24 * time.Hour
)

// DefaultRiskTolerance is the ±1% band around each approved risk.
var DefaultRiskTolerance = decimal.RequireFromString("0.01")

// Settings tune individual plugins.
type Settings struct {
	// BatchSize is how many keys a scan processes between yields.
	BatchSize int

	// StaleWindow is how long after the last visit a ticker becomes stale.
	StaleWindow time.Duration

	// RiskLimit is the full approved risk per trade. The ladder is
	// {RiskLimit, RiskLimit/2}. Zero disables the trade-risk plugin.
	RiskLimit decimal.Decimal

	// RiskTolerance is the relative band accepted around each rung.
	RiskTolerance decimal.Decimal
}

// Deps are the read-only collaborators plugins are built from.
type Deps struct {
	Repos      *repo.Set
	Ranker     *rank.Ranker
	Categories *category.Manager
	Symbols    *symbol.Manager
	Orders     platform.OrderSource
	Now        func() time.Time
	Settings   Settings
	Logger     *slog.Logger
}

func (d *Deps) normalize() error {
	if d.Repos == nil || d.Ranker == nil || d.Categories == nil || d.Symbols == nil {
		return errors.New("plugins: repos, ranker, categories and symbols are required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Settings.BatchSize < 1 {
		d.Settings.BatchSize = audit.DefaultBatchSize
	}
	if d.Settings.StaleWindow <= 0 {
		d.Settings.StaleWindow = DefaultStaleWindow
	}
	if d.Settings.RiskTolerance.IsZero() {
		d.Settings.RiskTolerance = DefaultRiskTolerance
	}
	return nil
}

// Default builds every plugin, in catalogue order.
func Default(d Deps) ([]audit.Plugin, error) {
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return []audit.Plugin{
		&AlertsCoverage{deps: d},
		&Integrity{deps: d},
		&DuplicatePairIDs{deps: d},
		&TickerCollision{deps: d},
		&OrphanAlerts{deps: d},
		newOrphanExchange(d),
		newOrphanFlags(d),
		newOrphanSequences(d),
		&TradeRisk{deps: d},
		&StaleReview{deps: d},
		&AlertDrift{deps: d},
	}, nil
}

// DefaultRegistry builds every plugin and registers them.
func DefaultRegistry(d Deps) (*audit.Registry, error) {
	ps, err := Default(d)
	if err != nil {
		return nil, err
	}
	return audit.NewRegistry(ps...)
}

// targeting turns a target list into a lookup of requested keys.
type targeting map[string]bool

func newTargeting(targets []string) targeting {
	t := make(targeting, len(targets))
	for _, s := range targets {
		t[s] = false
	}
	return t
}

func (t targeting) active() bool { return len(t) > 0 }

// hit marks target as having produced a failure.
func (t targeting) hit(target string) {
	if _, ok := t[target]; ok {
		t[target] = true
	}
}

// passes returns PASS findings for requested targets that never failed,
// in the order they were requested.
func (t targeting) passes(pluginID string, targets []string) []audit.Finding {
	var out []audit.Finding
	seen := make(map[string]bool, len(targets))
	for _, s := range targets {
		if t[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, audit.Pass(pluginID, s))
	}
	return out
}

// clean normalizes operator-supplied targets.
func clean(targets []string) []string {
	if len(targets) == 0 {
		return nil
	}
	out := make([]string, len(targets))
	for i, s := range targets {
		out[i] = model.CleanInput(s)
	}
	return out
}

func tvTickers(targets []string) []model.TvTicker {
	out := make([]model.TvTicker, len(targets))
	for i, s := range targets {
		out[i] = model.TvTicker(s)
	}
	return out
}

func strs[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
