package platform

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/model"
)

// AlertClient creates and deletes price alerts on the alerting platform.
type AlertClient interface {
	CreateAlert(ctx context.Context, name string, pairID model.PairID, price, ltp decimal.Decimal) (model.Alert, error)
	DeleteAlert(ctx context.Context, alert model.Alert) error
}

// SymbolSearch resolves a free-text query to candidate pairs.
type SymbolSearch interface {
	FetchSymbolData(ctx context.Context, query string) ([]model.PairInfo, error)
}

// OrderSource lists live orders on the order-management platform.
type OrderSource interface {
	Orders(ctx context.Context) ([]model.Order, error)
}

// FeedNotifier is told when a ticker's on-screen feed must be repainted.
type FeedNotifier interface {
	Repaint(tv model.TvTicker)
}

// Reporter surfaces operator-facing failures that were not propagated.
type Reporter interface {
	Report(msg string, err error)
}

// LogNotifier implements FeedNotifier and Reporter on top of slog.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// Repaint logs the repaint request at debug level.
func (n LogNotifier) Repaint(tv model.TvTicker) {
	n.logger().Debug("feed repaint", "tv", tv)
}

// Report logs the failure at warn level.
func (n LogNotifier) Report(msg string, err error) {
	n.logger().Warn(msg, "error", err)
}
