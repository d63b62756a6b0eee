package platform

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/model"
)

// Memory is an in-process stand-in for all three external platforms.
//
// It keeps a searchable pair catalog, the alerts it has created and a list
// of live orders. SetDeleteErr makes every DeleteAlert fail, which is
// how callers exercise the remote-drift path.
type Memory struct {
	mu      sync.Mutex
	catalog []model.PairInfo
	alerts  map[string]model.Alert
	orders  []model.Order
	deleted []string

	deleteErr error
}

// NewMemory creates an empty in-memory platform.
func NewMemory() *Memory {
	return &Memory{alerts: make(map[string]model.Alert)}
}

// AddPairs extends the searchable catalog.
func (m *Memory) AddPairs(pairs ...model.PairInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalog = append(m.catalog, pairs...)
}

// SetOrders replaces the live order list.
func (m *Memory) SetOrders(orders ...model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append([]model.Order(nil), orders...)
}

// SetDeleteErr makes subsequent deletions fail with err (nil restores success).
func (m *Memory) SetDeleteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// CreateAlert records a new alert with a fresh id.
func (m *Memory) CreateAlert(_ context.Context, name string, pairID model.PairID, price, ltp decimal.Decimal) (model.Alert, error) {
	if pairID == "" {
		return model.Alert{}, fmt.Errorf("create alert %q: empty pairId", name)
	}
	if !price.IsPositive() {
		return model.Alert{}, fmt.Errorf("create alert %q: price must be positive, got %s", name, price)
	}
	alert := model.Alert{ID: uuid.NewString(), PairID: pairID, Price: price}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
	return alert, nil
}

// DeleteAlert removes an alert. Unknown ids succeed, matching a remote that
// treats deletion as idempotent.
func (m *Memory) DeleteAlert(_ context.Context, alert model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return fmt.Errorf("delete alert %s: %w", alert.ID, m.deleteErr)
	}
	delete(m.alerts, alert.ID)
	m.deleted = append(m.deleted, alert.ID)
	return nil
}

// Deleted returns the ids passed to successful DeleteAlert calls, in order.
func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// Alerts returns the alerts currently held by the platform, sorted by id.
func (m *Memory) Alerts() []model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FetchSymbolData returns catalog entries whose name, symbol or pairId
// contains query, case-insensitively.
func (m *Memory) FetchSymbolData(_ context.Context, query string) ([]model.PairInfo, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("fetch symbol data: empty query")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PairInfo
	for _, p := range m.catalog {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(string(p.Symbol)), q) ||
			string(p.PairID) == q {
			out = append(out, p)
		}
	}
	return out, nil
}

// Orders returns the live orders.
func (m *Memory) Orders(_ context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Order(nil), m.orders...), nil
}

// RecordingNotifier remembers every repaint and report, for tests.
type RecordingNotifier struct {
	mu       sync.Mutex
	repaints []model.TvTicker
	reports  []string
}

// Repaint records tv.
func (n *RecordingNotifier) Repaint(tv model.TvTicker) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.repaints = append(n.repaints, tv)
}

// Report records the message and error text.
func (n *RecordingNotifier) Report(msg string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, fmt.Sprintf("%s: %v", msg, err))
}

// Repaints returns the recorded repaints.
func (n *RecordingNotifier) Repaints() []model.TvTicker {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.TvTicker(nil), n.repaints...)
}

// Reports returns the recorded reports.
func (n *RecordingNotifier) Reports() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reports...)
}
