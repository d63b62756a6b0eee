// Package section describes how each audit plugin's findings are acted on.
//
// A Section pairs a plugin with its remediation: what a left click (open the
// ticker), a right click (fix one finding) and fix-all do. Rendering is left
// to the host; sections only call into the managers and repositories.
package section

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/plugins"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/pair"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/symbol"
)

// ErrNoFixAll is returned by OnFixAll for sections whose findings need
// case-by-case review.
var ErrNoFixAll = errors.New("section has no fix-all")

// ErrNoAction is returned when a click has no handler.
var ErrNoAction = errors.New("section has no handler for this action")

// Navigator opens a ticker in the charting host.
type Navigator interface {
	Open(ctx context.Context, tv model.TvTicker) error
}

// LogNavigator logs navigation requests. It stands in for a host with no
// chart to drive.
type LogNavigator struct {
	Logger *slog.Logger
}

// Open logs tv.
func (n LogNavigator) Open(_ context.Context, tv model.TvTicker) error {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("open ticker", "tv", tv)
	return nil
}

// Section is the remediation descriptor for one plugin.
type Section struct {
	PluginID string
	Title    string

	LeftClick  func(ctx context.Context, f audit.Finding) error
	RightClick func(ctx context.Context, f audit.Finding) (bool, error)
	FixAll     func(ctx context.Context, findings []audit.Finding) (int, error)
	Header     func(findings []audit.Finding) string
}

// OnLeftClick navigates to the finding's ticker.
func (s Section) OnLeftClick(ctx context.Context, f audit.Finding) error {
	if s.LeftClick == nil {
		return fmt.Errorf("%s left click: %w", s.PluginID, ErrNoAction)
	}
	return s.LeftClick(ctx, f)
}

// OnRightClick fixes a single finding and reports whether anything changed.
func (s Section) OnRightClick(ctx context.Context, f audit.Finding) (bool, error) {
	if s.RightClick == nil {
		return false, fmt.Errorf("%s right click: %w", s.PluginID, ErrNoAction)
	}
	return s.RightClick(ctx, f)
}

// OnFixAll fixes every FAIL finding and returns how many changed anything.
func (s Section) OnFixAll(ctx context.Context, findings []audit.Finding) (int, error) {
	if s.FixAll == nil {
		return 0, fmt.Errorf("%s: %w", s.PluginID, ErrNoFixAll)
	}
	return s.FixAll(ctx, audit.Failures(findings))
}

// HeaderFormatter renders the section header for findings. The default
// counts failures and breaks them down by severity, most severe first.
func (s Section) HeaderFormatter(findings []audit.Finding) string {
	if s.Header != nil {
		return s.Header(findings)
	}
	failed := audit.Failures(findings)
	if len(failed) == 0 {
		return fmt.Sprintf("%s (0)", s.Title)
	}
	bySeverity := make(map[audit.Severity]int, 3)
	for _, f := range failed {
		bySeverity[f.Severity]++
	}
	var parts []string
	for _, sev := range []audit.Severity{audit.SeverityHigh, audit.SeverityMedium, audit.SeverityLow} {
		if n := bySeverity[sev]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sev))
		}
	}
	return fmt.Sprintf("%s (%d: %s)", s.Title, len(failed), strings.Join(parts, ", "))
}

// Deps are what sections act on.
type Deps struct {
	Repos     *repo.Set
	Pairs     *pair.Manager
	Symbols   *symbol.Manager
	Navigator Navigator
	Now       func() time.Time
	Logger    *slog.Logger
}

// Sections is an ordered set of section descriptors.
type Sections struct {
	order []string
	byID  map[string]Section
}

// Get returns the section for pluginID.
func (s *Sections) Get(pluginID string) (Section, bool) {
	sec, ok := s.byID[pluginID]
	return sec, ok
}

// All returns the sections in catalogue order.
func (s *Sections) All() []Section {
	out := make([]Section, len(s.order))
	for i, id := range s.order {
		out[i] = s.byID[id]
	}
	return out
}

// Build wires a section for every built-in plugin.
func Build(d Deps) (*Sections, error) {
	if d.Repos == nil || d.Pairs == nil || d.Symbols == nil {
		return nil, errors.New("sections: repos, pair manager and symbol manager are required")
	}
	if d.Navigator == nil {
		d.Navigator = LogNavigator{Logger: d.Logger}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	b := builder{d: d}

	list := []Section{
		b.alertsCoverage(),
		b.integrity(),
		b.duplicatePairIDs(),
		b.tickerCollision(),
		b.orphanAlerts(),
		b.orphan(plugins.IDOrphanExchange, "Orphan Exchange"),
		b.orphan(plugins.IDOrphanFlags, "Orphan Flags"),
		b.orphan(plugins.IDOrphanSequences, "Orphan Sequences"),
		b.tradeRisk(),
		b.staleReview(),
		b.alertDrift(),
	}
	s := &Sections{byID: make(map[string]Section, len(list))}
	for _, sec := range list {
		s.order = append(s.order, sec.PluginID)
		s.byID[sec.PluginID] = sec
	}
	return s, nil
}
