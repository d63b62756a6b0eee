// Package category maintains watch and flag category membership.
//
// Within a family every ticker belongs to at most one primary slot: adding a
// ticker to a slot removes it from every other slot of the same family. The
// watch family's default slot is never assigned; it is recomputed from the
// live ticker universe by UpdateDefaultList.
package category

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

// ErrDerivedIndex is returned when a caller tries to record into the
// derived default slot.
var ErrDerivedIndex = errors.New("default list is derived and cannot be recorded into")

// Toggle reports what RecordCategory changed.
type Toggle struct {
	Added   []model.TvTicker `json:"added,omitempty"`
	Removed []model.TvTicker `json:"removed,omitempty"`
}

// CleanReport lists, per family and slot, the members that are (or would
// be) pruned because they left the universe.
type CleanReport struct {
	DryRun  bool                                              `json:"dry_run"`
	Removed map[model.Family]map[model.Index][]model.TvTicker `json:"removed"`
}

// Count returns the total number of pruned memberships.
func (r CleanReport) Count() int {
	n := 0
	for _, slots := range r.Removed {
		for _, tvs := range slots {
			n += len(tvs)
		}
	}
	return n
}

// Manager owns category membership for both families.
type Manager struct {
	repos  *repo.Set
	logger *slog.Logger
}

// New creates a Manager over the watch and flag repositories of repos.
func New(repos *repo.Set, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{repos: repos, logger: logger}
}

// RecordCategory toggles each ticker's membership in index. A ticker already
// in index is removed; otherwise it is added and evicted from every other
// primary slot of the family.
func (m *Manager) RecordCategory(family model.Family, index int, tickers []model.TvTicker) (Toggle, error) {
	idx, err := model.ParseIndex(index)
	if err != nil {
		return Toggle{}, fmt.Errorf("record category: %w", err)
	}
	if family.IsDerived(idx) {
		return Toggle{}, fmt.Errorf("record category %s[%d]: %w", family, index, ErrDerivedIndex)
	}
	cat, err := m.repos.Category(family)
	if err != nil {
		return Toggle{}, fmt.Errorf("record category: %w", err)
	}

	var t Toggle
	for _, tv := range tickers {
		if cat.Contains(idx, tv) {
			cat.Remove(idx, tv)
			t.Removed = append(t.Removed, tv)
			continue
		}
		for _, other := range cat.IndicesOf(tv) {
			cat.Remove(other, tv)
		}
		cat.Add(idx, tv)
		t.Added = append(t.Added, tv)
	}

	m.logger.Debug("category recorded",
		"family", family,
		"index", index,
		"added", len(t.Added),
		"removed", len(t.Removed),
	)
	return t, nil
}

// UpdateDefaultList recomputes the watch family's default slot as the
// universe minus every other watch slot, and returns it sorted.
func (m *Manager) UpdateDefaultList(universe []model.TvTicker) []model.TvTicker {
	assigned := m.repos.Watch.Assigned()
	seen := make(map[model.TvTicker]struct{}, len(universe))
	var out []model.TvTicker
	for _, tv := range universe {
		if _, ok := assigned[tv]; ok {
			continue
		}
		if _, dup := seen[tv]; dup {
			continue
		}
		seen[tv] = struct{}{}
		out = append(out, tv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	m.repos.Watch.SetDerived(out)
	return out
}

// DryRunClean reports every primary membership whose ticker is not in universe.
func (m *Manager) DryRunClean(universe []model.TvTicker) CleanReport {
	return m.clean(universe, true)
}

// Clean removes every primary membership whose ticker is not in universe
// and refreshes the default list.
func (m *Manager) Clean(universe []model.TvTicker) CleanReport {
	report := m.clean(universe, false)
	m.UpdateDefaultList(universe)
	m.logger.Info("categories cleaned", "removed", report.Count())
	return report
}

func (m *Manager) clean(universe []model.TvTicker, dryRun bool) CleanReport {
	live := make(map[model.TvTicker]struct{}, len(universe))
	for _, tv := range universe {
		live[tv] = struct{}{}
	}

	report := CleanReport{DryRun: dryRun, Removed: make(map[model.Family]map[model.Index][]model.TvTicker)}
	for _, family := range model.Families {
		cat, _ := m.repos.Category(family)
		for i := 0; i < model.NumIndices; i++ {
			idx := model.Index(i)
			if family.IsDerived(idx) {
				continue
			}
			for _, tv := range cat.Members(idx) {
				if _, ok := live[tv]; ok {
					continue
				}
				if !dryRun {
					cat.Remove(idx, tv)
				}
				if report.Removed[family] == nil {
					report.Removed[family] = make(map[model.Index][]model.TvTicker)
				}
				report.Removed[family][idx] = append(report.Removed[family][idx], tv)
			}
		}
	}
	return report
}

// Evict removes tv from every slot of both families, including the derived
// cache, and reports whether it held any primary membership.
func (m *Manager) Evict(tv model.TvTicker) bool {
	found := false
	for _, family := range model.Families {
		cat, _ := m.repos.Category(family)
		for _, idx := range cat.IndicesOf(tv) {
			cat.Remove(idx, tv)
			found = true
		}
		if family.IsDerived(model.DefaultIndex) {
			cat.Remove(model.DefaultIndex, tv)
		}
	}
	return found
}

// IsWatched reports whether tv is in any primary watch slot.
func (m *Manager) IsWatched(tv model.TvTicker) bool {
	return len(m.repos.Watch.IndicesOf(tv)) > 0
}

// Membership returns the primary slots holding tv, per family.
func (m *Manager) Membership(tv model.TvTicker) map[model.Family][]model.Index {
	out := make(map[model.Family][]model.Index)
	for _, family := range model.Families {
		cat, _ := m.repos.Category(family)
		if idx := cat.IndicesOf(tv); len(idx) > 0 {
			out[family] = idx
		}
	}
	return out
}
