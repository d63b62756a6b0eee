package repo

import (
	"sync"

	"github.com/roach88/tickerguard/internal/model"
)

// CategoryRepo stores one family's eight category slots.
//
// Primary slots hold what an operator assigned. The derived slot (watch
// index 5) is a cache written only by SetDerived; it is never primary state.
type CategoryRepo struct {
	mu      sync.RWMutex
	family  model.Family
	slots   [model.NumIndices]map[model.TvTicker]struct{}
	derived map[model.TvTicker]struct{}
}

// NewCategoryRepo creates an empty repository for family.
func NewCategoryRepo(family model.Family) *CategoryRepo {
	r := &CategoryRepo{family: family}
	r.reset()
	return r
}

func (r *CategoryRepo) reset() {
	for i := range r.slots {
		r.slots[i] = make(map[model.TvTicker]struct{})
	}
	r.derived = make(map[model.TvTicker]struct{})
}

// Family returns the family this repository stores.
func (r *CategoryRepo) Family() model.Family {
	return r.family
}

func (r *CategoryRepo) slot(index model.Index) map[model.TvTicker]struct{} {
	if r.family.IsDerived(index) {
		return r.derived
	}
	return r.slots[index]
}

// Members returns the sorted members of index.
func (r *CategoryRepo) Members(index model.Index) []model.TvTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedSet(r.slot(index))
}

// Contains reports whether tv is a member of index.
func (r *CategoryRepo) Contains(index model.Index, tv model.TvTicker) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.slot(index)[tv]
	return ok
}

// Add puts tv into a primary slot.
func (r *CategoryRepo) Add(index model.Index, tv model.TvTicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slot(index)[tv] = struct{}{}
}

// Remove takes tv out of index and reports whether it was a member.
func (r *CategoryRepo) Remove(index model.Index, tv model.TvTicker) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slot(index)
	if _, ok := s[tv]; !ok {
		return false
	}
	delete(s, tv)
	return true
}

// IndicesOf returns every primary slot containing tv, ascending.
func (r *CategoryRepo) IndicesOf(tv model.TvTicker) []model.Index {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Index
	for i := range r.slots {
		index := model.Index(i)
		if r.family.IsDerived(index) {
			continue
		}
		if _, ok := r.slots[i][tv]; ok {
			out = append(out, index)
		}
	}
	return out
}

// Assigned returns the union of every primary slot.
func (r *CategoryRepo) Assigned() map[model.TvTicker]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[model.TvTicker]struct{})
	for i := range r.slots {
		if r.family.IsDerived(model.Index(i)) {
			continue
		}
		for tv := range r.slots[i] {
			out[tv] = struct{}{}
		}
	}
	return out
}

// SetDerived replaces the derived slot's cached contents.
func (r *CategoryRepo) SetDerived(tickers []model.TvTicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.derived = make(map[model.TvTicker]struct{}, len(tickers))
	for _, tv := range tickers {
		r.derived[tv] = struct{}{}
	}
}

// Lists returns every slot (derived included) in the persisted shape.
func (r *CategoryRepo) Lists() map[int][]model.TvTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[int][]model.TvTicker, model.NumIndices)
	for i := 0; i < model.NumIndices; i++ {
		out[i] = sortedSet(r.slot(model.Index(i)))
	}
	return out
}

// validateLists checks every slot index in lists.
func validateLists(lists map[int][]model.TvTicker) error {
	for i := range lists {
		if _, err := model.ParseIndex(i); err != nil {
			return err
		}
	}
	return nil
}

func (r *CategoryRepo) replace(lists map[int][]model.TvTicker) error {
	if err := validateLists(lists); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	for i, tvs := range lists {
		s := r.slot(model.Index(i))
		for _, tv := range tvs {
			s[tv] = struct{}{}
		}
	}
	return nil
}
