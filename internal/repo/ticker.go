package repo

import (
	"sort"
	"sync"

	"github.com/roach88/tickerguard/internal/model"
)

// TickerRepo holds the tv → investing edges and their reverse index.
//
// The reverse index is materialized on every write. It deliberately allows
// several tv tickers per investing ticker: that state is a "ticker
// collision", which the audit layer detects rather than the repository
// preventing it.
type TickerRepo struct {
	mu      sync.RWMutex
	forward map[model.TvTicker]model.InvestingTicker
	reverse map[model.InvestingTicker]map[model.TvTicker]struct{}
}

// NewTickerRepo creates an empty Ticker repository.
func NewTickerRepo() *TickerRepo {
	return &TickerRepo{
		forward: make(map[model.TvTicker]model.InvestingTicker),
		reverse: make(map[model.InvestingTicker]map[model.TvTicker]struct{}),
	}
}

// Get returns the investing ticker mapped from tv.
func (r *TickerRepo) Get(tv model.TvTicker) (model.InvestingTicker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.forward[tv]
	return inv, ok
}

// Has reports whether tv has an investing mapping.
func (r *TickerRepo) Has(tv model.TvTicker) bool {
	_, ok := r.Get(tv)
	return ok
}

// Set maps tv to inv, replacing any previous edge from tv.
func (r *TickerRepo) Set(tv model.TvTicker, inv model.InvestingTicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unlink(tv)
	r.forward[tv] = inv
	if r.reverse[inv] == nil {
		r.reverse[inv] = make(map[model.TvTicker]struct{})
	}
	r.reverse[inv][tv] = struct{}{}
}

// Delete removes the edge from tv and reports whether it existed.
func (r *TickerRepo) Delete(tv model.TvTicker) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unlink(tv)
}

// DeleteByInvesting removes every edge pointing at inv and returns the tv
// tickers that were unlinked.
func (r *TickerRepo) DeleteByInvesting(inv model.InvestingTicker) []model.TvTicker {
	r.mu.Lock()
	defer r.mu.Unlock()
	tvs := sortedSet(r.reverse[inv])
	for _, tv := range tvs {
		delete(r.forward, tv)
	}
	delete(r.reverse, inv)
	return tvs
}

// unlink removes tv from both indices. Caller holds the write lock.
func (r *TickerRepo) unlink(tv model.TvTicker) bool {
	old, ok := r.forward[tv]
	if !ok {
		return false
	}
	delete(r.forward, tv)
	if set := r.reverse[old]; set != nil {
		delete(set, tv)
		if len(set) == 0 {
			delete(r.reverse, old)
		}
	}
	return true
}

// ReverseLookup returns the first (sorted) tv ticker mapped to inv.
func (r *TickerRepo) ReverseLookup(inv model.InvestingTicker) (model.TvTicker, bool) {
	tvs := r.TvTickersFor(inv)
	if len(tvs) == 0 {
		return "", false
	}
	return tvs[0], true
}

// TvTickersFor returns every tv ticker mapped to inv, sorted.
func (r *TickerRepo) TvTickersFor(inv model.InvestingTicker) []model.TvTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedSet(r.reverse[inv])
}

// ReverseIndex returns a copy of the reverse index with sorted values.
func (r *TickerRepo) ReverseIndex() map[model.InvestingTicker][]model.TvTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[model.InvestingTicker][]model.TvTicker, len(r.reverse))
	for inv, set := range r.reverse {
		out[inv] = sortedSet(set)
	}
	return out
}

// Keys returns every tv ticker with a mapping, sorted.
func (r *TickerRepo) Keys() []model.TvTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.forward)
}

// Len returns the number of tv → investing edges.
func (r *TickerRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.forward)
}

// All returns a copy of the forward table.
func (r *TickerRepo) All() map[model.TvTicker]model.InvestingTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[model.TvTicker]model.InvestingTicker, len(r.forward))
	for tv, inv := range r.forward {
		out[tv] = inv
	}
	return out
}

func (r *TickerRepo) replace(m map[model.TvTicker]model.InvestingTicker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forward = make(map[model.TvTicker]model.InvestingTicker, len(m))
	r.reverse = make(map[model.InvestingTicker]map[model.TvTicker]struct{})
	for tv, inv := range m {
		r.forward[tv] = inv
		if r.reverse[inv] == nil {
			r.reverse[inv] = make(map[model.TvTicker]struct{})
		}
		r.reverse[inv][tv] = struct{}{}
	}
}

func sortedSet[T ~string](set map[T]struct{}) []T {
	out := make([]T, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
