package repo

import (
	"time"

	"github.com/roach88/tickerguard/internal/model"
)

// PairRepo maps investing tickers to PairInfo.
type PairRepo struct {
	kv[model.InvestingTicker, model.PairInfo]
}

// NewPairRepo creates an empty Pair repository.
func NewPairRepo() *PairRepo {
	r := &PairRepo{}
	r.init()
	return r
}

// InvestingTickersFor returns every investing ticker whose PairInfo carries pairID.
func (r *PairRepo) InvestingTickersFor(pairID model.PairID) []model.InvestingTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.InvestingTicker
	for _, inv := range sortedKeys(r.m) {
		if r.m[inv].PairID == pairID {
			out = append(out, inv)
		}
	}
	return out
}

// ByPairID groups every investing ticker by its pairId.
func (r *PairRepo) ByPairID() map[model.PairID][]model.InvestingTicker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[model.PairID][]model.InvestingTicker)
	for _, inv := range sortedKeys(r.m) {
		pid := r.m[inv].PairID
		out[pid] = append(out[pid], inv)
	}
	return out
}

// HasPairID reports whether any investing ticker maps to pairID.
func (r *PairRepo) HasPairID(pairID model.PairID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, info := range r.m {
		if info.PairID == pairID {
			return true
		}
	}
	return false
}

// ExchangeRepo maps tv tickers to an exchange-qualified ticker ("NSE:FOO").
type ExchangeRepo struct {
	kv[model.TvTicker, string]
}

// NewExchangeRepo creates an empty Exchange repository.
func NewExchangeRepo() *ExchangeRepo {
	r := &ExchangeRepo{}
	r.init()
	return r
}

// SequenceRepo maps tv tickers to their preferred analysis sequence.
type SequenceRepo struct {
	kv[model.TvTicker, model.Sequence]
}

// NewSequenceRepo creates an empty Sequence repository.
func NewSequenceRepo() *SequenceRepo {
	r := &SequenceRepo{}
	r.init()
	return r
}

// RecentRepo maps tv tickers to their last visit in epoch milliseconds.
type RecentRepo struct {
	kv[model.TvTicker, int64]
}

// NewRecentRepo creates an empty Recent repository.
func NewRecentRepo() *RecentRepo {
	r := &RecentRepo{}
	r.init()
	return r
}

// Visit records a visit to tv at the given time.
func (r *RecentRepo) Visit(tv model.TvTicker, at time.Time) {
	r.Set(tv, at.UnixMilli())
}

// LastVisit returns the last recorded visit to tv.
func (r *RecentRepo) LastVisit(tv model.TvTicker) (time.Time, bool) {
	ms, ok := r.Get(tv)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
