// Package symbol translates instrument identifiers between namespaces.
//
// The manager is a thin layer over the Ticker and Exchange repositories plus
// a static kite substitution table. Tickers missing from the table get '-'
// and '&' replaced by '_' when no other known tv ticker claims the same kite
// symbol. The manager performs no validation: guarding against duplicate or
// colliding mappings is the pair manager's job.
package symbol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

// DefaultKiteTable pins the kite symbol of well-known punctuated tickers.
var DefaultKiteTable = map[model.TvTicker]model.KiteSymbol{
	"M&M":        "M_M",
	"M&MFIN":     "M_MFIN",
	"BAJAJ-AUTO": "BAJAJ_AUTO",
	"L&TFH":      "L_TFH",
	"J&KBANK":    "J_KBANK",
	"ARE&M":      "ARE_M",
	"NAM-INDIA":  "NAM_INDIA",
	"MCDOWELL-N": "MCDOWELL_N",
	"GMRP&UI":    "GMRP_UI",
	"SURANAT&P":  "SURANAT_P",
}

// Manager translates between the tv, investing, kite and exchange-qualified
// namespaces.
type Manager struct {
	tickers   *repo.TickerRepo
	exchanges *repo.ExchangeRepo

	tvToKite map[model.TvTicker]model.KiteSymbol
	kiteToTv map[model.KiteSymbol]model.TvTicker
}

// New creates a Manager. extra entries are merged over DefaultKiteTable.
// The combined table must be one-to-one so every kite symbol reverses.
func New(tickers *repo.TickerRepo, exchanges *repo.ExchangeRepo, extra map[model.TvTicker]model.KiteSymbol) (*Manager, error) {
	forward := make(map[model.TvTicker]model.KiteSymbol, len(DefaultKiteTable)+len(extra))
	for tv, k := range DefaultKiteTable {
		forward[tv] = k
	}
	for tv, k := range extra {
		forward[tv] = k
	}

	reverse := make(map[model.KiteSymbol]model.TvTicker, len(forward))
	tvs := make([]model.TvTicker, 0, len(forward))
	for tv := range forward {
		tvs = append(tvs, tv)
	}
	sort.Slice(tvs, func(i, j int) bool { return tvs[i] < tvs[j] })
	for _, tv := range tvs {
		k := forward[tv]
		if prev, dup := reverse[k]; dup {
			return nil, fmt.Errorf("kite table: %q and %q both map to %q", prev, tv, k)
		}
		reverse[k] = tv
	}

	return &Manager{
		tickers:   tickers,
		exchanges: exchanges,
		tvToKite:  forward,
		kiteToTv:  reverse,
	}, nil
}

// TvToInvesting returns the investing ticker mapped from tv.
func (m *Manager) TvToInvesting(tv model.TvTicker) (model.InvestingTicker, bool) {
	return m.tickers.Get(tv)
}

// InvestingToTv returns the tv ticker mapped to inv. When inv is unmapped the
// investing string itself is returned as a tv ticker.
func (m *Manager) InvestingToTv(inv model.InvestingTicker) model.TvTicker {
	if tv, ok := m.tickers.ReverseLookup(inv); ok {
		return tv
	}
	return model.TvTicker(inv)
}

// kitePunct is the punctuation kite writes as '_'.
var kitePunct = strings.NewReplacer("-", "_", "&", "_")

// genericKite substitutes kite punctuation in tv.
func genericKite(tv model.TvTicker) model.KiteSymbol {
	return model.KiteSymbol(kitePunct.Replace(string(tv)))
}

// TvToKite translates tv into the order-management namespace. An unlisted
// ticker is substituted generically only when KiteToTv can reverse it; it
// passes through unchanged otherwise.
func (m *Manager) TvToKite(tv model.TvTicker) model.KiteSymbol {
	if k, ok := m.tvToKite[tv]; ok {
		return k
	}
	k := genericKite(tv)
	if string(k) == string(tv) {
		return k
	}
	if _, claimed := m.kiteToTv[k]; claimed {
		return model.KiteSymbol(tv)
	}
	for _, other := range m.tickers.Keys() {
		if other != tv && m.claims(other, k) {
			return model.KiteSymbol(tv)
		}
	}
	return k
}

// KiteToTv is the inverse of TvToKite. A symbol outside the table resolves
// to the one known tv ticker whose generic substitution produces it, or to
// itself when there is none or more than one.
func (m *Manager) KiteToTv(k model.KiteSymbol) model.TvTicker {
	if tv, ok := m.kiteToTv[k]; ok {
		return tv
	}
	var match model.TvTicker
	n := 0
	for _, tv := range m.tickers.Keys() {
		if m.claims(tv, k) {
			match = tv
			n++
		}
	}
	if n == 1 && string(match) != string(k) {
		return match
	}
	return model.TvTicker(k)
}

// claims reports whether tv would translate to k, either literally or by
// generic substitution.
func (m *Manager) claims(tv model.TvTicker, k model.KiteSymbol) bool {
	if _, listed := m.tvToKite[tv]; listed {
		return false
	}
	return string(tv) == string(k) || genericKite(tv) == k
}

// TvToExchangeTicker returns the exchange-qualified ticker for tv, or tv
// itself when no override exists.
func (m *Manager) TvToExchangeTicker(tv model.TvTicker) string {
	if qualified, ok := m.exchanges.Get(tv); ok {
		return qualified
	}
	return string(tv)
}

// CreateTvToInvestingMapping writes the tv → investing edge.
func (m *Manager) CreateTvToInvestingMapping(tv model.TvTicker, inv model.InvestingTicker) {
	m.tickers.Set(tv, inv)
}

// CreateTvToExchangeTickerMapping stores "EXCHANGE:tv" as tv's override.
func (m *Manager) CreateTvToExchangeTickerMapping(tv model.TvTicker, exchange string) {
	m.exchanges.Set(tv, fmt.Sprintf("%s:%s", exchange, tv))
}

// DeleteTvMapping removes the edge from tv.
func (m *Manager) DeleteTvMapping(tv model.TvTicker) bool {
	return m.tickers.Delete(tv)
}

// DeleteInvestingMappings removes every edge pointing at inv.
func (m *Manager) DeleteInvestingMappings(inv model.InvestingTicker) []model.TvTicker {
	return m.tickers.DeleteByInvesting(inv)
}
