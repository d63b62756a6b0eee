// Package rank chooses a canonical alias among tickers competing for one
// identity.
//
// Competing sets arise in two ways: several investing tickers whose PairInfo
// share a pairId, and several tv tickers reverse-mapping to one investing
// ticker. Each candidate is scored from read-only repository state and the
// candidates are returned best first. Ranking never mutates anything and
// returns the same order for the same state.
package rank

import (
	"sort"
	"strings"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

// Signal weights.
const (
	WeightAlert             = 100
	WeightWatched           = 50
	WeightRecentVisit       = 10
	WeightSequence          = 5
	WeightExchangeOverride  = 5
	WeightPairMapping       = 1
	WeightHTMLEncoded       = -500
	WeightPreferredExchange = 15
	WeightRawAmpersand      = 2
)

// Signals is the evidence gathered for one candidate.
type Signals struct {
	AlertCount        int  `json:"alert_count"`
	Watched           bool `json:"watched"`
	RecentVisit       bool `json:"recent_visit"`
	Sequence          bool `json:"sequence"`
	ExchangeOverride  bool `json:"exchange_override"`
	PairMapping       bool `json:"pair_mapping"`
	HTMLEncoded       bool `json:"html_encoded"`
	PreferredExchange bool `json:"preferred_exchange"`
	RawAmpersand      bool `json:"raw_ampersand"`
}

// Score applies the signal weights.
func (s Signals) Score() int {
	score := WeightAlert * s.AlertCount
	score += weigh(s.Watched, WeightWatched)
	score += weigh(s.RecentVisit, WeightRecentVisit)
	score += weigh(s.Sequence, WeightSequence)
	score += weigh(s.ExchangeOverride, WeightExchangeOverride)
	score += weigh(s.PairMapping, WeightPairMapping)
	score += weigh(s.HTMLEncoded, WeightHTMLEncoded)
	score += weigh(s.PreferredExchange, WeightPreferredExchange)
	score += weigh(s.RawAmpersand, WeightRawAmpersand)
	return score
}

func weigh(b bool, w int) int {
	if b {
		return w
	}
	return 0
}

// Ranked is one scored candidate.
type Ranked struct {
	Ticker  string  `json:"ticker"`
	Score   int     `json:"score"`
	Signals Signals `json:"signals"`
}

// Ranker scores candidates against the repositories.
type Ranker struct {
	repos     *repo.Set
	preferred map[string]struct{}
}

// New creates a Ranker. preferredExchanges are matched case-insensitively.
func New(repos *repo.Set, preferredExchanges []string) *Ranker {
	preferred := make(map[string]struct{}, len(preferredExchanges))
	for _, e := range preferredExchanges {
		preferred[strings.ToUpper(e)] = struct{}{}
	}
	return &Ranker{repos: repos, preferred: preferred}
}

// RankInvestingTickers orders investing tickers sharing a pairId, canonical first.
func (r *Ranker) RankInvestingTickers(candidates []model.InvestingTicker) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, inv := range dedupe(candidates) {
		s := r.investingSignals(inv)
		out = append(out, Ranked{Ticker: string(inv), Score: s.Score(), Signals: s})
	}
	sortRanked(out, false)
	return out
}

// RankTvTickers orders tv tickers sharing an investing ticker, canonical
// first. Equal scores prefer the shorter ticker.
func (r *Ranker) RankTvTickers(candidates []model.TvTicker) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, tv := range dedupe(candidates) {
		s := r.tvSignals(tv)
		out = append(out, Ranked{Ticker: string(tv), Score: s.Score(), Signals: s})
	}
	sortRanked(out, true)
	return out
}

// sortRanked puts clean aliases before HTML-encoded ones regardless of
// score, then orders by score, then (optionally) length, then lexically.
func sortRanked(out []Ranked, shorterWins bool) {
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Signals.HTMLEncoded != b.Signals.HTMLEncoded {
			return !a.Signals.HTMLEncoded
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if shorterWins && len(a.Ticker) != len(b.Ticker) {
			return len(a.Ticker) < len(b.Ticker)
		}
		return a.Ticker < b.Ticker
	})
}

func (r *Ranker) investingSignals(inv model.InvestingTicker) Signals {
	s := Signals{
		HTMLEncoded:  model.IsHTMLEncoded(string(inv)),
		RawAmpersand: model.HasRawAmpersand(string(inv)),
	}
	if info, ok := r.repos.Pairs.Get(inv); ok {
		s.PairMapping = true
		s.AlertCount = r.repos.Alerts.Count(info.PairID)
		s.PreferredExchange = r.isPreferred(info.Exchange)
	}
	for _, tv := range r.repos.Tickers.TvTickersFor(inv) {
		r.addTvSignals(&s, tv)
	}
	return s
}

func (r *Ranker) tvSignals(tv model.TvTicker) Signals {
	s := Signals{
		HTMLEncoded:  model.IsHTMLEncoded(string(tv)),
		RawAmpersand: model.HasRawAmpersand(string(tv)),
	}
	r.addTvSignals(&s, tv)

	exchange := ""
	if qualified, ok := r.repos.Exchanges.Get(tv); ok {
		exchange, _, _ = strings.Cut(qualified, ":")
	}
	if inv, ok := r.repos.Tickers.Get(tv); ok {
		if info, ok := r.repos.Pairs.Get(inv); ok {
			s.PairMapping = true
			s.AlertCount = r.repos.Alerts.Count(info.PairID)
			if exchange == "" {
				exchange = info.Exchange
			}
		}
	}
	s.PreferredExchange = r.isPreferred(exchange)
	return s
}

// addTvSignals ORs the tv-keyed signals of tv into s.
func (r *Ranker) addTvSignals(s *Signals, tv model.TvTicker) {
	s.Watched = s.Watched || len(r.repos.Watch.IndicesOf(tv)) > 0
	s.RecentVisit = s.RecentVisit || r.repos.Recent.Has(tv)
	s.Sequence = s.Sequence || r.repos.Sequences.Has(tv)
	s.ExchangeOverride = s.ExchangeOverride || r.repos.Exchanges.Has(tv)
}

func (r *Ranker) isPreferred(exchange string) bool {
	if exchange == "" {
		return false
	}
	_, ok := r.preferred[strings.ToUpper(exchange)]
	return ok
}

func dedupe[T ~string](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
