package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/testutil"
)

func tickers(ranked []Ranked) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Ticker
	}
	return out
}

func TestRankInvestingTickers_Signals(t *testing.T) {
	set := testutil.Repos(t, testutil.RelianceSnapshot)
	set.Pairs.Set("RELIANCE-BSE", model.PairInfo{Name: "Reliance Industries", PairID: "101", Exchange: "BSE", Symbol: "RELIANCE-BSE"})
	r := New(set, []string{"nse"})

	ranked := r.RankInvestingTickers([]model.InvestingTicker{"RELIANCE-BSE", "RELIANCE"})
	require.Len(t, ranked, 2)
	assert.Equal(t, []string{"RELIANCE", "RELIANCE-BSE"}, tickers(ranked))

	top := ranked[0].Signals
	assert.Equal(t, 2, top.AlertCount)
	assert.True(t, top.Watched)
	assert.True(t, top.RecentVisit)
	assert.True(t, top.Sequence)
	assert.True(t, top.ExchangeOverride)
	assert.True(t, top.PairMapping)
	assert.True(t, top.PreferredExchange)
	assert.Equal(t, 200+50+10+5+5+1+15, ranked[0].Score)

	// Same pairId, so the same alerts, but nothing tv-side and a BSE listing.
	assert.Equal(t, 200+1, ranked[1].Score)
}

func TestRankInvestingTickers_EncodedAliasNeverWins(t *testing.T) {
	set := testutil.Repos(t, `
pair:
  "M&M": {name: Mahindra, pairId: "104", exchange: BSE, symbol: "M&M"}
  "M&amp;M": {name: Mahindra, pairId: "104", exchange: NSE, symbol: "M&amp;M"}
ticker:
  "M&amp;M": "M&amp;M"
recent:
  "M&amp;M": 1705310100000
watch:
  0: ["M&amp;M"]
alert:
  "104":
    - {id: a-4, price: "1500"}
`)
	r := New(set, []string{"NSE"})

	ranked := r.RankInvestingTickers([]model.InvestingTicker{"M&amp;M", "M&M"})
	assert.Equal(t, []string{"M&M", "M&amp;M"}, tickers(ranked))
	assert.True(t, ranked[1].Signals.HTMLEncoded)
	assert.True(t, ranked[0].Signals.RawAmpersand)
	assert.Less(t, ranked[1].Score, 0)
}

func TestRankInvestingTickers_Deterministic(t *testing.T) {
	set := testutil.Repos(t, `
pair:
  B: {name: x, pairId: "7", exchange: NSE, symbol: B}
  A: {name: x, pairId: "7", exchange: NSE, symbol: A}
  C: {name: x, pairId: "7", exchange: NSE, symbol: C}
`)
	r := New(set, nil)

	want := []string{"A", "B", "C"}
	orders := [][]model.InvestingTicker{
		{"A", "B", "C"},
		{"C", "B", "A"},
		{"B", "C", "A", "B"},
	}
	for _, in := range orders {
		assert.Equal(t, want, tickers(r.RankInvestingTickers(in)), "input %v", in)
	}
}

func TestRankTvTickers_ShorterWinsOnTie(t *testing.T) {
	set := testutil.Repos(t, `
ticker:
  TCS: TCS
  NSE:TCS: TCS
  BSE:TCS: TCS
`)
	r := New(set, nil)

	ranked := r.RankTvTickers([]model.TvTicker{"NSE:TCS", "TCS", "BSE:TCS"})
	assert.Equal(t, []string{"TCS", "BSE:TCS", "NSE:TCS"}, tickers(ranked))
}

func TestRankTvTickers_SignalsBeatLength(t *testing.T) {
	set := testutil.Repos(t, `
ticker:
  TCS: TCS
  NSE:TCS: TCS
exchange:
  NSE:TCS: NSE:NSE:TCS
watch:
  1: [NSE:TCS]
`)
	r := New(set, []string{"NSE"})

	ranked := r.RankTvTickers([]model.TvTicker{"TCS", "NSE:TCS"})
	assert.Equal(t, []string{"NSE:TCS", "TCS"}, tickers(ranked))
	assert.True(t, ranked[0].Signals.PreferredExchange, "exchange comes from the override prefix")
}

func TestSignals_Score(t *testing.T) {
	assert.Zero(t, Signals{}.Score())
	assert.Equal(t, WeightAlert*3+WeightHTMLEncoded, Signals{AlertCount: 3, HTMLEncoded: true}.Score())
}
