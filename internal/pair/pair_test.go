package pair

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/symbol"
	"github.com/roach88/tickerguard/internal/testutil"
)

type fixture struct {
	manager  *Manager
	repos    *repo.Set
	platform *platform.Memory
	notifier *platform.RecordingNotifier
	dispatch *platform.Dispatcher
}

func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()
	set := testutil.Repos(t, doc)
	logger := testutil.DiscardLogger()
	symbols, err := symbol.New(set.Tickers, set.Exchanges, nil)
	require.NoError(t, err)

	f := &fixture{
		repos:    set,
		platform: platform.NewMemory(),
		notifier: &platform.RecordingNotifier{},
		dispatch: platform.NewDispatcher(logger),
	}
	f.manager, err = New(Deps{
		Repos:      set,
		Symbols:    symbols,
		Categories: category.New(set, logger),
		Alerts:     f.platform,
		Search:     f.platform,
		Dispatcher: f.dispatch,
		Feed:       f.notifier,
		Reporter:   f.notifier,
		Now:        testutil.NewClock(testutil.Epoch).Now,
		Logger:     logger,
	})
	require.NoError(t, err)
	return f
}

func digest(t *testing.T, set *repo.Set) string {
	t.Helper()
	d, err := repo.Digest(set.Snapshot())
	require.NoError(t, err)
	return d
}

const fooDoc = `
pair:
  FOO: {name: Foo Ltd, pairId: "555", exchange: NSE, symbol: FOO}
ticker:
  FOO: FOO
exchange:
  FOO: BSE:FOO
watch:
  1: [FOO]
`

var barPair = model.PairInfo{Name: "Foo Ltd", PairID: "555", Exchange: "NSE", Symbol: "BAR"}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repos is required")
}

func TestMapTicker_NoGuardRails(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	info := model.PairInfo{Name: "Infosys", PairID: "103", Exchange: "NSE", Symbol: "INFY"}
	assert.False(t, f.manager.CheckGuardRails(info, "INFY").RequiresConfirmation())

	ok, err := f.manager.MapTicker(ctx, info, "INFY", NeverConfirm)
	require.NoError(t, err)
	require.True(t, ok, "no step needs confirmation, so refusal is never asked")

	got, ok := f.manager.InvestingTickerToPairInfo("INFY")
	require.True(t, ok)
	assert.Equal(t, info, got)
	inv, _ := f.repos.Tickers.Get("INFY")
	assert.Equal(t, model.InvestingTicker("INFY"), inv)
}

func TestMapTicker_Validation(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.manager.MapTicker(context.Background(), model.PairInfo{Symbol: "INFY"}, "INFY", AlwaysConfirm)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pairId")
}

func TestGuardRail_StalePairAliases(t *testing.T) {
	f := newFixture(t, fooDoc)
	ctx := context.Background()

	g := f.manager.CheckGuardRails(barPair, "BAR")
	require.Len(t, g.Steps, 1)
	assert.Equal(t, KindStalePairAliases, g.Steps[0].Kind)
	assert.Equal(t, []string{"FOO"}, g.Steps[0].Aliases)

	before := digest(t, f.repos)
	ok, err := f.manager.MapTicker(ctx, barPair, "BAR", NeverConfirm)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, digest(t, f.repos), "refusal leaves every repository unchanged")

	ok, err = f.manager.MapTicker(ctx, barPair, "BAR", AlwaysConfirm)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []model.InvestingTicker{"BAR"}, f.repos.Pairs.InvestingTickersFor("555"))
	inv, _ := f.repos.Tickers.Get("BAR")
	assert.Equal(t, model.InvestingTicker("BAR"), inv)

	// Only the stale Pair entry goes; FOO's own records stay for the
	// operator to review.
	inv, ok = f.repos.Tickers.Get("FOO")
	require.True(t, ok)
	assert.Equal(t, model.InvestingTicker("FOO"), inv)
	assert.True(t, f.repos.Watch.Contains(1, "FOO"))
	assert.Equal(t, "BSE:FOO", f.manager.symbols.TvToExchangeTicker("FOO"))
}

func TestGuardRail_StaleTvAlias(t *testing.T) {
	f := newFixture(t, `
pair:
  BAR: {name: Bar Ltd, pairId: "556", exchange: NSE, symbol: BAR}
ticker:
  OLD: BAR
`)
	selected := model.PairInfo{Name: "Bar Ltd", PairID: "556", Exchange: "NSE", Symbol: "BAR"}

	g := f.manager.CheckGuardRails(selected, "NEW")
	require.Len(t, g.Steps, 1)
	assert.Equal(t, KindStaleTvAlias, g.Steps[0].Kind)
	assert.Equal(t, []string{"OLD"}, g.Steps[0].Aliases)

	// Remapping the same tv ticker is not a collision.
	assert.False(t, f.manager.CheckGuardRails(selected, "OLD").RequiresConfirmation())

	ok, err := f.manager.MapTicker(context.Background(), selected, "NEW", AlwaysConfirm)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []model.TvTicker{"NEW"}, f.repos.Tickers.TvTickersFor("BAR"))
}

func TestGuardRail_RefusalAtSecondStepIsAtomic(t *testing.T) {
	f := newFixture(t, `
pair:
  FOO: {name: Foo Ltd, pairId: "555", exchange: NSE, symbol: FOO}
  BAR: {name: Foo Ltd, pairId: "555", exchange: NSE, symbol: BAR}
ticker:
  OLD: BAR
`)
	g := f.manager.CheckGuardRails(barPair, "NEW")
	require.Len(t, g.Steps, 2)
	assert.Equal(t, KindStalePairAliases, g.Steps[0].Kind)
	assert.Equal(t, KindStaleTvAlias, g.Steps[1].Kind)

	var asked []ConfirmationKind
	answers := []bool{true, false}
	confirm := ConfirmFunc(func(_ context.Context, c Confirmation) (bool, error) {
		asked = append(asked, c.Kind)
		answer := answers[0]
		answers = answers[1:]
		return answer, nil
	})

	before := digest(t, f.repos)
	ok, err := f.manager.MapTicker(context.Background(), barPair, "NEW", confirm)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []ConfirmationKind{KindStalePairAliases, KindStaleTvAlias}, asked)
	assert.Equal(t, before, digest(t, f.repos))
}

func TestGuardRail_ConfirmerError(t *testing.T) {
	f := newFixture(t, fooDoc)
	boom := errors.New("prompt closed")
	_, err := f.manager.MapTicker(context.Background(), barPair, "BAR",
		ConfirmFunc(func(context.Context, Confirmation) (bool, error) { return false, boom }))
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

// After stopping a ticker nothing anywhere refers to it.
func TestStopTrackingByInvestingTicker_CascadeCompleteness(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)
	f.repos.Tickers.Set("NSE:RELIANCE", "RELIANCE")

	cleaned := f.manager.StopTrackingByInvestingTicker(context.Background(), "RELIANCE")
	f.dispatch.Wait()
	assert.True(t, cleaned)

	r := f.repos
	assert.False(t, r.Pairs.Has("RELIANCE"))
	assert.Empty(t, r.Tickers.TvTickersFor("RELIANCE"))
	for _, tv := range []model.TvTicker{"RELIANCE", "NSE:RELIANCE"} {
		assert.False(t, r.Tickers.Has(tv))
		assert.False(t, r.Exchanges.Has(tv))
		assert.False(t, r.Sequences.Has(tv))
		assert.False(t, r.Recent.Has(tv))
		assert.Empty(t, r.Watch.IndicesOf(tv))
		assert.Empty(t, r.Flags.IndicesOf(tv))
	}
	assert.Zero(t, r.Alerts.Count("101"))
	assert.ElementsMatch(t, []string{"a-1", "a-2"}, f.platform.Deleted())
	assert.ElementsMatch(t, []model.TvTicker{"RELIANCE", "NSE:RELIANCE"}, f.notifier.Repaints())

	// Everything else survives.
	assert.True(t, r.Pairs.Has("TCS"))
	assert.Equal(t, 1, r.Alerts.Count("102"))
	assert.Zero(t, r.Drift.Len())
}

func TestStopTrackingByTvTicker(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)
	ctx := context.Background()

	assert.False(t, f.manager.StopTrackingByTvTicker(ctx, "TCS"))
	f.dispatch.Wait()
	assert.False(t, f.repos.Pairs.Has("TCS"))
	assert.Equal(t, []string{"a-3"}, f.platform.Deleted())

	// An unmapped tv ticker only loses its tv-keyed records.
	f.repos.Recent.Set("GHOST", 1)
	f.repos.Watch.Add(3, "GHOST")
	assert.True(t, f.manager.StopTrackingByTvTicker(ctx, "GHOST"))
	assert.False(t, f.repos.Recent.Has("GHOST"))
	assert.Equal(t, 3, f.repos.Pairs.Len())
}

func TestStopTracking_RemoteFailureRecordsDrift(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)
	ctx := context.Background()
	f.platform.SetDeleteErr(errors.New("remote unavailable"))

	f.manager.StopTrackingByInvestingTicker(ctx, "M&M")
	f.dispatch.Wait()

	assert.Zero(t, f.repos.Alerts.Count("104"), "local state is dropped regardless")
	assert.Equal(t, []string{"a-4", "a-5"}, f.repos.Drift.Keys())
	entry, _ := f.repos.Drift.Get("a-4")
	assert.Equal(t, model.PairID("104"), entry.Alert.PairID)
	assert.Equal(t, "delete alert a-4: remote unavailable", entry.Reason)
	assert.Equal(t, testutil.Epoch.UnixMilli(), entry.FailedAt)
	assert.Len(t, f.notifier.Reports(), 2)

	n, err := f.manager.RetryDrift(ctx)
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, f.repos.Drift.Len())

	f.platform.SetDeleteErr(nil)
	n, err = f.manager.RetryDrift(ctx, "a-5", "unknown")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"a-4"}, f.repos.Drift.Keys())

	n, err = f.manager.RetryDrift(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, f.repos.Drift.Len())
	assert.Equal(t, []string{"a-5", "a-4"}, f.platform.Deleted())
}

func TestRemovePairByInvestingTicker(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)

	assert.True(t, f.manager.RemovePairByInvestingTicker("TCS"))
	assert.False(t, f.manager.RemovePairByInvestingTicker("TCS"))
	assert.True(t, f.repos.Tickers.Has("TCS"), "only the pair entry is removed")
	assert.Equal(t, 1, f.repos.Alerts.Count("102"))
}

func TestDeleteAlertsForPairID(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)
	ctx := context.Background()

	assert.Equal(t, 2, f.manager.DeleteAlertsForPairID(ctx, "104"))
	assert.Zero(t, f.manager.DeleteAlertsForPairID(ctx, "104"))
	f.dispatch.Wait()
	assert.ElementsMatch(t, []string{"a-4", "a-5"}, f.platform.Deleted())
}

func TestCreateAlert(t *testing.T) {
	f := newFixture(t, testutil.RelianceSnapshot)
	ctx := context.Background()
	price := decimal.RequireFromString("1450.5")

	alert, err := f.manager.CreateAlert(ctx, "INFY", price, price)
	require.NoError(t, err)
	assert.Equal(t, model.PairID("103"), alert.PairID)
	assert.NotEmpty(t, alert.ID)
	assert.Equal(t, 1, f.repos.Alerts.Count("103"))
	assert.Len(t, f.platform.Alerts(), 1)

	_, err = f.manager.CreateAlert(ctx, "NOPE", price, price)
	assert.True(t, model.IsReferenceError(err))

	_, err = f.manager.CreateAlert(ctx, "INFY", decimal.Zero, price)
	require.Error(t, err)
	assert.Equal(t, 1, f.repos.Alerts.Count("103"), "failed creation is not mirrored")
	require.Len(t, f.notifier.Reports(), 1)
	assert.Contains(t, f.notifier.Reports()[0], "alert creation failed")
}

func TestSearchPairs(t *testing.T) {
	f := newFixture(t, "")
	f.platform.AddPairs(
		model.PairInfo{Name: "Infosys", PairID: "103", Exchange: "NSE", Symbol: "INFY"},
		model.PairInfo{Name: "Tata Consultancy Services", PairID: "102", Exchange: "NSE", Symbol: "TCS"},
	)

	pairs, err := f.manager.SearchPairs(context.Background(), "infy")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, model.PairID("103"), pairs[0].PairID)

	_, err = f.manager.SearchPairs(context.Background(), "  ")
	require.Error(t, err)
	assert.Len(t, f.notifier.Reports(), 1)
}
