package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/audit/plugins"
	"github.com/roach88/tickerguard/internal/audit/section"
	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/testutil"
)

func newApp(t *testing.T, cfg *config.Config, doc string) (*App, *platform.Memory) {
	t.Helper()
	mem := platform.NewMemory()
	a, err := New(Options{
		Config: cfg,
		Repos:  testutil.Repos(t, doc),
		Alerts: mem,
		Search: mem,
		Orders: mem,
		Now:    testutil.NewClock(testutil.Epoch).Now,
		RunIDs: testutil.NewSequentialIDs("run").Next,
		Logger: testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	return a, mem
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Options{Logger: testutil.DiscardLogger()})
	require.NoError(t, err)

	assert.NotNil(t, a.Config)
	assert.NotNil(t, a.Repos)
	assert.Len(t, a.Runner.Registry().IDs(), 11)
	assert.Len(t, a.Sections.All(), 11)
}

func TestNew_DisabledPlugins(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Disabled = []string{plugins.IDTradeRisk, plugins.IDStaleReview}

	a, _ := newApp(t, cfg, "")

	ids := a.Runner.Registry().IDs()
	assert.Len(t, ids, 9)
	assert.NotContains(t, ids, plugins.IDTradeRisk)
	assert.NotContains(t, ids, plugins.IDStaleReview)
}

func TestNew_RejectsConflictingKiteTable(t *testing.T) {
	cfg := config.Default()
	cfg.Symbols.Kite = map[string]string{"FOO": "M_M"}

	_, err := New(Options{Config: cfg, Logger: testutil.DiscardLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build app")
}

func TestApp_Audit(t *testing.T) {
	a, _ := newApp(t, nil, testutil.RelianceSnapshot)

	report, err := a.Audit(context.Background(), []string{plugins.IDIntegrity}, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-0001", report.RunID)

	failures := audit.Failures(report.Findings())
	require.Len(t, failures, 1)
	assert.Equal(t, plugins.CodeNoTvMapping, failures[0].Code)
	assert.Equal(t, "INFY", failures[0].Target)
}

func TestApp_Fix(t *testing.T) {
	a, mem := newApp(t, nil, testutil.RelianceSnapshot)
	a.Repos.Alerts.Add(model.Alert{ID: "z-1", PairID: "999"})

	n, err := a.Fix(context.Background(), plugins.IDOrphanAlerts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"z-1"}, mem.Deleted())

	report, err := a.Audit(context.Background(), []string{plugins.IDOrphanAlerts}, nil)
	require.NoError(t, err)
	assert.Empty(t, audit.Failures(report.Findings()))
}

func TestApp_FixErrors(t *testing.T) {
	a, _ := newApp(t, nil, "")

	_, err := a.Fix(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown plugin "nope"`)

	_, err = a.Fix(context.Background(), plugins.IDTradeRisk)
	assert.ErrorIs(t, err, section.ErrNoFixAll)
}

func TestApp_FixTargets(t *testing.T) {
	a, _ := newApp(t, nil, testutil.RelianceSnapshot)

	n, err := a.FixTargets(context.Background(), plugins.IDIntegrity, []string{"INFY", "TCS"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, a.Repos.Pairs.Has("INFY"))
	assert.True(t, a.Repos.Pairs.Has("TCS"))

	_, err = a.FixTargets(context.Background(), plugins.IDTradeRisk, nil)
	require.NoError(t, err)

	_, err = a.FixTargets(context.Background(), "nope", []string{"TCS"})
	assert.Error(t, err)
}

func TestApp_Universe(t *testing.T) {
	a, _ := newApp(t, nil, testutil.RelianceSnapshot)

	assert.ElementsMatch(t, []model.TvTicker{"RELIANCE", "TCS", "M&M"}, a.Universe())
}

func TestApp_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(Options{
		Repos:   testutil.Repos(t, testutil.RelianceSnapshot),
		Metrics: audit.NewMetrics(reg),
		Logger:  testutil.DiscardLogger(),
	})
	require.NoError(t, err)

	_, err = a.Audit(context.Background(), []string{plugins.IDIntegrity}, nil)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
