package harness

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/audit/plugins"
	"github.com/roach88/tickerguard/internal/audit/section"
	"github.com/roach88/tickerguard/internal/category"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, s.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

func tcsSeed() repo.Snapshot {
	return repo.Snapshot{
		Ticker: map[model.TvTicker]model.InvestingTicker{"TCS": "TCS"},
		Pair: map[model.InvestingTicker]model.PairInfo{
			"TCS": {Name: "Tata Consultancy Services", PairID: "102", Exchange: "NSE", Symbol: "TCS"},
		},
	}
}

func TestRun_FinalAuditWhenNoAuditStep(t *testing.T) {
	s := &Scenario{
		Name:        "final_audit",
		Description: "findings come from an implicit full audit",
		Seed: repo.Snapshot{
			Ticker: map[model.TvTicker]model.InvestingTicker{"FOO": "FOO"},
		},
		Assertions: []Assertion{
			{Type: AssertFinding, Plugin: plugins.IDAlertsCoverage, Code: plugins.CodeNoPairInfo, Target: "FOO"},
			{Type: AssertFinding, Plugin: plugins.IDStaleReview, Code: plugins.CodeNeverVisited, Target: "FOO"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
	assert.NotEmpty(t, result.Findings)
}

func TestRun_FailingAssertionIsReported(t *testing.T) {
	s := &Scenario{
		Name:        "failing",
		Description: "asserts a finding that cannot exist",
		Seed:        tcsSeed(),
		Steps:       []Step{{Audit: &AuditStep{Plugins: []string{plugins.IDIntegrity}}}},
		Assertions: []Assertion{
			{Type: AssertFinding, Plugin: plugins.IDIntegrity, Code: plugins.CodeNoTvMapping, Target: "TCS"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0] (finding)")

	out := string(Render(s.Name, result))
	assert.Contains(t, out, "result: FAIL\n")
	assert.Contains(t, out, "no integrity finding NO_TV_MAPPING")
}

func TestRun_MapByQuery(t *testing.T) {
	s := &Scenario{
		Name:        "map_query",
		Description: "maps through symbol search",
		Platform: PlatformSeed{Pairs: []model.PairInfo{
			{Name: "Infosys", PairID: "103", Exchange: "NSE", Symbol: "INFY"},
		}},
		Steps: []Step{{Map: &MapStep{Tv: "INFY", Query: "infosys"}}},
		Assertions: []Assertion{
			{Type: AssertMapped, Tv: "INFY", Investing: "INFY"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "map INFY -> INFY (pairId 103) mapped", result.Trace[0].Summary)
}

func TestRun_MapByQueryWithoutResults(t *testing.T) {
	s := &Scenario{
		Name:        "map_nothing",
		Description: "search finds nothing",
		Steps:       []Step{{Map: &MapStep{Tv: "INFY", Query: "infosys"}}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no search results for "infosys"`)
}

func TestRun_AlertStep(t *testing.T) {
	count := 1
	s := &Scenario{
		Name:        "alert",
		Description: "creates an alert remotely and mirrors it",
		Seed:        tcsSeed(),
		Steps:       []Step{{Alert: &AlertStep{Investing: "TCS", Price: "3500"}}},
		Assertions: []Assertion{
			{Type: AssertAlerts, PairID: "102", Count: &count},
			{Type: AssertFinding, Plugin: plugins.IDAlertsCoverage, Code: plugins.CodeSingleAlert, Target: "TCS"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "alert TCS pairId 102 at 3500", result.Trace[0].Summary)
}

func TestRun_FixWithoutFixAll(t *testing.T) {
	s := &Scenario{
		Name:        "no_fix_all",
		Description: "alerts coverage has no bulk fix",
		Seed:        tcsSeed(),
		Steps:       []Step{{Fix: &FixStep{Plugin: plugins.IDAlertsCoverage}}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, section.ErrNoFixAll))
	assert.Contains(t, err.Error(), "step 1 (fix)")
}

func TestRun_RecordIntoDerivedSlot(t *testing.T) {
	s := &Scenario{
		Name:        "derived",
		Description: "the default watch list cannot be recorded into",
		Seed:        tcsSeed(),
		Steps: []Step{{RecordCategory: &CategoryStep{
			Family: model.FamilyWatch, Index: int(model.DefaultIndex), Tickers: []model.TvTicker{"TCS"},
		}}},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, category.ErrDerivedIndex))
}

func TestRun_InvalidSeed(t *testing.T) {
	s := &Scenario{
		Name:        "bad_seed",
		Description: "watch index out of range",
		Seed: repo.Snapshot{
			Watch: map[int][]model.TvTicker{9: {"TCS"}},
		},
	}

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed")
}

func TestRun_ClockOverride(t *testing.T) {
	s := &Scenario{
		Name:        "clock",
		Description: "starts the wall clock at a fixed instant",
		Clock:       "2025-06-01T00:00:00Z",
		Steps:       []Step{{Advance: "90m"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "advance 1h30m0s to 2025-06-01T01:30:00Z", result.Trace[0].Summary)
}
