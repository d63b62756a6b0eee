package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/repo"
)

func TestMatchFinding(t *testing.T) {
	f := audit.Finding{
		PluginID: "integrity",
		Code:     "NO_TV_MAPPING",
		Target:   "INFY",
		Severity: audit.SeverityHigh,
		Status:   audit.StatusFail,
	}

	assert.True(t, matchFinding(Assertion{Code: "NO_TV_MAPPING", Target: "INFY"}, f))
	assert.True(t, matchFinding(Assertion{Severity: "HIGH"}, f))
	assert.False(t, matchFinding(Assertion{Code: "NO_TV_MAPPING", Status: "PASS"}, f))
	assert.False(t, matchFinding(Assertion{Target: "TCS"}, f))
	assert.False(t, matchFinding(Assertion{Severity: "LOW"}, f))

	pass := audit.Pass("integrity", "TCS")
	assert.False(t, matchFinding(Assertion{Target: "TCS"}, pass), "status defaults to FAIL")
	assert.True(t, matchFinding(Assertion{Target: "TCS", Status: "PASS"}, pass))
}

func newTestHarness(t *testing.T, seed repo.Snapshot) *Harness {
	t.Helper()
	h, err := newHarness(&Scenario{Name: "t", Description: "t", Seed: seed})
	require.NoError(t, err)
	return h
}

func TestCheck_Member(t *testing.T) {
	h := newTestHarness(t, repo.Snapshot{
		Watch: map[int][]model.TvTicker{2: {"TCS"}},
	})
	two, three := 2, 3

	require.NoError(t, h.check(Assertion{Type: AssertMember, Family: model.FamilyWatch, Index: &two, Tv: "TCS"}, nil))
	require.NoError(t, h.check(Assertion{Type: AssertMember, Family: model.FamilyWatch, Index: &three, Tv: "TCS", Absent: true}, nil))

	err := h.check(Assertion{Type: AssertMember, Family: model.FamilyWatch, Index: &three, Tv: "TCS"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TCS is not in watch[3]")

	err = h.check(Assertion{Type: AssertMember, Family: model.FamilyWatch, Index: &two, Tv: "TCS", Absent: true}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TCS is in watch[2]")
}

func TestCheck_Mapped(t *testing.T) {
	h := newTestHarness(t, repo.Snapshot{
		Ticker: map[model.TvTicker]model.InvestingTicker{"TCS": "TCS-NSE"},
	})

	require.NoError(t, h.check(Assertion{Type: AssertMapped, Tv: "TCS", Investing: "TCS-NSE"}, nil))
	require.NoError(t, h.check(Assertion{Type: AssertMapped, Tv: "INFY"}, nil))

	err := h.check(Assertion{Type: AssertMapped, Tv: "TCS"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still mapped to TCS-NSE")

	err = h.check(Assertion{Type: AssertMapped, Tv: "TCS", Investing: "TCS"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want TCS")

	err = h.check(Assertion{Type: AssertMapped, Tv: "INFY", Investing: "INFY"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFY is not mapped")
}

func TestCheck_FindingKinds(t *testing.T) {
	h := newTestHarness(t, repo.Snapshot{})
	findings := []audit.Finding{
		{PluginID: "integrity", Code: "NO_TV_MAPPING", Target: "INFY", Severity: audit.SeverityHigh, Status: audit.StatusFail},
		audit.Pass("stale-review", "TCS"),
	}

	require.NoError(t, h.check(Assertion{Type: AssertFinding, Plugin: "integrity", Code: "NO_TV_MAPPING", Target: "INFY"}, findings))
	require.Error(t, h.check(Assertion{Type: AssertFinding, Plugin: "stale-review", Code: "NO_TV_MAPPING", Target: "INFY"}, findings))

	require.NoError(t, h.check(Assertion{Type: AssertNoFinding, Plugin: "integrity", Target: "TCS"}, findings))
	require.Error(t, h.check(Assertion{Type: AssertNoFinding, Plugin: "integrity", Target: "INFY"}, findings))

	require.NoError(t, h.check(Assertion{Type: AssertEmpty, Plugin: "stale-review"}, findings))
	err := h.check(Assertion{Type: AssertEmpty, Plugin: "integrity"}, findings)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "got 1")
}

func TestCheck_AlertsAndDrift(t *testing.T) {
	h := newTestHarness(t, repo.Snapshot{
		Alert: map[model.PairID][]model.Alert{"102": {{ID: "a-3"}}},
		Drift: map[string]repo.DriftEntry{"a-9": {Alert: model.Alert{ID: "a-9", PairID: "104"}, Reason: "timeout"}},
	})
	one, zero := 1, 0

	require.NoError(t, h.check(Assertion{Type: AssertAlerts, PairID: "102", Count: &one}, nil))
	require.Error(t, h.check(Assertion{Type: AssertAlerts, PairID: "102", Count: &zero}, nil))

	require.NoError(t, h.check(Assertion{Type: AssertDrift, AlertID: "a-9"}, nil))
	require.NoError(t, h.check(Assertion{Type: AssertDrift, AlertID: "a-3", Absent: true}, nil))
	require.Error(t, h.check(Assertion{Type: AssertDrift, AlertID: "a-9", Absent: true}, nil))

	err := h.check(Assertion{Type: AssertRemoteDeleted, AlertID: "a-3"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not deleted remotely")
}
