package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/testutil"
)

func testRun(id string, at time.Time) AuditRun {
	return AuditRun{
		ID:             id,
		StartedAt:      at,
		Duration:       1500 * time.Millisecond,
		SnapshotDigest: "abc",
		Targets:        []string{"M&M"},
		Findings: []audit.Finding{
			{
				PluginID: "stale-review",
				Code:     "NEVER_VISITED",
				Target:   "M&M",
				Message:  "M&M has never been visited",
				Severity: audit.SeverityHigh,
				Status:   audit.StatusFail,
			},
			{
				PluginID: "duplicate-pairids",
				Code:     "DUPLICATE_PAIR_ID",
				Target:   "101",
				Message:  "dup",
				Severity: audit.SeverityMedium,
				Status:   audit.StatusFail,
				Data:     map[string]any{"aliases": []string{"RELIANCE&amp;"}, "count": 2},
			},
			audit.Pass("alerts-coverage", "M&M"),
		},
		Errors: map[string]string{"trade-risk": "fetch orders: offline"},
	}
}

func TestWriteAuditRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteAuditRun(ctx, testRun("run-1", testutil.Epoch)))

	got, err := s.ReadAuditRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.ID)
	assert.True(t, got.StartedAt.Equal(testutil.Epoch))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, []string{"M&M"}, got.Targets)
	require.Len(t, got.Findings, 3)
	assert.Equal(t, "NEVER_VISITED", got.Findings[0].Code)
	assert.Equal(t, audit.SeverityHigh, got.Findings[0].Severity)
	assert.Nil(t, got.Findings[0].Data)
	assert.Equal(t, []any{"RELIANCE&amp;"}, got.Findings[1].Data["aliases"])
	assert.Equal(t, json.Number("2"), got.Findings[1].Data["count"])
	assert.Equal(t, audit.StatusPass, got.Findings[2].Status)
	assert.Equal(t, map[string]string{"trade-risk": "fetch orders: offline"}, got.Errors)
}

func TestWriteAuditRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := testRun("run-1", testutil.Epoch)
	require.NoError(t, s.WriteAuditRun(ctx, run))
	require.NoError(t, s.WriteAuditRun(ctx, run))

	got, err := s.ReadAuditRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got.Findings, 3)
}

func TestReadAuditRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadAuditRun(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = s.LatestAuditRun(context.Background())
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListAuditRuns_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteAuditRun(ctx, testRun("run-1", testutil.Epoch)))
	require.NoError(t, s.WriteAuditRun(ctx, testRun("run-2", testutil.Epoch.Add(time.Hour))))
	empty := AuditRun{ID: "run-3", StartedAt: testutil.Epoch.Add(2 * time.Hour), SnapshotDigest: "def"}
	require.NoError(t, s.WriteAuditRun(ctx, empty))

	runs, err := s.ListAuditRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, 0, runs[0].Findings)
	assert.Equal(t, "run-2", runs[1].ID)
	assert.Equal(t, 3, runs[1].Findings)
	assert.Equal(t, 2, runs[1].Failures)

	latest, err := s.LatestAuditRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-3", latest.ID)

	limited, err := s.ListAuditRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFindingHistory(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteAuditRun(ctx, testRun("run-1", testutil.Epoch)))
	require.NoError(t, s.WriteAuditRun(ctx, testRun("run-2", testutil.Epoch.Add(time.Hour))))

	history, err := s.FindingHistory(ctx, "stale-review", "M&M")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run-2", history[0].RunID)
	assert.Equal(t, "run-1", history[1].RunID)
	assert.Equal(t, "NEVER_VISITED", history[0].Finding.Code)

	none, err := s.FindingHistory(ctx, "stale-review", "TCS")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunFromReport(t *testing.T) {
	rep := &audit.Report{
		RunID:     "r",
		StartedAt: testutil.Epoch,
		Results: []audit.PluginResult{
			{PluginID: "a", Findings: []audit.Finding{audit.Pass("a", "X")}, Duration: time.Second},
			{PluginID: "b", Err: errors.New("boom"), Duration: time.Second},
		},
	}

	run := RunFromReport(rep, "digest", []string{"X"})

	assert.Equal(t, "r", run.ID)
	assert.Equal(t, 2*time.Second, run.Duration)
	assert.Len(t, run.Findings, 1)
	assert.Equal(t, map[string]string{"b": "boom"}, run.Errors)
}
