package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/testutil"
)

// cliEnv is a temp database seeded from the reliance snapshot.
type cliEnv struct {
	t   *testing.T
	dir string
	db  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	e := &cliEnv{t: t, dir: dir, db: filepath.Join(dir, "tickerguard.db")}
	snapshot := e.writeFile("reliance.yaml", testutil.RelianceSnapshot)
	_, _, err := e.run("", "import", snapshot)
	require.NoError(t, err)
	return e
}

func (e *cliEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the CLI against the env database with stdin as input.
func (e *cliEnv) run(stdin string, args ...string) (string, string, error) {
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", e.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func decodeResponse(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestImportExport_RoundTrip(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "export", "--format", "json")
	require.NoError(t, err)

	snap, err := repo.DecodeSnapshot([]byte(out))
	require.NoError(t, err)
	assert.Len(t, snap.Pair, 4)
	assert.Len(t, snap.Ticker, 3)
	assert.Len(t, snap.Alert["104"], 2)

	// Re-importing the export leaves the same state.
	exported := e.writeFile("export.json", out)
	importOut, _, err := e.run("", "import", exported)
	require.NoError(t, err)
	assert.Contains(t, importOut, "imported 4 pairs, 3 tv tickers, 5 alerts")
}

func TestExport_ToFileAsYAML(t *testing.T) {
	e := newCLIEnv(t)
	target := filepath.Join(e.dir, "backup.yaml")

	_, stderr, err := e.run("", "export", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, stderr, "exported to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	snap, err := repo.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, "Infosys", snap.Pair["INFY"].Name)
}

func TestImport_Errors(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("", "import", filepath.Join(e.dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	bad := e.writeFile("bad.yaml", "bogus: 1\n")
	out, _, err := e.run("", "import", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalid)
}

func TestAudit_IntegrityRecordsHistory(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "audit", "integrity")
	require.NoError(t, err)
	assert.Contains(t, out, "== Integrity (1: 1 HIGH)\n")
	assert.Contains(t, out, "NO_TV_MAPPING INFY")

	out, _, err = e.run("", "audit", "integrity", "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp["status"])
	assert.NotEmpty(t, resp["run_id"])

	histOut, _, err := e.run("", "history", "--format", "json")
	require.NoError(t, err)
	hist := decodeResponse(t, histOut)
	runs, ok := hist["data"].([]any)
	require.True(t, ok)
	assert.Len(t, runs, 2)

	latest, _, err := e.run("", "history", "show", "latest")
	require.NoError(t, err)
	assert.Contains(t, latest, "NO_TV_MAPPING INFY")

	trail, _, err := e.run("", "history", "finding", "integrity", "INFY")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(trail, "NO_TV_MAPPING"))
}

func TestAudit_NoSaveAndStrict(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("", "audit", "integrity", "--no-save", "--strict")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, _, err := e.run("", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit runs recorded.")
}

func TestAudit_UnknownPlugin(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("", "audit", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryShow_UnknownRun(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "history", "show", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestFix_OrphanAlerts(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "fix", "orphan-alerts")
	require.NoError(t, err)
	assert.Contains(t, out, "orphan-alerts: fixed 0")
}

func TestFix_TargetFixesSingleFinding(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "fix", "integrity", "--target", "INFY")
	require.NoError(t, err)
	assert.Contains(t, out, "integrity: fixed 1")

	out, _, err = e.run("", "audit", "integrity")
	require.NoError(t, err)
	assert.NotContains(t, out, "NO_TV_MAPPING")
	assert.Contains(t, out, "0 finding(s)")
}

func TestTranslate(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "translate", "M&M", "RELIANCE", "INFY")
	require.NoError(t, err)
	assert.Contains(t, out, "M&M  investing=M&M pairId=104 kite=M_M exchange=M&M")
	assert.Contains(t, out, "RELIANCE  investing=RELIANCE pairId=101 kite=RELIANCE exchange=NSE:RELIANCE")
	assert.Contains(t, out, "INFY  investing=- pairId=- kite=INFY exchange=INFY")
}

func TestMap_RefusedStepChangesNothing(t *testing.T) {
	e := newCLIEnv(t)

	out, stderr, err := e.run("n\n", "map", "RIL", "--symbol", "RELIANCE", "--pair-id", "101")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Proceed? [y/N]")
	assert.Contains(t, out, ErrCodeRefused)

	out, _, err = e.run("", "translate", "RIL", "RELIANCE")
	require.NoError(t, err)
	assert.Contains(t, out, "RIL  investing=- ")
	assert.Contains(t, out, "RELIANCE  investing=RELIANCE ")
}

func TestMap_AcceptedMovesTvAlias(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "map", "RIL", "--symbol", "RELIANCE", "--pair-id", "101", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "mapped RIL -> RELIANCE (pairId 101)")

	out, _, err = e.run("", "translate", "RIL", "RELIANCE")
	require.NoError(t, err)
	assert.Contains(t, out, "RIL  investing=RELIANCE pairId=101")
	assert.Contains(t, out, "RELIANCE  investing=- ")
}

func TestMap_QueryPicksSearchResult(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "map", "INFY", "--query", "Infosys", "--format", "json")
	require.NoError(t, err)
	resp := decodeResponse(t, out)
	data := resp["data"].(map[string]any)
	assert.Equal(t, true, data["mapped"])

	_, _, err = e.run("", "map", "INFY", "--query", "Infosys", "--pick", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestStop_RemovesMapping(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "stop", "RELIANCE")
	require.NoError(t, err)
	assert.Contains(t, out, "stopped tracking RELIANCE (cleaned from lists: true)")

	out, _, err = e.run("", "translate", "RELIANCE")
	require.NoError(t, err)
	assert.Contains(t, out, "RELIANCE  investing=- pairId=-")
}

func TestCategory_RecordAndShow(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "category", "record", "watch", "1", "TCS")
	require.NoError(t, err)
	assert.Contains(t, out, "watch[1] added=[TCS] removed=[]")

	out, _, err = e.run("", "category", "show", "TCS")
	require.NoError(t, err)
	assert.Contains(t, out, "watch: [1")

	// Recording again toggles it out.
	out, _, err = e.run("", "category", "record", "watch", "1", "TCS")
	require.NoError(t, err)
	assert.Contains(t, out, "added=[] removed=[TCS]")
}

func TestCategory_RecordRejectsBadInput(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("", "category", "record", "colour", "1", "TCS")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = e.run("", "category", "record", "watch", "one", "TCS")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCategory_CleanDryRun(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "category", "clean", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "would remove 0 membership(s)")
}

func TestRank_Pair(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "rank", "pair", "101")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "* RELIANCE"), out)

	_, _, err = e.run("", "rank", "pair", "999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	e := newCLIEnv(t)
	good := e.writeFile("good.yaml", testutil.RelianceSnapshot)
	bad := e.writeFile("bad.yaml", "bogus: 1\n")

	out, _, err := e.run("", "validate", "--snapshot", good)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All files valid")

	out, _, err = e.run("", "validate", "--snapshot", good, "--snapshot", bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, bad)
}

func TestWatch_Once(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "watch", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "failures=")

	hist, _, err := e.run("", "history")
	require.NoError(t, err)
	assert.NotContains(t, hist, "No audit runs recorded.")
}

func TestWatch_InvalidInterval(t *testing.T) {
	e := newCLIEnv(t)

	_, _, err := e.run("", "watch", "--interval", "soon")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_HarnessScenarios(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_EmptyDir(t *testing.T) {
	e := newCLIEnv(t)

	out, _, err := e.run("", "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
