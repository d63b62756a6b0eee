package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/model"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := `
name: test_scenario
description: "Test scenario for validation"
clock: "2024-03-01T10:00:00Z"
seed:
  ticker:
    TCS: TCS
  pair:
    TCS:
      name: Tata Consultancy Services
      pairId: "102"
      exchange: NSE
      symbol: TCS
steps:
  - stop:
      tv: TCS
  - audit:
      plugins: [alerts-coverage]
assertions:
  - type: mapped
    tv: TCS
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", s.Name)
	assert.Equal(t, model.InvestingTicker("TCS"), s.Seed.Ticker["TCS"])
	assert.Equal(t, model.PairID("102"), s.Seed.Pair["TCS"].PairID)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, StepStop, s.Steps[0].Kind())
	assert.Equal(t, StepAudit, s.Steps[1].Kind())
	assert.Equal(t, []string{"alerts-coverage"}, s.Steps[1].Audit.Plugins)
	require.Len(t, s.Assertions, 1)
	assert.Equal(t, AssertMapped, s.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled assertions key
steps:
  - visit: {tv: TCS}
assertion:
  - type: empty
    plugin: stale-review
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Config(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: configured
description: overrides the stale window
config:
  audit:
    stale_days: 7
assertions:
  - type: empty
    plugin: stale-review
`))
	require.NoError(t, err)
	require.NotNil(t, s.Config)
	assert.Equal(t, 7, s.Config.Audit.StaleDays)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc:  "description: d\nsteps:\n  - visit: {tv: TCS}\n",
			want: "name is required",
		},
		{
			name: "missing description",
			doc:  "name: n\nsteps:\n  - visit: {tv: TCS}\n",
			want: "description is required",
		},
		{
			name: "nothing to do",
			doc:  "name: n\ndescription: d\n",
			want: "steps or assertions are required",
		},
		{
			name: "bad clock",
			doc:  "name: n\ndescription: d\nclock: yesterday\nsteps:\n  - visit: {tv: TCS}\n",
			want: "clock",
		},
		{
			name: "empty step",
			doc:  "name: n\ndescription: d\nsteps:\n  - {}\n",
			want: "steps[0]: no action",
		},
		{
			name: "two actions",
			doc:  "name: n\ndescription: d\nsteps:\n  - visit: {tv: TCS}\n    advance: 1h\n",
			want: "exactly one action allowed",
		},
		{
			name: "map without pair or query",
			doc:  "name: n\ndescription: d\nsteps:\n  - map: {tv: TCS}\n",
			want: "exactly one of pair or query",
		},
		{
			name: "stop with both keys",
			doc:  "name: n\ndescription: d\nsteps:\n  - stop: {tv: TCS, investing: TCS}\n",
			want: "exactly one of tv or investing",
		},
		{
			name: "unknown family",
			doc:  "name: n\ndescription: d\nsteps:\n  - record_category: {family: star, index: 0, tickers: [TCS]}\n",
			want: "steps[0].record_category",
		},
		{
			name: "bad duration",
			doc:  "name: n\ndescription: d\nsteps:\n  - advance: soon\n",
			want: "steps[0].advance",
		},
		{
			name: "alert without price",
			doc:  "name: n\ndescription: d\nsteps:\n  - alert: {investing: TCS}\n",
			want: "investing and price are required",
		},
		{
			name: "fix without plugin",
			doc:  "name: n\ndescription: d\nsteps:\n  - fix: {}\n",
			want: "plugin is required",
		},
		{
			name: "assertion without type",
			doc:  "name: n\ndescription: d\nassertions:\n  - plugin: integrity\n",
			want: "type is required",
		},
		{
			name: "unknown assertion",
			doc:  "name: n\ndescription: d\nassertions:\n  - type: vibes\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "finding without target",
			doc:  "name: n\ndescription: d\nassertions:\n  - type: finding\n    plugin: integrity\n    code: NO_TV_MAPPING\n",
			want: "plugin, code and target are required",
		},
		{
			name: "member without index",
			doc:  "name: n\ndescription: d\nassertions:\n  - type: member\n    family: watch\n    tv: TCS\n",
			want: "family, index and tv are required",
		},
		{
			name: "alerts without count",
			doc:  "name: n\ndescription: d\nassertions:\n  - type: alerts\n    pair_id: \"1\"\n",
			want: "pair_id and count are required",
		},
		{
			name: "drift without id",
			doc:  "name: n\ndescription: d\nassertions:\n  - type: drift\n",
			want: "alert_id is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStep_Kind(t *testing.T) {
	assert.Equal(t, StepAdvance, Step{Advance: "1h"}.Kind())
	assert.Equal(t, StepUpdateDefault, Step{UpdateDefault: &struct{}{}}.Kind())
	assert.Empty(t, Step{}.Kind())
	assert.Empty(t, Step{Advance: "1h", Visit: &VisitStep{Tv: "TCS"}}.Kind())
}
