package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tickerguard/internal/audit"
)

// Render produces the golden text for a result: one line per step, with
// each audit step followed by its failures (most severe first) and a
// count of passes.
func Render(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, ev := range result.Trace {
		fmt.Fprintf(&b, "%d. %s\n", ev.Step, ev.Summary)
		if ev.Kind != StepAudit {
			continue
		}
		failed := audit.Failures(ev.Findings)
		audit.Sort(failed)
		for _, f := range failed {
			fmt.Fprintf(&b, "   %s\n", f)
		}
		fmt.Fprintf(&b, "   failures=%d passes=%d\n", len(failed), len(ev.Findings)-len(failed))
	}
	if result.Pass {
		b.WriteString("result: pass\n")
	} else {
		b.WriteString("result: FAIL\n")
		for _, e := range result.Errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its rendered trace against
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already executed result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Render(name, result))
}
