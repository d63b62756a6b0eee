package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/tickerguard/internal/app"
	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/config"
	"github.com/roach88/tickerguard/internal/model"
	"github.com/roach88/tickerguard/internal/pair"
	"github.com/roach88/tickerguard/internal/platform"
	"github.com/roach88/tickerguard/internal/repo"
	"github.com/roach88/tickerguard/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs steps against a wired App with deterministic time and ids.
type Harness struct {
	app      *app.App
	platform *platform.Memory
	notifier *platform.RecordingNotifier
	clock    *testutil.Clock

	audited bool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against fresh repositories for isolation.
//
// Execution flow:
// 1. Restore the seed snapshot and configure the in-memory platform
// 2. Execute steps, waiting for dispatched remote calls after each
// 3. Run a full audit if no step audited
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	h, err := newHarness(scenario)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
		h.app.Wait()
	}

	if !h.audited {
		rep, err := h.app.Audit(ctx, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("final audit: %w", err)
		}
		result.Findings = rep.Findings()
	}

	h.evaluate(scenario.Assertions, result)
	return result, nil
}

func newHarness(s *Scenario) (*Harness, error) {
	start := testutil.Epoch
	if s.Clock != "" {
		t, err := time.Parse(time.RFC3339, s.Clock)
		if err != nil {
			return nil, fmt.Errorf("clock: %w", err)
		}
		start = t
	}
	clock := testutil.NewClock(start)

	cfg := &config.Config{}
	if s.Config != nil {
		c := *s.Config
		cfg = &c
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	set := repo.NewSet()
	if err := set.Restore(s.Seed); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	mem := platform.NewMemory()
	mem.AddPairs(s.Platform.Pairs...)
	mem.SetOrders(s.Platform.Orders...)
	if s.Platform.DeleteError != "" {
		mem.SetDeleteErr(errors.New(s.Platform.DeleteError))
	}
	notifier := &platform.RecordingNotifier{}

	a, err := app.New(app.Options{
		Config:   cfg,
		Repos:    set,
		Alerts:   mem,
		Search:   mem,
		Orders:   mem,
		Feed:     notifier,
		Reporter: notifier,
		Now:      clock.Now,
		RunIDs:   testutil.NewSequentialIDs("run").Next,
		Logger:   testutil.DiscardLogger(),
	})
	if err != nil {
		return nil, err
	}
	return &Harness{app: a, platform: mem, notifier: notifier, clock: clock}, nil
}

func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	a := h.app
	switch {
	case step.Map != nil:
		return h.executeMap(ctx, step.Map, result)

	case step.Stop != nil:
		var cleaned bool
		target := string(step.Stop.Tv)
		if step.Stop.Tv != "" {
			cleaned = a.Pairs.StopTrackingByTvTicker(ctx, step.Stop.Tv)
		} else {
			target = string(step.Stop.Investing)
			cleaned = a.Pairs.StopTrackingByInvestingTicker(ctx, step.Stop.Investing)
		}
		result.AddTrace(StepStop, fmt.Sprintf("stop %s (cleaned from lists: %t)", target, cleaned), nil)

	case step.RecordCategory != nil:
		rc := step.RecordCategory
		t, err := a.Categories.RecordCategory(rc.Family, rc.Index, rc.Tickers)
		if err != nil {
			return err
		}
		result.AddTrace(StepRecordCategory, fmt.Sprintf("record %s[%d] added=%s removed=%s",
			rc.Family, rc.Index, list(t.Added), list(t.Removed)), nil)

	case step.UpdateDefault != nil:
		def := a.Categories.UpdateDefaultList(a.Universe())
		result.AddTrace(StepUpdateDefault, fmt.Sprintf("default list %s", list(def)), nil)

	case step.Clean != nil:
		var rep interface{ Count() int }
		if step.Clean.DryRun {
			rep = a.Categories.DryRunClean(a.Universe())
		} else {
			rep = a.Categories.Clean(a.Universe())
		}
		result.AddTrace(StepClean, fmt.Sprintf("clean dry_run=%t removed=%d", step.Clean.DryRun, rep.Count()), nil)

	case step.Visit != nil:
		a.Repos.Recent.Visit(step.Visit.Tv, h.clock.Now())
		result.AddTrace(StepVisit, fmt.Sprintf("visit %s", step.Visit.Tv), nil)

	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		now := h.clock.Advance(d)
		result.AddTrace(StepAdvance, fmt.Sprintf("advance %s to %s", d, now.Format(time.RFC3339)), nil)

	case step.Alert != nil:
		price, err := decimal.NewFromString(step.Alert.Price)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		alert, err := a.Pairs.CreateAlert(ctx, step.Alert.Investing, price, price)
		if err != nil {
			return err
		}
		result.AddTrace(StepAlert, fmt.Sprintf("alert %s pairId %s at %s", step.Alert.Investing, alert.PairID, alert.Price), nil)

	case step.Fix != nil:
		n, err := a.Fix(ctx, step.Fix.Plugin)
		if err != nil {
			return err
		}
		result.AddTrace(StepFix, fmt.Sprintf("fix %s fixed=%d", step.Fix.Plugin, n), nil)

	case step.Audit != nil:
		rep, err := a.Audit(ctx, step.Audit.Plugins, step.Audit.Targets)
		if err != nil {
			return err
		}
		h.audited = true
		result.Findings = rep.Findings()
		summary := fmt.Sprintf("audit %s", auditScope(step.Audit))
		for _, e := range rep.Errors() {
			summary += "\n  error: " + e.Error()
		}
		result.AddTrace(StepAudit, summary, result.Findings)

	default:
		return errors.New("no action")
	}
	return nil
}

func (h *Harness) executeMap(ctx context.Context, m *MapStep, result *Result) error {
	a := h.app
	var selected model.PairInfo
	if m.Pair != nil {
		selected = *m.Pair
	} else {
		pairs, err := a.Pairs.SearchPairs(ctx, m.Query)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			return fmt.Errorf("no search results for %q", m.Query)
		}
		selected = pairs[0]
	}

	guard := a.Pairs.CheckGuardRails(selected, m.Tv)
	var asked []string
	answers := m.Confirm
	confirm := pair.ConfirmFunc(func(_ context.Context, c pair.Confirmation) (bool, error) {
		answer := true
		if len(answers) > 0 {
			answer, answers = answers[0], answers[1:]
		}
		asked = append(asked, fmt.Sprintf("%s=%t", c.Kind, answer))
		return answer, nil
	})

	ok, err := a.Pairs.MapTicker(ctx, selected, m.Tv, confirm)
	if err != nil {
		return err
	}
	outcome := "mapped"
	if !ok {
		outcome = "aborted"
	}
	summary := fmt.Sprintf("map %s -> %s (pairId %s) %s", m.Tv, selected.Symbol, selected.PairID, outcome)
	if guard.RequiresConfirmation() {
		summary += " [" + strings.Join(asked, " ") + "]"
	}
	result.AddTrace(StepMap, summary, nil)
	return nil
}

func auditScope(s *AuditStep) string {
	scope := "all"
	if len(s.Plugins) > 0 {
		scope = strings.Join(s.Plugins, ",")
	}
	if len(s.Targets) > 0 {
		scope += " targets=" + strings.Join(s.Targets, ",")
	}
	return scope
}

func list[T ~string](in []T) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = string(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// findingsFor returns findings of pluginID, in report order.
func findingsFor(findings []audit.Finding, pluginID string) []audit.Finding {
	var out []audit.Finding
	for _, f := range findings {
		if f.PluginID == pluginID {
			out = append(out, f)
		}
	}
	return out
}
