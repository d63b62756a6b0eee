package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/tickerguard/internal/audit"
	"github.com/roach88/tickerguard/internal/model"
)

// evaluate checks every assertion and records failures on result.
func (h *Harness) evaluate(assertions []Assertion, result *Result) {
	for i, a := range assertions {
		if err := h.check(a, result.Findings); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
}

func (h *Harness) check(a Assertion, findings []audit.Finding) error {
	switch a.Type {
	case AssertFinding:
		for _, f := range findingsFor(findings, a.Plugin) {
			if matchFinding(a, f) {
				return nil
			}
		}
		return fmt.Errorf("no %s finding %s on %q", a.Plugin, a.Code, a.Target)

	case AssertNoFinding:
		for _, f := range findingsFor(findings, a.Plugin) {
			if matchFinding(a, f) {
				return fmt.Errorf("unexpected finding: %s", f)
			}
		}
		return nil

	case AssertEmpty:
		if failed := audit.Failures(findingsFor(findings, a.Plugin)); len(failed) > 0 {
			return fmt.Errorf("expected no failures from %s, got %d (first: %s)", a.Plugin, len(failed), failed[0])
		}
		return nil

	case AssertMember:
		return h.checkMember(a)

	case AssertMapped:
		inv, ok := h.app.Symbols.TvToInvesting(a.Tv)
		switch {
		case a.Investing == "" && ok:
			return fmt.Errorf("%s is still mapped to %s", a.Tv, inv)
		case a.Investing != "" && !ok:
			return fmt.Errorf("%s is not mapped", a.Tv)
		case a.Investing != "" && inv != a.Investing:
			return fmt.Errorf("%s is mapped to %s, want %s", a.Tv, inv, a.Investing)
		}
		return nil

	case AssertAlerts:
		if got := h.app.Repos.Alerts.Count(a.PairID); got != *a.Count {
			return fmt.Errorf("pairId %s has %d alerts, want %d", a.PairID, got, *a.Count)
		}
		return nil

	case AssertRemoteDeleted:
		if !slices.Contains(h.platform.Deleted(), a.AlertID) {
			return fmt.Errorf("alert %s was not deleted remotely (deleted: %v)", a.AlertID, h.platform.Deleted())
		}
		return nil

	case AssertDrift:
		pending := h.app.Repos.Drift.Has(a.AlertID)
		if pending == a.Absent {
			if a.Absent {
				return fmt.Errorf("alert %s is still pending in the drift ledger", a.AlertID)
			}
			return fmt.Errorf("alert %s is not in the drift ledger", a.AlertID)
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func (h *Harness) checkMember(a Assertion) error {
	idx, err := model.ParseIndex(*a.Index)
	if err != nil {
		return err
	}
	cat, err := h.app.Repos.Category(a.Family)
	if err != nil {
		return err
	}
	in := cat.Contains(idx, a.Tv)
	switch {
	case in && a.Absent:
		return fmt.Errorf("%s is in %s[%d]", a.Tv, a.Family, idx)
	case !in && !a.Absent:
		return fmt.Errorf("%s is not in %s[%d] (members: %v)", a.Tv, a.Family, idx, cat.Members(idx))
	}
	return nil
}

// matchFinding reports whether f satisfies every selector set on a.
// Status defaults to FAIL.
func matchFinding(a Assertion, f audit.Finding) bool {
	status := a.Status
	if status == "" {
		status = string(audit.StatusFail)
	}
	switch {
	case string(f.Status) != status:
		return false
	case a.Code != "" && f.Code != a.Code:
		return false
	case a.Target != "" && f.Target != a.Target:
		return false
	case a.Severity != "" && string(f.Severity) != a.Severity:
		return false
	}
	return true
}
