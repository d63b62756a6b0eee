package audit

import (
	"fmt"
	"sort"
)

// Severity ranks how urgently a finding needs attention.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank orders severities; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Status is the outcome of a check against a single target.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Finding is a single audit result.
type Finding struct {
	PluginID string         `json:"plugin_id"`
	Code     string         `json:"code"`
	Target   string         `json:"target"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Status   Status         `json:"status"`
	Data     map[string]any `json:"data,omitempty"`
}

// Key identifies a finding for deduplication.
func (f Finding) Key() string {
	return fmt.Sprintf("%s|%s|%s", f.PluginID, f.Code, f.Target)
}

// Failed reports whether f is a violation.
func (f Finding) Failed() bool {
	return f.Status == StatusFail
}

// String renders f on one line.
func (f Finding) String() string {
	return fmt.Sprintf("%-6s %-4s %s %s %s: %s", f.Severity, f.Status, f.PluginID, f.Code, f.Target, f.Message)
}

// Pass builds the PASS finding emitted for a requested target that has no
// violation.
func Pass(pluginID, target string) Finding {
	return Finding{
		PluginID: pluginID,
		Code:     "OK",
		Target:   target,
		Message:  "no violation",
		Severity: SeverityLow,
		Status:   StatusPass,
	}
}

// Dedupe drops findings whose Key was already seen, keeping the first.
func Dedupe(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		k := f.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

// Sort orders findings by severity (most severe first), then plugin, code
// and target.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.PluginID != b.PluginID {
			return a.PluginID < b.PluginID
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.Target < b.Target
	})
}

// Failures returns only the FAIL findings.
func Failures(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Failed() {
			out = append(out, f)
		}
	}
	return out
}

// Page is one slice of a paginated finding list.
type Page struct {
	Items    []Finding `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
	Pages    int       `json:"pages"`
}

// Paginate returns the 1-based page of findings. A page past the end is empty.
func Paginate(findings []Finding, page, pageSize int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("paginate: page must be >= 1, got %d", page)
	}
	if pageSize < 1 {
		return Page{}, fmt.Errorf("paginate: page size must be >= 1, got %d", pageSize)
	}
	total := len(findings)
	p := Page{
		Items:    []Finding{},
		Page:     page,
		PageSize: pageSize,
		Total:    total,
		Pages:    total / pageSize,
	}
	if total%pageSize != 0 {
		p.Pages++
	}
	if page > p.Pages {
		return p, nil
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	p.Items = findings[start:end]
	return p, nil
}
