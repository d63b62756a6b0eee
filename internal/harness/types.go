package harness

import (
	"github.com/roach88/tickerguard/internal/audit"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int             `json:"step"`
	Kind     string          `json:"kind"`
	Summary  string          `json:"summary"`
	Findings []audit.Finding `json:"findings,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Findings are the findings of the last audit step.
	Findings []audit.Finding `json:"findings"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Findings: []audit.Finding{},
		Errors:   []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(kind, summary string, findings []audit.Finding) {
	r.Trace = append(r.Trace, TraceEvent{
		Step:     len(r.Trace) + 1,
		Kind:     kind,
		Summary:  summary,
		Findings: findings,
	})
}
