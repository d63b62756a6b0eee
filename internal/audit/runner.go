package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many plugins run at once.
const DefaultConcurrency = 4

// PluginResult is one plugin's contribution to a Report.
type PluginResult struct {
	PluginID string        `json:"plugin_id"`
	Title    string        `json:"title"`
	Findings []Finding     `json:"findings"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of one runner pass.
type Report struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Results   []PluginResult `json:"results"`
}

// Findings returns every finding of every plugin in result order.
func (r *Report) Findings() []Finding {
	var out []Finding
	for _, res := range r.Results {
		out = append(out, res.Findings...)
	}
	return out
}

// Errors returns the plugin errors, in result order.
func (r *Report) Errors() []error {
	var out []error
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Err)
		}
	}
	return out
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds the number of plugins running at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMetrics records every run in m.
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now, for deterministic reports.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRunIDs overrides the run id generator (UUIDv7 by default).
func WithRunIDs(gen func() string) RunnerOption {
	return func(r *Runner) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// Runner fans out over a Registry's plugins and fans their findings back in.
type Runner struct {
	registry    *Registry
	concurrency int
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewRunner creates a Runner over registry.
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    registry,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		now:         time.Now,
		newID:       func() string { return uuid.Must(uuid.NewV7()).String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the runner's registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes the plugins named by ids (every registered plugin when ids is
// empty) with targets. Unknown ids fail before anything runs. Plugin errors
// are recorded in their PluginResult; Run itself only fails on an unknown id
// or a cancelled context.
func (r *Runner) Run(ctx context.Context, ids []string, targets []string) (*Report, error) {
	if len(ids) == 0 {
		ids = r.registry.IDs()
	}
	plugins := make([]Plugin, len(ids))
	for i, id := range ids {
		p, ok := r.registry.Get(id)
		if !ok {
			return nil, fmt.Errorf("run audit: unknown plugin %q", id)
		}
		plugins[i] = p
	}

	report := &Report{
		RunID:     r.newID(),
		StartedAt: r.now(),
		Results:   make([]PluginResult, len(plugins)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, p := range plugins {
		i, p := i, p
		g.Go(func() error {
			report.Results[i] = r.runOne(gctx, p, targets)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run audit: %w", err)
	}

	r.logger.Info("audit finished",
		"run_id", report.RunID,
		"plugins", len(plugins),
		"findings", len(Failures(report.Findings())),
		"errors", len(report.Errors()),
	)
	return report, nil
}

// RunPlugin runs a single plugin and returns its findings directly.
func (r *Runner) RunPlugin(ctx context.Context, id string, targets []string) ([]Finding, error) {
	p, ok := r.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("run audit: unknown plugin %q", id)
	}
	res := r.runOne(ctx, p, targets)
	return res.Findings, res.Err
}

func (r *Runner) runOne(ctx context.Context, p Plugin, targets []string) PluginResult {
	start := r.now()
	findings, err := p.Run(ctx, targets)
	res := PluginResult{
		PluginID: p.ID(),
		Title:    p.Title(),
		Findings: findings,
		Duration: r.now().Sub(start),
	}
	if err != nil {
		var pe *PluginError
		if !errors.As(err, &pe) {
			err = &PluginError{PluginID: p.ID(), Err: err}
		}
		res.Err = err
		res.Error = err.Error()
		r.logger.Warn("audit plugin failed", "plugin", p.ID(), "error", err)
	} else {
		r.logger.Debug("audit plugin done", "plugin", p.ID(), "findings", len(findings))
	}
	if r.metrics != nil {
		r.metrics.observe(res)
	}
	return res
}
