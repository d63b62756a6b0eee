package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/tickerguard/internal/audit"
)

// ErrRunNotFound is returned when an audit run id is unknown.
var ErrRunNotFound = errors.New("audit run not found")

// AuditRun is a persisted audit report.
type AuditRun struct {
	ID             string
	StartedAt      time.Time
	Duration       time.Duration
	SnapshotDigest string
	Targets        []string
	Findings       []audit.Finding
	Errors         map[string]string
}

// RunFromReport flattens a runner report for storage.
func RunFromReport(rep *audit.Report, digest string, targets []string) AuditRun {
	run := AuditRun{
		ID:             rep.RunID,
		StartedAt:      rep.StartedAt,
		SnapshotDigest: digest,
		Targets:        targets,
		Findings:       rep.Findings(),
		Errors:         make(map[string]string),
	}
	for _, r := range rep.Results {
		run.Duration += r.Duration
		if r.Err != nil {
			run.Errors[r.PluginID] = r.Err.Error()
		}
	}
	return run
}

// RunSummary is one line of audit history.
type RunSummary struct {
	ID             string        `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	SnapshotDigest string        `json:"snapshot_digest"`
	Findings       int           `json:"findings"`
	Failures       int           `json:"failures"`
}

// FindingRecord is a finding together with the run that produced it.
type FindingRecord struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Finding   audit.Finding `json:"finding"`
}

// WriteAuditRun stores run and its findings in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting a run id is a no-op.
func (s *Store) WriteAuditRun(ctx context.Context, run AuditRun) error {
	targets, err := marshalJSON(run.Targets)
	if err != nil {
		return fmt.Errorf("write audit run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write audit run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO audit_runs (id, started_at, duration_ms, snapshot_digest, targets)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.StartedAt.UnixMilli(), run.Duration.Milliseconds(), run.SnapshotDigest, targets)
	if err != nil {
		return fmt.Errorf("write audit run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for i, f := range run.Findings {
		data, err := marshalJSON(f.Data)
		if err != nil {
			return fmt.Errorf("write audit run: finding %d: %w", i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO findings (run_id, seq, plugin_id, code, target, message, severity, status, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, f.PluginID, f.Code, f.Target, f.Message, string(f.Severity), string(f.Status), data)
		if err != nil {
			return fmt.Errorf("write audit run: finding %d: %w", i, err)
		}
	}

	pluginIDs := make([]string, 0, len(run.Errors))
	for id := range run.Errors {
		pluginIDs = append(pluginIDs, id)
	}
	sort.Strings(pluginIDs)
	for _, id := range pluginIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO plugin_errors (run_id, plugin_id, error) VALUES (?, ?, ?)`,
			run.ID, id, run.Errors[id],
		)
		if err != nil {
			return fmt.Errorf("write audit run: plugin error %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write audit run: commit: %w", err)
	}
	return nil
}

// ReadAuditRun returns a stored run with its findings in their original order.
func (s *Store) ReadAuditRun(ctx context.Context, id string) (AuditRun, error) {
	var (
		run       AuditRun
		startedAt int64
		duration  int64
		targets   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, duration_ms, snapshot_digest, targets
		FROM audit_runs WHERE id = ?
	`, id).Scan(&run.ID, &startedAt, &duration, &run.SnapshotDigest, &targets)
	if errors.Is(err, sql.ErrNoRows) {
		return AuditRun{}, fmt.Errorf("read audit run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return AuditRun{}, fmt.Errorf("read audit run %s: %w", id, err)
	}
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.Duration = time.Duration(duration) * time.Millisecond
	if err := unmarshalJSON(targets, &run.Targets); err != nil {
		return AuditRun{}, fmt.Errorf("read audit run %s: targets: %w", id, err)
	}

	if run.Findings, err = s.readFindings(ctx, id); err != nil {
		return AuditRun{}, err
	}
	if run.Errors, err = s.readPluginErrors(ctx, id); err != nil {
		return AuditRun{}, err
	}
	return run, nil
}

// LatestAuditRun returns the most recent run.
func (s *Store) LatestAuditRun(ctx context.Context) (AuditRun, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM audit_runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return AuditRun{}, ErrRunNotFound
	}
	if err != nil {
		return AuditRun{}, fmt.Errorf("latest audit run: %w", err)
	}
	return s.ReadAuditRun(ctx, id)
}

// ListAuditRuns returns up to limit runs, newest first.
func (s *Store) ListAuditRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.duration_ms, r.snapshot_digest,
		       COUNT(f.seq),
		       COALESCE(SUM(CASE WHEN f.status = 'FAIL' THEN 1 ELSE 0 END), 0)
		FROM audit_runs r
		LEFT JOIN findings f ON f.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			r                   RunSummary
			startedAt, duration int64
		)
		if err := rows.Scan(&r.ID, &startedAt, &duration, &r.SnapshotDigest, &r.Findings, &r.Failures); err != nil {
			return nil, fmt.Errorf("list audit runs: scan: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt).UTC()
		r.Duration = time.Duration(duration) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit runs: iterate: %w", err)
	}
	return runs, nil
}

// FindingHistory returns every stored finding for pluginID and target,
// newest run first.
func (s *Store) FindingHistory(ctx context.Context, pluginID, target string) ([]FindingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.run_id, r.started_at, f.plugin_id, f.code, f.target, f.message, f.severity, f.status, f.data
		FROM findings f
		JOIN audit_runs r ON r.id = f.run_id
		WHERE f.plugin_id = ? AND f.target = ?
		ORDER BY r.started_at DESC, f.run_id COLLATE BINARY DESC, f.seq ASC
	`, pluginID, target)
	if err != nil {
		return nil, fmt.Errorf("finding history: %w", err)
	}
	defer rows.Close()

	history := []FindingRecord{}
	for rows.Next() {
		var (
			rec       FindingRecord
			startedAt int64
		)
		f, err := scanFinding(rows, &rec.RunID, &startedAt)
		if err != nil {
			return nil, fmt.Errorf("finding history: %w", err)
		}
		rec.StartedAt = time.UnixMilli(startedAt).UTC()
		rec.Finding = f
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding history: iterate: %w", err)
	}
	return history, nil
}

func (s *Store) readFindings(ctx context.Context, runID string) ([]audit.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_id, code, target, message, severity, status, data
		FROM findings WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read findings: %w", err)
	}
	defer rows.Close()

	findings := []audit.Finding{}
	for rows.Next() {
		f, err := scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("read findings: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read findings: iterate: %w", err)
	}
	return findings, nil
}

func (s *Store) readPluginErrors(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plugin_id, error FROM plugin_errors WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read plugin errors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, msg string
		if err := rows.Scan(&id, &msg); err != nil {
			return nil, fmt.Errorf("read plugin errors: scan: %w", err)
		}
		out[id] = msg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read plugin errors: iterate: %w", err)
	}
	return out, nil
}

// scanFinding scans the finding columns, preceded by any extra columns.
func scanFinding(rows *sql.Rows, prefix ...any) (audit.Finding, error) {
	var (
		f                audit.Finding
		severity, status string
		data             string
	)
	dest := append(prefix, &f.PluginID, &f.Code, &f.Target, &f.Message, &severity, &status, &data)
	if err := rows.Scan(dest...); err != nil {
		return audit.Finding{}, fmt.Errorf("scan: %w", err)
	}
	f.Severity = audit.Severity(severity)
	f.Status = audit.Status(status)
	if err := unmarshalJSON(data, &f.Data); err != nil {
		return audit.Finding{}, fmt.Errorf("data: %w", err)
	}
	return f, nil
}

// marshalJSON encodes v with HTML escaping disabled so tickers like "M&M"
// are stored verbatim.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalJSON decodes numbers as json.Number to keep counts exact.
func unmarshalJSON(data string, v any) error {
	if data == "" || data == "null" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
