package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/tickerguard/internal/audit"
)

// AlertDrift reports alerts dropped locally whose remote deletion failed.
// The fix is a retry of the remote deletion.
type AlertDrift struct {
	deps Deps
}

func (p *AlertDrift) ID() string    { return IDAlertDrift }
func (p *AlertDrift) Title() string { return "Alert Drift" }

func (p *AlertDrift) Run(ctx context.Context, targets []string) ([]audit.Finding, error) {
	if err := audit.RejectTargets(IDAlertDrift, targets); err != nil {
		return nil, err
	}

	ledger := p.deps.Repos.Drift
	var findings []audit.Finding
	err := audit.ForEachBatch(ctx, ledger.Keys(), p.deps.Settings.BatchSize, func(id string) {
		entry, ok := ledger.Get(id)
		if !ok {
			return
		}
		findings = append(findings, audit.Finding{
			PluginID: IDAlertDrift,
			Code:     CodeRemoteDeleteFailed,
			Target:   id,
			Message:  fmt.Sprintf("alert %s (pairId %s) is still live remotely: %s", id, entry.Alert.PairID, entry.Reason),
			Severity: audit.SeverityHigh,
			Status:   audit.StatusFail,
			Data: map[string]any{
				"pair_id":   string(entry.Alert.PairID),
				"price":     entry.Alert.Price.String(),
				"failed_at": time.UnixMilli(entry.FailedAt).UTC().Format(time.RFC3339),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}
