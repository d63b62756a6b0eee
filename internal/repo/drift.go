package repo

import (
	"time"

	"github.com/roach88/tickerguard/internal/model"
)

// DriftEntry records a remote alert deletion that failed after the local
// mirror had already dropped the alert.
type DriftEntry struct {
	Alert    model.Alert `json:"alert" yaml:"alert"`
	Reason   string      `json:"reason" yaml:"reason"`
	FailedAt int64       `json:"failedAt" yaml:"failedAt"`
}

// DriftLedger maps alert ids to pending remote deletions.
type DriftLedger struct {
	kv[string, DriftEntry]
}

// NewDriftLedger creates an empty ledger.
func NewDriftLedger() *DriftLedger {
	r := &DriftLedger{}
	r.init()
	return r
}

// Record notes that deleting alert on the remote platform failed.
func (r *DriftLedger) Record(alert model.Alert, reason error, at time.Time) {
	r.Set(alert.ID, DriftEntry{Alert: alert, Reason: reason.Error(), FailedAt: at.UnixMilli()})
}
