package repo

import (
	"github.com/roach88/tickerguard/internal/model"
)

// AlertRepo mirrors the alerting platform's alerts, keyed by pairId.
type AlertRepo struct {
	kv[model.PairID, []model.Alert]
}

// NewAlertRepo creates an empty Alert repository.
func NewAlertRepo() *AlertRepo {
	r := &AlertRepo{}
	r.init()
	return r
}

// Get returns a copy of the alerts for pairID.
func (r *AlertRepo) Get(pairID model.PairID) ([]model.Alert, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	alerts, ok := r.m[pairID]
	if !ok {
		return nil, false
	}
	return append([]model.Alert(nil), alerts...), true
}

// Add appends an alert under its own PairID.
func (r *AlertRepo) Add(alert model.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[alert.PairID] = append(r.m[alert.PairID], alert)
}

// Count returns how many alerts exist for pairID.
func (r *AlertRepo) Count(pairID model.PairID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m[pairID])
}

// Remove deletes a single alert by id and reports whether it was found.
// The pairId entry is dropped once its last alert is gone.
func (r *AlertRepo) Remove(pairID model.PairID, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	alerts := r.m[pairID]
	for i, a := range alerts {
		if a.ID != id {
			continue
		}
		alerts = append(alerts[:i:i], alerts[i+1:]...)
		if len(alerts) == 0 {
			delete(r.m, pairID)
		} else {
			r.m[pairID] = alerts
		}
		return true
	}
	return false
}
