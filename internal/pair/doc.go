// Package pair owns the lifecycle of tv ↔ investing mappings.
//
// # Creation
//
// MapTicker commits a new mapping only after CheckGuardRails has been
// resolved. Guard rails are returned as data, not asked interactively: the
// caller walks the ordered confirmation steps with a Confirmer and any
// refusal aborts the mapping before anything is written.
//
// # Stop tracking
//
// StopTrackingByInvestingTicker is the only operation that removes a ticker
// from every repository that may reference it. Local repositories are
// updated synchronously; alert deletions on the remote platform are
// dispatched without waiting. A failed remote deletion is reported and noted
// in the drift ledger, but the local deletion is never rolled back.
//
// # Narrow removal
//
// RemovePairByInvestingTicker deletes only the Pair entry. It is used to
// drop a duplicate alias while leaving the canonical ticker's records alone.
package pair
