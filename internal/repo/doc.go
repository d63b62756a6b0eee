// Package repo holds the in-memory identity repositories.
//
// Each repository is a flat map keyed by a tv ticker, an investing ticker or
// a pairId:
//   - Pair:     investing → PairInfo
//   - Ticker:   tv → investing, plus a materialized reverse index
//   - Exchange: tv → "EXCH:tv"
//   - Sequence: tv → MWD | YR
//   - Recent:   tv → last visit (epoch millis)
//   - Alert:    pairId → []Alert
//   - Category: watch and flag families, eight slots each
//
// Writes are synchronous and immediately visible to every reader. Readers
// receive copies, and multi-key reads are returned in sorted key order so
// every consumer sees a deterministic view.
//
// Repositories never validate cross-record invariants. Managers own the
// mutations; the audit plugins detect violations after the fact.
package repo
