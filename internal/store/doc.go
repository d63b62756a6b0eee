// Package store provides SQLite-backed persistence for tickerguard.
//
// The store holds:
//   - Repositories: one JSON record per identity repository, written
//     together in a single transaction so a reload never sees a partial
//     cascade
//   - Snapshots: the canonical digest of every saved state
//   - Audit runs: findings and plugin errors of each run, for history
//
// # Deterministic Query Results
//
// Every list query orders by an explicit key (started_at, id, seq) so
// reports and golden files are stable.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
