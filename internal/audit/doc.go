// Package audit defines the integrity-audit contract and the runner that
// fans out over registered plugins.
//
// # Contract
//
// A Plugin scans one or more repositories for one class of violation and
// returns Findings. Plugins are side-effect free and idempotent: findings
// are recomputed from scratch on every run. Plugins whose unit of analysis
// is a per-key subset accept a target list; plugins that analyse a whole
// repository grouping (duplicates, collisions, orphans) reject targets with
// ErrTargetsUnsupported.
//
// # Runner
//
// The Runner applies no severity logic of its own. It looks plugins up in an
// explicit Registry, runs them, captures per-plugin errors without aborting
// the others, and returns the results in registration order. Findings can
// then be deduplicated and paginated for presentation.
//
// # Batching
//
// Long scans go through ForEachBatch, which yields between fixed-size
// batches and stops scheduling further batches once the context is done.
package audit
