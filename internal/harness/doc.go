// Package harness provides scenario testing for tickerguard.
//
// The harness seeds the repositories, replays a list of operator steps
// against a fully wired engine and checks the resulting findings and state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	clock: "2024-01-15T09:15:00Z"
//	config:
//	  audit: { stale_days: 30 }
//	platform:
//	  pairs: [{ name: Reliance, pairId: "101", exchange: NSE, symbol: RELIANCE }]
//	  delete_error: "alerting platform offline"
//	seed:
//	  pair: { ... }
//	  ticker: { ... }
//	steps:
//	  - map: { tv: RELIANCE, query: RELIANCE, confirm: [true] }
//	  - stop: { tv: RELIANCE }
//	  - audit: { plugins: [duplicate-pairids] }
//	assertions:
//	  - type: finding
//	    plugin: duplicate-pairids
//	    code: DUPLICATE_PAIR_ID
//	    target: "101"
//
// # Step Kinds
//
//   - map: resolve the guard rails with the listed answers and map tv
//   - stop: stop tracking by tv or investing ticker
//   - record_category, update_default, clean: category maintenance
//   - visit, advance: touch the recent-visit clock, move the wall clock
//   - alert: create an alert through the alerting platform
//   - fix: run a plugin and apply its section's fix-all
//   - audit: run plugins; the last audit's findings feed the assertions
//
// # Assertion Types
//
//   - finding / no_finding / empty: audit findings
//   - member: category membership (absent: true inverts)
//   - mapped: tv → investing mapping (empty investing means unmapped)
//   - alerts: number of mirrored alerts for a pairId
//   - remote_deleted: an alert id was deleted on the remote platform
//   - drift: an alert id is pending in the drift ledger (absent: true inverts)
//
// # Deterministic Testing
//
// Every scenario runs against fresh repositories with a fixed wall clock,
// sequential run ids and the in-memory platform, and waits for dispatched
// remote calls after each step, so the rendered trace is byte-identical
// across runs and can be compared against golden files.
package harness
