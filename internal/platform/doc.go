// Package platform defines the boundary to the three external platforms.
//
// The engine consumes, but does not implement, the alerting platform (alert
// creation and deletion), the symbol search and the order-management
// platform's live orders. Their wire formats are owned elsewhere; this
// package only states the contracts, supplies an in-memory platform used by
// the CLI's offline mode and by tests, and provides the Dispatcher that runs
// remote calls fire-and-forget.
package platform
