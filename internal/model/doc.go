// Package model defines the identifiers and records shared by every
// tickerguard component.
//
// # Namespaces
//
// A single instrument is known by a different identifier on each external
// platform:
//   - TvTicker: the charting platform ("tv" namespace)
//   - InvestingTicker: the alerting platform, whose stable identity is PairID
//   - KiteSymbol: the order-management platform
//
// Each namespace is its own Go type, so a tv string and an investing string
// can never be compared without an explicit translation through the symbol
// manager.
//
// # Categories
//
// Category membership is tracked in two independent families (watch and
// flag), each with eight mutually exclusive indices. Index 5 of the watch
// family is derived from the live universe and is never assigned directly.
package model
