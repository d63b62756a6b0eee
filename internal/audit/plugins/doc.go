// Package plugins implements the integrity analyzers run by the audit runner.
//
//	alerts-coverage    unwatched tv ticker with zero or one alert
//	integrity          PairInfo with no tv mapping
//	duplicate-pairids  several investing tickers sharing a pairId
//	ticker-collision   several tv tickers mapping to one investing ticker
//	orphan-alerts      alerts whose pairId has no Pair entry
//	orphan-exchange    exchange override for an unmapped tv ticker
//	orphan-flags       flag membership for an unmapped tv ticker
//	orphan-sequences   sequence preference for an unmapped tv ticker
//	trade-risk         live order risk off the approved ladder
//	stale-review       tv ticker never or not recently visited
//	alert-drift        remote alert deletions that failed
//
// Severity policy: losing navigability (no tv or investing mapping) is HIGH,
// duplication and collision are MEDIUM, staleness is MEDIUM unless the
// ticker was never visited.
package plugins
