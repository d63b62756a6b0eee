package repo

import (
	"github.com/roach88/tickerguard/internal/model"
)

// Set bundles every repository. It is the root of the object graph: managers
// and audit plugins receive the Set (or individual repositories from it) at
// construction, so nothing can be built before its storage exists.
type Set struct {
	Pairs     *PairRepo
	Tickers   *TickerRepo
	Exchanges *ExchangeRepo
	Sequences *SequenceRepo
	Recent    *RecentRepo
	Alerts    *AlertRepo
	Watch     *CategoryRepo
	Flags     *CategoryRepo
	Drift     *DriftLedger
}

// NewSet creates a Set of empty repositories.
func NewSet() *Set {
	return &Set{
		Pairs:     NewPairRepo(),
		Tickers:   NewTickerRepo(),
		Exchanges: NewExchangeRepo(),
		Sequences: NewSequenceRepo(),
		Recent:    NewRecentRepo(),
		Alerts:    NewAlertRepo(),
		Watch:     NewCategoryRepo(model.FamilyWatch),
		Flags:     NewCategoryRepo(model.FamilyFlag),
		Drift:     NewDriftLedger(),
	}
}

// Category returns the repository for family.
func (s *Set) Category(family model.Family) (*CategoryRepo, error) {
	switch family {
	case model.FamilyWatch:
		return s.Watch, nil
	case model.FamilyFlag:
		return s.Flags, nil
	default:
		return nil, &model.ReferenceError{Kind: "family", Value: string(family)}
	}
}
