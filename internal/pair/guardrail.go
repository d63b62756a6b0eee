package pair

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/tickerguard/internal/model"
)

// ConfirmationKind identifies a guard-rail step.
type ConfirmationKind string

const (
	// KindStalePairAliases: other investing tickers already share the pairId.
	KindStalePairAliases ConfirmationKind = "STALE_PAIR_ALIASES"

	// KindStaleTvAlias: the investing ticker is already mapped from another tv ticker.
	KindStaleTvAlias ConfirmationKind = "STALE_TV_ALIAS"
)

// Confirmation is one step an operator must accept before a mapping proceeds.
type Confirmation struct {
	Kind    ConfirmationKind `json:"kind"`
	Reason  string           `json:"reason"`
	Aliases []string         `json:"aliases"`

	apply func()
}

// GuardRail is the outcome of CheckGuardRails. Steps are ordered; an empty
// list means the mapping may proceed without confirmation.
type GuardRail struct {
	Selected model.PairInfo `json:"selected"`
	Tv       model.TvTicker `json:"tv"`
	Steps    []Confirmation `json:"steps,omitempty"`
}

// RequiresConfirmation reports whether any step needs operator consent.
func (g GuardRail) RequiresConfirmation() bool {
	return len(g.Steps) > 0
}

// Confirmer obtains an operator's answer to a confirmation step.
type Confirmer interface {
	Confirm(ctx context.Context, c Confirmation) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, c Confirmation) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, c Confirmation) (bool, error) {
	return f(ctx, c)
}

// AlwaysConfirm accepts every step.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Confirmation) (bool, error) { return true, nil })

// NeverConfirm refuses every step.
var NeverConfirm = ConfirmFunc(func(context.Context, Confirmation) (bool, error) { return false, nil })

// Resolve asks c about every step in order. All answers are collected before
// any step's cleanup runs, so a refusal at any point leaves the repositories
// exactly as they were. It returns true when the mapping may proceed.
func (g GuardRail) Resolve(ctx context.Context, c Confirmer) (bool, error) {
	for _, step := range g.Steps {
		ok, err := c.Confirm(ctx, step)
		if err != nil {
			return false, fmt.Errorf("confirm %s: %w", step.Kind, err)
		}
		if !ok {
			return false, nil
		}
	}
	for _, step := range g.Steps {
		if step.apply != nil {
			step.apply()
		}
	}
	return true, nil
}

// CheckGuardRails inspects the repositories for the two ways a new
// tv → selected.Symbol mapping would create a duplicate: (1) other investing
// tickers already carrying selected.PairID, and (2) selected.Symbol already
// reverse-mapping from a different tv ticker.
func (m *Manager) CheckGuardRails(selected model.PairInfo, tv model.TvTicker) GuardRail {
	g := GuardRail{Selected: selected, Tv: tv}

	var stale []model.InvestingTicker
	for _, inv := range m.repos.Pairs.InvestingTickersFor(selected.PairID) {
		if inv != selected.Symbol {
			stale = append(stale, inv)
		}
	}
	if len(stale) > 0 {
		g.Steps = append(g.Steps, Confirmation{
			Kind:    KindStalePairAliases,
			Reason:  fmt.Sprintf("pairId %s is already tracked as %s; delete the stale aliases?", selected.PairID, join(stale)),
			Aliases: toStrings(stale),
			apply: func() {
				for _, inv := range stale {
					m.RemovePairByInvestingTicker(inv)
				}
			},
		})
	}

	var staleTv []model.TvTicker
	for _, other := range m.repos.Tickers.TvTickersFor(selected.Symbol) {
		if other != tv {
			staleTv = append(staleTv, other)
		}
	}
	if len(staleTv) > 0 {
		g.Steps = append(g.Steps, Confirmation{
			Kind:    KindStaleTvAlias,
			Reason:  fmt.Sprintf("%s is already mapped from %s; delete the stale tv alias?", selected.Symbol, join(staleTv)),
			Aliases: toStrings(staleTv),
			apply: func() {
				for _, old := range staleTv {
					m.symbols.DeleteTvMapping(old)
				}
			},
		})
	}
	return g
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

func join[T ~string](in []T) string {
	return strings.Join(toStrings(in), ", ")
}
