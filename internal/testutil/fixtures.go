package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tickerguard/internal/repo"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Repos builds a repository set from a YAML or JSON snapshot document.
func Repos(t testing.TB, doc string) *repo.Set {
	t.Helper()
	snap, err := repo.DecodeSnapshot([]byte(doc))
	require.NoError(t, err)
	set := repo.NewSet()
	require.NoError(t, set.Restore(snap))
	return set
}

// RelianceSnapshot is a small portfolio exercising every repository:
// RELIANCE is fully tracked, TCS has a single alert, INFY is unmapped on the
// tv side, and M&M carries a kite-translated symbol.
const RelianceSnapshot = `
pair:
  RELIANCE:
    name: Reliance Industries
    pairId: "101"
    exchange: NSE
    symbol: RELIANCE
  TCS:
    name: Tata Consultancy Services
    pairId: "102"
    exchange: NSE
    symbol: TCS
  INFY:
    name: Infosys
    pairId: "103"
    exchange: NSE
    symbol: INFY
  M&M:
    name: Mahindra & Mahindra
    pairId: "104"
    exchange: NSE
    symbol: M&M
ticker:
  RELIANCE: RELIANCE
  TCS: TCS
  M&M: M&M
exchange:
  RELIANCE: NSE:RELIANCE
sequence:
  RELIANCE: MWD
recent:
  RELIANCE: 1705310100000
  TCS: 1705310100000
  M&M: 1705310100000
alert:
  "101":
    - id: a-1
      price: "2400"
    - id: a-2
      price: "2600"
  "102":
    - id: a-3
      price: "3500"
  "104":
    - id: a-4
      price: "1500"
    - id: a-5
      price: "1700"
watch:
  0: [RELIANCE]
flag:
  2: [RELIANCE]
`
