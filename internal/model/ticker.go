package model

import (
	"html"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// TvTicker identifies an instrument on the charting platform.
type TvTicker string

// InvestingTicker identifies an instrument on the alerting platform.
type InvestingTicker string

// KiteSymbol identifies an instrument on the order-management platform.
type KiteSymbol string

// PairID is the alerting platform's stable numeric-as-string instrument id.
type PairID string

// PairInfo describes an alerting-platform instrument.
// Symbol is the investing ticker the pair is stored under.
type PairInfo struct {
	Name     string          `json:"name" yaml:"name"`
	PairID   PairID          `json:"pairId" yaml:"pairId"`
	Exchange string          `json:"exchange" yaml:"exchange"`
	Symbol   InvestingTicker `json:"symbol" yaml:"symbol"`
}

// Alert is a price alert mirrored from the alerting platform.
// PairID is implied by the repository key when persisted.
type Alert struct {
	ID     string          `json:"id" yaml:"id"`
	PairID PairID          `json:"pairId,omitempty" yaml:"pairId,omitempty"`
	Price  decimal.Decimal `json:"price" yaml:"price"`
}

// Sequence is the preferred analysis sequence for a ticker.
type Sequence string

const (
	SequenceMWD Sequence = "MWD"
	SequenceYR  Sequence = "YR"
)

// ParseSequence validates a sequence string.
func ParseSequence(s string) (Sequence, error) {
	switch Sequence(strings.ToUpper(strings.TrimSpace(s))) {
	case SequenceMWD:
		return SequenceMWD, nil
	case SequenceYR:
		return SequenceYR, nil
	default:
		return "", &ReferenceError{Kind: "sequence", Value: s}
	}
}

// CleanInput trims and NFC-normalizes operator-supplied identifiers.
func CleanInput(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// IsHTMLEncoded reports whether s carries an HTML entity such as "&amp;",
// the usual artifact of a scraped page.
func IsHTMLEncoded(s string) bool {
	return strings.Contains(s, "&") && html.UnescapeString(s) != s
}

// HasRawAmpersand reports whether s contains a literal '&' that is not
// part of an HTML entity.
func HasRawAmpersand(s string) bool {
	return strings.Contains(s, "&") && !IsHTMLEncoded(s)
}

// IsComposite reports whether a tv ticker is a formula or spread
// (e.g. "NSE:NIFTY/NSE:BANKNIFTY") rather than a single instrument.
func IsComposite(t TvTicker) bool {
	s := string(t)
	return strings.ContainsAny(s, "/*+^()") || strings.IndexFunc(s, unicode.IsSpace) >= 0
}
