package model

import "github.com/shopspring/decimal"

// Order is a live order on the order-management platform.
type Order struct {
	ID       string          `json:"id" yaml:"id"`
	Symbol   KiteSymbol      `json:"symbol" yaml:"symbol"`
	Entry    decimal.Decimal `json:"entry" yaml:"entry"`
	Stop     decimal.Decimal `json:"stop" yaml:"stop"`
	Quantity int64           `json:"quantity" yaml:"quantity"`
}

// Risk is the capital at stake if the stop is hit: |entry − stop| × quantity.
func (o Order) Risk() decimal.Decimal {
	return o.Entry.Sub(o.Stop).Abs().Mul(decimal.NewFromInt(o.Quantity))
}
