package config

import "github.com/shopspring/decimal"

// Default values for optional configuration fields.
const (
	DefaultDatabasePath  = "tickerguard.db"
	DefaultBatchSize     = 50
	DefaultConcurrency   = 4
	DefaultStaleDays     = 90
	DefaultPageSize      = 50
	DefaultRiskTolerance = "0.01"
	DefaultWatchInterval = "1m"
)

// DefaultPreferredExchanges rank ahead of other exchanges.
var DefaultPreferredExchanges = []string{"NSE"}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}

	if c.Audit.BatchSize == 0 {
		c.Audit.BatchSize = DefaultBatchSize
	}
	if c.Audit.Concurrency == 0 {
		c.Audit.Concurrency = DefaultConcurrency
	}
	if c.Audit.StaleDays == 0 {
		c.Audit.StaleDays = DefaultStaleDays
	}
	if c.Audit.PageSize == 0 {
		c.Audit.PageSize = DefaultPageSize
	}

	if len(c.Rank.PreferredExchanges) == 0 {
		c.Rank.PreferredExchanges = append([]string(nil), DefaultPreferredExchanges...)
	}

	if c.Risk.Tolerance == "" {
		c.Risk.Tolerance = DefaultRiskTolerance
	}

	if c.Watch.Interval == "" {
		c.Watch.Interval = DefaultWatchInterval
	}
}

var oneDecimal = decimal.NewFromInt(1)
