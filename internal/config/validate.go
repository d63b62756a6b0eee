package config

import (
	"errors"
	"fmt"
	"time"
)

// Validate checks that all values are usable. Call after ApplyDefaults.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}

	if c.Audit.BatchSize < 1 {
		return errors.New("audit.batch_size must be >= 1")
	}
	if c.Audit.Concurrency < 1 {
		return errors.New("audit.concurrency must be >= 1")
	}
	if c.Audit.StaleDays < 1 {
		return errors.New("audit.stale_days must be >= 1")
	}
	if c.Audit.PageSize < 1 {
		return errors.New("audit.page_size must be >= 1")
	}

	limit, err := parseDecimal(c.Risk.Limit)
	if err != nil {
		return fmt.Errorf("risk.limit: %w", err)
	}
	if limit.IsNegative() {
		return fmt.Errorf("risk.limit must be >= 0, got %s", limit)
	}
	tol, err := parseDecimal(c.Risk.Tolerance)
	if err != nil {
		return fmt.Errorf("risk.tolerance: %w", err)
	}
	if !tol.IsPositive() || tol.GreaterThanOrEqual(oneDecimal) {
		return fmt.Errorf("risk.tolerance must be in (0, 1), got %s", tol)
	}

	for tv, kite := range c.Symbols.Kite {
		if tv == "" || kite == "" {
			return fmt.Errorf("symbols.kite: empty entry %q: %q", tv, kite)
		}
	}

	d, err := time.ParseDuration(c.Watch.Interval)
	if err != nil {
		return fmt.Errorf("watch.interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", d)
	}
	return nil
}
