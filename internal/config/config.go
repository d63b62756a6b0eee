// Package config loads tickerguard configuration from YAML or CUE files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" json:"database"`
	Audit    AuditConfig    `yaml:"audit" json:"audit"`
	Rank     RankConfig     `yaml:"rank" json:"rank"`
	Risk     RiskConfig     `yaml:"risk" json:"risk"`
	Symbols  SymbolsConfig  `yaml:"symbols" json:"symbols"`
	Watch    WatchConfig    `yaml:"watch" json:"watch"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// AuditConfig tunes the audit runner and plugins.
type AuditConfig struct {
	BatchSize   int      `yaml:"batch_size" json:"batch_size"`
	Concurrency int      `yaml:"concurrency" json:"concurrency"`
	StaleDays   int      `yaml:"stale_days" json:"stale_days"`
	PageSize    int      `yaml:"page_size" json:"page_size"`
	Disabled    []string `yaml:"disabled" json:"disabled"`
}

// RankConfig tunes canonical alias selection.
type RankConfig struct {
	PreferredExchanges []string `yaml:"preferred_exchanges" json:"preferred_exchanges"`
}

// RiskConfig holds the approved per-trade risk. Amounts are decimal strings.
type RiskConfig struct {
	Limit     string `yaml:"limit" json:"limit"`
	Tolerance string `yaml:"tolerance" json:"tolerance"`
}

// SymbolsConfig extends the built-in tv → kite translation table.
type SymbolsConfig struct {
	Kite map[string]string `yaml:"kite" json:"kite"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Interval    string `yaml:"interval" json:"interval"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Load reads path, substitutes ${VAR} environment references and decodes
// it by extension: .yaml/.yml with unknown keys rejected, or .cue.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".cue":
		if err := decodeCUE(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	return &cfg, nil
}

// LoadWithDefaults loads path, applies defaults and validates the result.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns a validated configuration built from defaults alone.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func decodeYAML(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// decodeCUE evaluates a CUE file. Settings may sit at the top level or under
// a "tickerguard" field.
func decodeCUE(path string, data []byte, cfg *Config) error {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	if nested := value.LookupPath(cue.ParsePath("tickerguard")); nested.Exists() {
		value = nested
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if err := value.Decode(cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// StaleWindow returns the stale-review window.
func (c *Config) StaleWindow() time.Duration {
	return time.Duration(c.Audit.StaleDays) * 24 * time.Hour
}

// RiskLimit returns the approved per-trade risk; zero when unset.
func (c *Config) RiskLimit() decimal.Decimal {
	d, _ := parseDecimal(c.Risk.Limit)
	return d
}

// RiskTolerance returns the relative band around each approved risk.
func (c *Config) RiskTolerance() decimal.Decimal {
	d, _ := parseDecimal(c.Risk.Tolerance)
	return d
}

// WatchInterval returns the watch polling interval.
func (c *Config) WatchInterval() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Interval)
	return d
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
