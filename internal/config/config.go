// Package config loads the acquisition configuration: the trailing window,
// venue alias/blacklist tables, the dollar-equivalent quote allowlist and
// per-venue rate limits. Tables are loaded once and injected into the catalog
// and the acquisition engine; nothing here is process-wide mutable state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Fetch      FetchConfig            `yaml:"fetch"`
	Quotes     []string               `yaml:"quotes"`
	Aliases    map[string]string      `yaml:"aliases"`
	Blacklist  []string               `yaml:"blacklist"`
	Venues     map[string]VenueConfig `yaml:"venues"`
	Aggregator AggregatorConfig       `yaml:"aggregator"`
}

// FetchConfig bounds the acquisition engine.
type FetchConfig struct {
	DaysLimit  int `yaml:"days_limit"`  // trailing window of daily candles
	BatchLimit int `yaml:"batch_limit"` // max rows per paginated request
}

// VenueConfig is the per-venue client configuration.
type VenueConfig struct {
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
	Enabled bool    `yaml:"enabled"`
	BaseURL string  `yaml:"base_url,omitempty"`
}

// AggregatorConfig configures the metadata service / OHLC fallback source.
type AggregatorConfig struct {
	BaseURL      string `yaml:"base_url"`
	RPS          float64 `yaml:"rps"`
	Burst        int    `yaml:"burst"`
	AcceptedDays []int  `yaml:"accepted_days"`
}

// Default returns the built-in configuration. A YAML file loaded with Load
// overrides individual fields.
func Default() *Config {
	return &Config{
		Fetch: FetchConfig{
			DaysLimit:  364,
			BatchLimit: 1000,
		},
		Quotes: []string{
			"USD", "USDT", "USDC", "BUSD", "DAI",
			"TUSD", "USDD", "USDP", "PAX", "GUSD",
		},
		Aliases: map[string]string{
			"mxc":          "mexc",
			"gate-io":      "gate",
			"gateio":       "gate",
			"bybit_spot":   "bybit",
			"huobi-global": "huobi",
			"huobi_global": "huobi",
			"okex":         "okx",
			"binance_us":   "binanceus",
		},
		Blacklist: []string{"yobit", "hotbit"},
		Venues: map[string]VenueConfig{
			"kraken":  {RPS: 1, Burst: 3, Enabled: true},
			"binance": {RPS: 5, Burst: 10, Enabled: true},
			"okx":     {RPS: 5, Burst: 10, Enabled: true},
			"gate":    {RPS: 5, Burst: 10, Enabled: true},
		},
		Aggregator: AggregatorConfig{
			BaseURL:      "https://api.coingecko.com/api/v3",
			RPS:          0.5,
			Burst:        1,
			AcceptedDays: []int{1, 7, 14, 30, 90, 180, 365},
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Fetch.DaysLimit <= 0 {
		return fmt.Errorf("fetch days_limit must be positive, got %d", c.Fetch.DaysLimit)
	}
	if c.Fetch.BatchLimit <= 0 {
		return fmt.Errorf("fetch batch_limit must be positive, got %d", c.Fetch.BatchLimit)
	}
	if len(c.Quotes) == 0 {
		return fmt.Errorf("quotes allowlist must not be empty")
	}
	if c.Aggregator.BaseURL == "" {
		return fmt.Errorf("aggregator base_url must be set")
	}
	if len(c.Aggregator.AcceptedDays) == 0 {
		return fmt.Errorf("aggregator accepted_days must not be empty")
	}
	for i := 1; i < len(c.Aggregator.AcceptedDays); i++ {
		if c.Aggregator.AcceptedDays[i] <= c.Aggregator.AcceptedDays[i-1] {
			return fmt.Errorf("aggregator accepted_days must be strictly ascending")
		}
	}
	for name, v := range c.Venues {
		if v.Enabled && v.RPS <= 0 {
			return fmt.Errorf("venue %s: rps must be positive", name)
		}
	}
	return nil
}

// QuoteAllowed reports whether quote is in the dollar-equivalent allowlist.
func (c *Config) QuoteAllowed(quote string) bool {
	for _, q := range c.Quotes {
		if q == quote {
			return true
		}
	}
	return false
}

// Blacklisted reports whether a normalized venue id is explicitly excluded.
func (c *Config) Blacklisted(venue string) bool {
	for _, b := range c.Blacklist {
		if b == venue {
			return true
		}
	}
	return false
}
