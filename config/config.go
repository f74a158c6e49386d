// Package config holds analyzer configuration and the marketplace table.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Marketplace identifies one Selling Partner marketplace and its
// regional API endpoint.
type Marketplace struct {
	ID          string
	CountryCode string
	Region      string
	Name        string
	Endpoint    string
}

// Known marketplaces keyed by country code.
var marketplaces = map[string]Marketplace{
	"US": {
		ID:          "ATVPDKIKX0DER",
		CountryCode: "US",
		Region:      "NA",
		Name:        "United States",
		Endpoint:    "https://sellingpartnerapi-na.amazon.com",
	},
	"CA": {
		ID:          "A2EUQ1WTGCTBG2",
		CountryCode: "CA",
		Region:      "NA",
		Name:        "Canada",
		Endpoint:    "https://sellingpartnerapi-na.amazon.com",
	},
	"GB": {
		ID:          "A1F83G8C2ARO7P",
		CountryCode: "GB",
		Region:      "EU",
		Name:        "United Kingdom",
		Endpoint:    "https://sellingpartnerapi-eu.amazon.com",
	},
}

// MarketplaceByCountry resolves a marketplace from its country code.
func MarketplaceByCountry(code string) (Marketplace, error) {
	m, ok := marketplaces[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Marketplace{}, fmt.Errorf("unknown marketplace country code %q", code)
	}
	return m, nil
}

// Config holds analyzer configuration.
type Config struct {
	Marketplace Marketplace

	// Quota limits, per API category. Defaults follow the published
	// Selling Partner rate plan for these endpoints.
	CatalogRatePerSecond float64
	CatalogBurst         int
	PricingRatePerSecond float64
	PricingBurst         int

	Timeout         time.Duration
	MaxAttempts     int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	Workers       int
	NameCacheSize int

	OutputFile   string
	OutputFormat string // csv, json, xlsx, or dual
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for the US marketplace.
func DefaultConfig() *Config {
	return &Config{
		Marketplace:          marketplaces["US"],
		CatalogRatePerSecond: 2.0,
		CatalogBurst:         2,
		PricingRatePerSecond: 0.5,
		PricingBurst:         1,
		Timeout:              10 * time.Second,
		MaxAttempts:          3,
		RetryBackoff:         2 * time.Second,
		RetryBackoffMax:      10 * time.Second,
		Workers:              4,
		NameCacheSize:        256,
		OutputFile:           "output/buybox_analysis.xlsx",
		OutputFormat:         "xlsx",
		MetricsAddr:          "",
		Verbose:              false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Marketplace.ID == "" {
		return fmt.Errorf("marketplace cannot be empty")
	}
	if c.Marketplace.Endpoint == "" {
		return fmt.Errorf("marketplace endpoint cannot be empty")
	}
	if c.CatalogRatePerSecond <= 0 {
		return fmt.Errorf("catalog rate must be positive")
	}
	if c.CatalogBurst < 1 {
		return fmt.Errorf("catalog burst must be at least 1")
	}
	if c.PricingRatePerSecond <= 0 {
		return fmt.Errorf("pricing rate must be positive")
	}
	if c.PricingBurst < 1 {
		return fmt.Errorf("pricing burst must be at least 1")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.NameCacheSize < 1 {
		return fmt.Errorf("name cache size must be at least 1")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "xlsx", "dual":
	default:
		return fmt.Errorf("output format must be csv, json, xlsx, or dual")
	}
	return nil
}

// EnvString reads an environment override, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment override.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvFloat reads a float environment override.
func EnvFloat(key string) (float64, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}
