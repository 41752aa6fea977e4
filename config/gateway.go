package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultRoutingURL  = "https://router.hereapi.com/v8/routes"
	DefaultAPIKeyEnv   = "HERE_API_KEY"
	DefaultPricePerKWh = 0.45
)

// GatewayConfig configures the routing gateway. The provider key is never
// stored here: APIKeyEnv names the environment variable read per request.
// PricePerKWh is nil when unset; an explicit 0 means free charging.
type GatewayConfig struct {
	BaseURL        string   `json:"base_url"`
	APIKeyEnv      string   `json:"api_key_env"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	PricePerKWh    *float64 `json:"price_per_kwh"`
	Currency       string   `json:"currency"`
}

func (c *GatewayConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultRoutingURL
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.PricePerKWh == nil {
		price := DefaultPricePerKWh
		c.PricePerKWh = &price
	}
	if c.Currency == "" {
		c.Currency = "GBP"
	}
}

func (c GatewayConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be absolute, got %q", c.BaseURL)
	}
	if c.PricePerKWh != nil && *c.PricePerKWh < 0 {
		return fmt.Errorf("price_per_kwh must not be negative")
	}
	return nil
}

// Price returns the charging price per kWh.
func (c GatewayConfig) Price() float64 {
	if c.PricePerKWh == nil {
		return DefaultPricePerKWh
	}
	return *c.PricePerKWh
}

// Timeout returns the upstream request timeout.
func (c GatewayConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
