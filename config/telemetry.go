package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"
)

// Telemetry source modes.
const (
	ModeSimulation = "simulation"
	ModeAPI        = "api"
	ModeMQTT       = "mqtt"
	ModeOBD        = "obd"
	ModeCAN        = "can"
)

// TelemetryConfig selects and configures the vehicle data source.
type TelemetryConfig struct {
	Mode            string           `json:"mode"`
	IntervalSeconds int              `json:"interval_seconds"`
	API             APISourceConfig  `json:"api"`
	MQTT            MQTTSourceConfig `json:"mqtt"`
	// Window bounds the number of samples kept for trip statistics.
	Window int `json:"window"`
	// Seed fixes the simulator's random source; 0 seeds from the clock.
	Seed int64 `json:"seed"`
}

// APISourceConfig configures the polled vehicle API.
type APISourceConfig struct {
	URL            string `json:"url"`
	Token          string `json:"token"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// MQTTSourceConfig configures the push telemetry subscription.
type MQTTSourceConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"client_id"`
	Username string `json:"username"`
	Password string `json:"password"`
	Topic    string `json:"topic"`
	QoS      byte   `json:"qos"`

	UseTLS bool `json:"use_tls"`
	// CABundle verifies the broker; ClientCert and ClientKey enable mutual TLS
	// and must be set together.
	CABundle   string `json:"ca_bundle"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
}

// LoadTLSConfig builds the broker TLS configuration from the PEM files.
func (c MQTTSourceConfig) LoadTLSConfig() (*tls.Config, error) {
	if !c.UseTLS {
		return nil, nil
	}
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if (c.ClientCert == "") != (c.ClientKey == "") {
		return nil, fmt.Errorf("mqtt tls requires both client_cert and client_key")
	}
	if c.ClientCert != "" {
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load cert: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if c.CABundle != "" {
		caBytes, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caBytes) {
			return nil, fmt.Errorf("ca bundle %s holds no certificates", c.CABundle)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}

func (c *TelemetryConfig) SetDefaults() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	if c.Mode == "" {
		c.Mode = ModeSimulation
	}
	if c.Window <= 0 {
		c.Window = 720
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "mg4/telemetry"
	}
}

func (c TelemetryConfig) Validate() error {
	switch c.Mode {
	case ModeSimulation, ModeOBD, ModeCAN:
	case ModeAPI:
		if c.API.URL == "" || c.API.Token == "" {
			return fmt.Errorf("api mode requires api.url and api.token")
		}
	case ModeMQTT:
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt mode requires mqtt.broker")
		}
		if c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	return nil
}

// Interval returns the tick or poll period.
func (c TelemetryConfig) Interval() time.Duration {
	if c.IntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.IntervalSeconds) * time.Second
}

// APITimeout returns the per-poll HTTP timeout.
func (c TelemetryConfig) APITimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}
