package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/core/logger"
)

const statusPath = "/vehicle/status"

// Polled reads the vehicle status API at a fixed interval.
type Polled struct {
	url      string
	token    string
	interval time.Duration
	client   *http.Client
	log      logger.Logger
	now      func() time.Time
}

// NewPolled validates cfg.API and returns a poller.
func NewPolled(cfg config.TelemetryConfig, log logger.Logger) (*Polled, error) {
	if cfg.API.URL == "" || cfg.API.Token == "" {
		return nil, fmt.Errorf("api telemetry requires url and token")
	}
	return &Polled{
		url:      strings.TrimRight(cfg.API.URL, "/") + statusPath,
		token:    cfg.API.Token,
		interval: cfg.Interval(),
		client:   &http.Client{Timeout: cfg.APITimeout()},
		log:      log,
		now:      time.Now,
	}, nil
}

func (p *Polled) Name() string { return config.ModeAPI }

// Run fetches once to check the connection, then polls until ctx is done.
// Failed polls are logged and skipped.
func (p *Polled) Run(ctx context.Context, t Target) error {
	st, err := p.Fetch(ctx)
	if err != nil {
		t.SetConnected(false)
		return fmt.Errorf("api connection failed: %w", err)
	}
	t.SetConnected(true)
	defer t.SetConnected(false)
	t.Apply(st.Reading(p.now()))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			st, err := p.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				p.log.Warnf("vehicle status poll failed: %v", err)
				continue
			}
			t.Apply(st.Reading(p.now()))
		}
	}
}

// Fetch performs one status request.
func (p *Polled) Fetch(ctx context.Context) (VehicleStatus, error) {
	var st VehicleStatus
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return st, err
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return st, fmt.Errorf("status api returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
