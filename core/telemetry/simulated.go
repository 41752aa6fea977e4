package telemetry

import (
	"context"
	"time"

	"github.com/kilianp07/mg4dash/config"
)

// Simulated ticks the target at a fixed period.
type Simulated struct {
	interval time.Duration
}

// NewSimulated returns a simulator ticking every interval.
func NewSimulated(interval time.Duration) *Simulated {
	if interval <= 0 {
		interval = config.TelemetryConfig{}.Interval()
	}
	return &Simulated{interval: interval}
}

func (s *Simulated) Name() string { return config.ModeSimulation }

// Run ticks until ctx is done.
func (s *Simulated) Run(ctx context.Context, t Target) error {
	t.SetConnected(true)
	defer t.SetConnected(false)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Tick()
		}
	}
}
