package telemetry

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/core/logger"
	"github.com/kilianp07/mg4dash/core/model"
)

// ErrNotImplemented is returned by transports without a real reader.
var ErrNotImplemented = errors.New("telemetry transport not implemented")

// Target receives telemetry. *session.Session implements it.
type Target interface {
	Tick()
	Apply(model.Reading)
	SetConnected(bool)
}

// Source feeds a Target until its context is cancelled.
type Source interface {
	Name() string
	Run(ctx context.Context, t Target) error
}

// New builds the Source selected by cfg.Mode.
func New(cfg config.TelemetryConfig, log logger.Logger) (Source, error) {
	cfg.SetDefaults()
	switch cfg.Mode {
	case config.ModeSimulation:
		return NewSimulated(cfg.Interval()), nil
	case config.ModeAPI:
		return NewPolled(cfg, log)
	case config.ModeMQTT:
		return NewMQTT(cfg.MQTT, log)
	case config.ModeOBD:
		return OBD{}, nil
	case config.ModeCAN:
		return CAN{}, nil
	default:
		return nil, fmt.Errorf("unknown telemetry mode %q", cfg.Mode)
	}
}
