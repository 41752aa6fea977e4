package telemetry

import (
	"context"
	"fmt"

	"github.com/kilianp07/mg4dash/config"
)

// OBD reads the vehicle over an OBD-II adapter.
type OBD struct{}

func (OBD) Name() string { return config.ModeOBD }

// Run returns ErrNotImplemented; no OBD-II adapter is supported yet.
func (OBD) Run(context.Context, Target) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, config.ModeOBD)
}

// CAN reads battery and motor frames from the vehicle bus.
type CAN struct{}

func (CAN) Name() string { return config.ModeCAN }

// Run returns ErrNotImplemented; no CAN interface is supported yet.
func (CAN) Run(context.Context, Target) error {
	return fmt.Errorf("%w: %s", ErrNotImplemented, config.ModeCAN)
}
