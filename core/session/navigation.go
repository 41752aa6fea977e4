package session

import (
	"context"

	"github.com/looplab/fsm"

	"github.com/kilianp07/mg4dash/core/logger"
)

// Navigation states and events.
const (
	StateIdle       = "idle"
	StateNavigating = "navigating"

	eventStart = "start"
	eventStop  = "stop"
)

func newNavigationFSM(log logger.Logger) *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateNavigating},
			{Name: eventStop, Src: []string{StateNavigating}, Dst: StateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.Infof("navigation %s -> %s", e.Src, e.Dst)
			},
		},
	)
}
