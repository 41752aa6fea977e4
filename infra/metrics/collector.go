package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/mg4dash/core/metrics"
	"github.com/kilianp07/mg4dash/core/session"
	"github.com/kilianp07/mg4dash/infra/logger"
)

// SessionEvents is the subscription side of a trip session.
type SessionEvents interface {
	Subscribe() <-chan session.Event
	Unsubscribe(<-chan session.Event)
}

// RunSessionCollector records every session event on sink until ctx is
// canceled or the session closes. Record errors are logged and skipped.
func RunSessionCollector(ctx context.Context, src SessionEvents, sink coremetrics.TelemetryRecorder, log logger.Logger) error {
	if src == nil || sink == nil {
		return nil
	}
	sub := src.Subscribe()
	defer src.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			if err := sink.RecordTelemetry(TelemetryEvent(ev)); err != nil {
				log.Warnf("record %s event: %v", ev.Kind, err)
			}
		}
	}
}

// TelemetryEvent converts a session event for the sinks.
func TelemetryEvent(ev session.Event) coremetrics.TelemetryEvent {
	return coremetrics.TelemetryEvent{
		Kind:           string(ev.Kind),
		Snapshot:       ev.Telemetry,
		Navigating:     ev.Navigation.IsNavigating,
		TripDistanceKm: ev.Trip.DistanceKm,
		TripEnergyKWh:  ev.Trip.EnergyKWh,
		Time:           ev.At,
	}
}
