package metrics

import (
	"errors"
	"time"

	"github.com/kilianp07/mg4dash/core/model"
)

// RouteEvent describes one routing gateway request.
type RouteEvent struct {
	Endpoint string
	Method   string
	Status   int
	// Upstream is the provider round trip, zero when no call was made.
	Upstream time.Duration
	Time     time.Time
}

// RouteRecorder records gateway requests.
type RouteRecorder interface {
	RecordRoute(ev RouteEvent) error
}

// TelemetryEvent is a session change worth recording.
type TelemetryEvent struct {
	Kind           string
	Snapshot       model.TelemetrySnapshot
	Navigating     bool
	TripDistanceKm float64
	TripEnergyKWh  float64
	Time           time.Time
}

// TelemetryRecorder records session changes.
type TelemetryRecorder interface {
	RecordTelemetry(ev TelemetryEvent) error
}

// Sink records everything the service observes.
type Sink interface {
	RouteRecorder
	TelemetryRecorder
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) RecordRoute(RouteEvent) error { return nil }

func (NopSink) RecordTelemetry(TelemetryEvent) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRoute forwards to every sink and joins their errors.
func (m *MultiSink) RecordRoute(ev RouteEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRoute(ev))
	}
	return errors.Join(errs...)
}

// RecordTelemetry forwards to every sink and joins their errors.
func (m *MultiSink) RecordTelemetry(ev TelemetryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordTelemetry(ev))
	}
	return errors.Join(errs...)
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close()
}

// Close closes every member implementing Closer.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
