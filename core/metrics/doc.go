// Package metrics defines the observability sinks of the dashboard backend.
// Gateway handlers record one RouteEvent per request and the session
// forwarder records a TelemetryEvent for every session change. Sinks are
// built by name from configuration; several sinks are combined with
// NewMultiSink.
package metrics
