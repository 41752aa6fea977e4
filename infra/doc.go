// Package infra holds the technical adapters of the dashboard backend:
// zerolog logging and the Prometheus and InfluxDB metric sinks. Adapters
// implement interfaces declared under core and are wired together in app.
package infra
