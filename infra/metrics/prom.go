package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/mg4dash/core/metrics"
)

// DefaultNamespace prefixes every collector name.
const DefaultNamespace = "mg4"

// PromSink exposes gateway and telemetry metrics to Prometheus.
type PromSink struct {
	requests   *prometheus.CounterVec
	upstream   *prometheus.HistogramVec
	battery    prometheus.Gauge
	rangeKm    prometheus.Gauge
	efficiency prometheus.Gauge
	speed      prometheus.Gauge
	connected  prometheus.Gauge
	navigating prometheus.Gauge
	tripKm     prometheus.Gauge
	tripKWh    prometheus.Gauge
}

// NewPromSinkWithRegistry registers the collectors on reg. A nil registerer
// defaults to the global Prometheus registerer. Collectors already present
// on reg are reused.
func NewPromSinkWithRegistry(namespace string, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	s := &PromSink{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_requests_total",
			Help:      "Routing gateway requests by endpoint, method and status",
		}, []string{"endpoint", "method", "status"}),
		upstream: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "route_upstream_seconds",
			Help:      "Routing provider round trip time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		battery:    gauge("battery_percent", "State of charge"),
		rangeKm:    gauge("range_km", "Estimated remaining range"),
		efficiency: gauge("efficiency_km_per_kwh", "Current efficiency"),
		speed:      gauge("speed_kmh", "Current speed"),
		connected:  gauge("vehicle_connected", "1 when the telemetry source is connected"),
		navigating: gauge("navigating", "1 while a route is being followed"),
		tripKm:     gauge("trip_distance_km", "Distance since the last trip reset"),
		tripKWh:    gauge("trip_energy_kwh", "Energy used since the last trip reset"),
	}

	var err error
	if s.requests, err = register(reg, s.requests); err != nil {
		return nil, err
	}
	if s.upstream, err = register(reg, s.upstream); err != nil {
		return nil, err
	}
	for _, g := range []*prometheus.Gauge{
		&s.battery, &s.rangeKm, &s.efficiency, &s.speed,
		&s.connected, &s.navigating, &s.tripKm, &s.tripKWh,
	} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRoute counts the request and observes the provider latency.
func (s *PromSink) RecordRoute(ev coremetrics.RouteEvent) error {
	s.requests.WithLabelValues(ev.Endpoint, ev.Method, strconv.Itoa(ev.Status)).Inc()
	if ev.Upstream > 0 {
		s.upstream.WithLabelValues(ev.Endpoint).Observe(ev.Upstream.Seconds())
	}
	return nil
}

// RecordTelemetry updates the vehicle gauges.
func (s *PromSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	t := ev.Snapshot
	s.battery.Set(t.BatteryPercent)
	s.rangeKm.Set(t.RangeKm)
	s.efficiency.Set(t.EfficiencyKmPerKWh)
	s.speed.Set(t.Location.SpeedKmh)
	s.connected.Set(boolGauge(t.IsConnected))
	s.navigating.Set(boolGauge(ev.Navigating))
	s.tripKm.Set(ev.TripDistanceKm)
	s.tripKWh.Set(ev.TripEnergyKWh)
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
