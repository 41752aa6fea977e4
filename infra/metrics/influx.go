package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/mg4dash/core/metrics"
	"github.com/kilianp07/mg4dash/infra/logger"
)

const writeTimeout = 5 * time.Second

// InfluxConfig holds the InfluxDB v2 connection settings.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes telemetry and gateway events to InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint without checking it.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: writeTimeout}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTelemetry writes a vehicle_telemetry point.
func (s *InfluxSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	t := ev.Snapshot
	p := write.NewPointWithMeasurement("vehicle_telemetry").
		AddTag("kind", ev.Kind).
		AddTag("connected", strconv.FormatBool(t.IsConnected)).
		AddField("battery_percent", round3(t.BatteryPercent)).
		AddField("range_km", round3(t.RangeKm)).
		AddField("efficiency_km_per_kwh", round3(t.EfficiencyKmPerKWh)).
		AddField("speed_kmh", round3(t.Location.SpeedKmh)).
		AddField("heading_deg", round3(t.Location.HeadingDeg)).
		AddField("lat", t.Location.Lat).
		AddField("lng", t.Location.Lng).
		AddField("navigating", ev.Navigating).
		AddField("trip_distance_km", round3(ev.TripDistanceKm)).
		AddField("trip_energy_kwh", round3(ev.TripEnergyKWh)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRoute writes a route_request point.
func (s *InfluxSink) RecordRoute(ev coremetrics.RouteEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	p := write.NewPointWithMeasurement("route_request").
		AddTag("endpoint", ev.Endpoint).
		AddTag("method", ev.Method).
		AddTag("status", strconv.Itoa(ev.Status)).
		AddField("upstream_ms", round3(ev.Upstream.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
