package session

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// TripStats summarises the current trip.
type TripStats struct {
	StartedAt             time.Time `json:"startedAt"`
	DistanceKm            float64   `json:"distanceKm"`
	EnergyKWh             float64   `json:"energyKWh"`
	AvgSpeedKmh           float64   `json:"avgSpeedKmh"`
	AvgEfficiencyKmPerKWh float64   `json:"avgEfficiencyKmPerKWh"`
	Samples               int       `json:"samples"`
}

// trip accumulates distance and energy; speed and efficiency samples are
// kept in a sliding window of at most window entries.
type trip struct {
	started  time.Time
	distance float64
	energy   float64
	speeds   []float64
	effs     []float64
	samples  int
	window   int
}

func newTrip(start time.Time, window int) *trip {
	return &trip{started: start, window: window}
}

func (t *trip) record(speedKmh, effKmPerKWh float64, dt time.Duration) {
	km := speedKmh * dt.Hours()
	t.distance += km
	if effKmPerKWh > 0 {
		t.energy += km / effKmPerKWh
	}
	t.samples++
	t.speeds = appendWindow(t.speeds, speedKmh, t.window)
	t.effs = appendWindow(t.effs, effKmPerKWh, t.window)
}

func appendWindow(xs []float64, v float64, window int) []float64 {
	xs = append(xs, v)
	if window > 0 && len(xs) > window {
		xs = append(xs[:0], xs[len(xs)-window:]...)
	}
	return xs
}

func (t *trip) stats() TripStats {
	s := TripStats{
		StartedAt:  t.started,
		DistanceKm: t.distance,
		EnergyKWh:  t.energy,
		Samples:    t.samples,
	}
	if len(t.speeds) > 0 {
		s.AvgSpeedKmh = stat.Mean(t.speeds, nil)
		s.AvgEfficiencyKmPerKWh = stat.Mean(t.effs, nil)
	}
	return s
}
