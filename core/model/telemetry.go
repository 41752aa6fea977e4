package model

import "time"

// Location is the vehicle position and motion.
type Location struct {
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	HeadingDeg float64 `json:"headingDeg"`
	SpeedKmh   float64 `json:"speedKmh"`
}

// TirePressure holds per-wheel pressure in bar.
type TirePressure struct {
	FrontLeft  float64 `json:"frontLeft"`
	FrontRight float64 `json:"frontRight"`
	RearLeft   float64 `json:"rearLeft"`
	RearRight  float64 `json:"rearRight"`
}

// Temperature holds temperatures in degrees Celsius.
type Temperature struct {
	Cabin   float64 `json:"cabin"`
	Battery float64 `json:"battery"`
	Motor   float64 `json:"motor"`
}

// TelemetrySnapshot is one point-in-time reading of the vehicle.
type TelemetrySnapshot struct {
	BatteryPercent     float64      `json:"batteryPercent"`
	RangeKm            float64      `json:"rangeKm"`
	EfficiencyKmPerKWh float64      `json:"efficiencyKmPerKWh"`
	IsConnected        bool         `json:"isConnected"`
	Location           Location     `json:"location"`
	TirePressureBar    TirePressure `json:"tirePressureBar"`
	TemperatureC       Temperature  `json:"temperatureC"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// SeedTelemetry returns the snapshot a new session starts from.
func SeedTelemetry() TelemetrySnapshot {
	return TelemetrySnapshot{
		BatteryPercent:     85,
		RangeKm:            245,
		EfficiencyKmPerKWh: 4.2,
		IsConnected:        true,
		Location:           Location{Lat: 51.5074, Lng: -0.1278},
		TirePressureBar:    TirePressure{FrontLeft: 2.4, FrontRight: 2.4, RearLeft: 2.3, RearRight: 2.3},
		TemperatureC:       Temperature{Cabin: 22, Battery: 18, Motor: 45},
	}
}

// NavigationState tells whether a route is being followed and which one.
type NavigationState struct {
	IsNavigating bool          `json:"isNavigating"`
	ActiveRoute  RouteDocument `json:"activeRoute"`
}

// Reading is a partial telemetry update from a vehicle data source.
// Nil fields leave the current snapshot untouched.
type Reading struct {
	BatteryPercent     *float64
	RangeKm            *float64
	EfficiencyKmPerKWh *float64
	SpeedKmh           *float64
	HeadingDeg         *float64
	Lat                *float64
	Lng                *float64
	BatteryTempC       *float64
	CabinTempC         *float64
	MotorTempC         *float64
	Tires              *TirePressure
	At                 time.Time
}
