package telemetry

import (
	"time"

	"github.com/kilianp07/mg4dash/core/model"
)

// VehicleStatus is the payload served by the vehicle status API and pushed
// over MQTT. Every field is optional.
type VehicleStatus struct {
	Battery     *BatteryStatus     `json:"battery,omitempty"`
	Performance *PerformanceStatus `json:"performance,omitempty"`
	Location    *LocationStatus    `json:"location,omitempty"`
	Temperature *TemperatureStatus `json:"temperature,omitempty"`
	Maintenance *MaintenanceStatus `json:"maintenance,omitempty"`
	Timestamp   *int64             `json:"ts,omitempty"`
}

type BatteryStatus struct {
	Level          *float64 `json:"level,omitempty"`
	Range          *float64 `json:"range,omitempty"`
	Temperature    *float64 `json:"temperature,omitempty"`
	ChargingStatus string   `json:"chargingStatus,omitempty"`
	ChargingRate   *float64 `json:"chargingRate,omitempty"`
}

type PerformanceStatus struct {
	Efficiency       *float64 `json:"efficiency,omitempty"`
	PowerConsumption *float64 `json:"powerConsumption,omitempty"`
	Speed            *float64 `json:"speed,omitempty"`
}

type LocationStatus struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Heading *float64 `json:"heading,omitempty"`
}

type TemperatureStatus struct {
	Cabin *float64 `json:"cabin,omitempty"`
	Motor *float64 `json:"motor,omitempty"`
}

type MaintenanceStatus struct {
	TirePressure *model.TirePressure `json:"tirePressure,omitempty"`
}

// Reading converts the status into a session reading. received is used
// when the payload carries no timestamp.
func (v VehicleStatus) Reading(received time.Time) model.Reading {
	r := model.Reading{At: received}
	if v.Timestamp != nil {
		r.At = time.Unix(*v.Timestamp, 0)
	}
	if b := v.Battery; b != nil {
		r.BatteryPercent = b.Level
		r.RangeKm = b.Range
		r.BatteryTempC = b.Temperature
	}
	if p := v.Performance; p != nil {
		r.EfficiencyKmPerKWh = p.Efficiency
		r.SpeedKmh = p.Speed
	}
	if l := v.Location; l != nil {
		r.Lat = l.Lat
		r.Lng = l.Lng
		r.HeadingDeg = l.Heading
	}
	if tc := v.Temperature; tc != nil {
		r.CabinTempC = tc.Cabin
		r.MotorTempC = tc.Motor
	}
	if m := v.Maintenance; m != nil {
		r.Tires = m.TirePressure
	}
	return r
}
