package routing

import (
	"encoding/json"
	"fmt"

	"github.com/kilianp07/mg4dash/core/model"
)

// Pricing converts charged energy into a cost estimate.
type Pricing struct {
	PerKWh   float64
	Currency string
}

// ChargingStop is a charging station the route stops at.
type ChargingStop struct {
	Name             string  `json:"name"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	ArrivalChargeKWh float64 `json:"arrivalChargeKWh"`
	TargetChargeKWh  float64 `json:"targetChargeKWh"`
	ChargeMinutes    float64 `json:"chargeMinutes"`
	PowerKW          float64 `json:"powerKW"`
}

// RouteSummary is the display view of the first route in a document.
type RouteSummary struct {
	DistanceKm      float64        `json:"distanceKm"`
	DurationMinutes float64        `json:"durationMinutes"`
	DrivingMinutes  float64        `json:"drivingMinutes"`
	ChargingMinutes float64        `json:"chargingMinutes"`
	ConsumptionKWh  float64        `json:"consumptionKWh"`
	ChargedKWh      float64        `json:"chargedKWh"`
	EstimatedCost   float64        `json:"estimatedCost"`
	Currency        string         `json:"currency,omitempty"`
	Alternatives    int            `json:"alternatives"`
	ChargingStops   []ChargingStop `json:"chargingStops"`
	Instructions    []string       `json:"instructions"`
}

type hereDocument struct {
	Routes []struct {
		Sections []hereSection `json:"sections"`
	} `json:"routes"`
}

type herePlace struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type hereSection struct {
	Arrival struct {
		Place  herePlace `json:"place"`
		Charge *float64  `json:"charge"`
	} `json:"arrival"`
	Summary struct {
		Duration    float64 `json:"duration"`
		Length      float64 `json:"length"`
		Consumption float64 `json:"consumption"`
	} `json:"summary"`
	PostActions []struct {
		Action          string  `json:"action"`
		Duration        float64 `json:"duration"`
		ConsumablePower float64 `json:"consumablePower"`
		ArrivalCharge   float64 `json:"arrivalCharge"`
		TargetCharge    float64 `json:"targetCharge"`
	} `json:"postActions"`
	Actions []struct {
		Instruction string `json:"instruction"`
	} `json:"actions"`
}

// Summarize extracts distance, time, energy and charging stops from the
// first route of a HERE v8 document.
func Summarize(doc model.RouteDocument, price Pricing) (RouteSummary, error) {
	var d hereDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return RouteSummary{}, fmt.Errorf("decode route document: %w", err)
	}
	if len(d.Routes) == 0 {
		return RouteSummary{}, ErrNoRoute
	}
	s := RouteSummary{
		Currency:      price.Currency,
		Alternatives:  len(d.Routes) - 1,
		ChargingStops: []ChargingStop{},
		Instructions:  []string{},
	}
	var drivingSec, chargingSec, lengthM float64
	for _, sec := range d.Routes[0].Sections {
		drivingSec += sec.Summary.Duration
		lengthM += sec.Summary.Length
		s.ConsumptionKWh += sec.Summary.Consumption
		for _, a := range sec.Actions {
			if a.Instruction != "" {
				s.Instructions = append(s.Instructions, a.Instruction)
			}
		}

		var stop *ChargingStop
		if sec.Arrival.Place.Type == "chargingStation" {
			stop = &ChargingStop{
				Name: sec.Arrival.Place.Name,
				Lat:  sec.Arrival.Place.Location.Lat,
				Lng:  sec.Arrival.Place.Location.Lng,
			}
			if sec.Arrival.Charge != nil {
				stop.ArrivalChargeKWh = *sec.Arrival.Charge
			}
		}
		for _, pa := range sec.PostActions {
			chargingSec += pa.Duration
			if pa.Action != "charging" {
				continue
			}
			if gained := pa.TargetCharge - pa.ArrivalCharge; gained > 0 {
				s.ChargedKWh += gained
			}
			if stop != nil {
				stop.ArrivalChargeKWh = pa.ArrivalCharge
				stop.TargetChargeKWh = pa.TargetCharge
				stop.PowerKW = pa.ConsumablePower
				stop.ChargeMinutes += pa.Duration / 60
			}
		}
		if stop != nil {
			s.ChargingStops = append(s.ChargingStops, *stop)
		}
	}
	s.DistanceKm = lengthM / 1000
	s.DrivingMinutes = drivingSec / 60
	s.ChargingMinutes = chargingSec / 60
	s.DurationMinutes = s.DrivingMinutes + s.ChargingMinutes
	s.EstimatedCost = s.ChargedKWh * price.PerKWh
	return s, nil
}
