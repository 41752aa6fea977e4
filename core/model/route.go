package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Param is an optional trip parameter. It travels as a string but decodes
// from JSON strings, numbers, booleans or string arrays (joined with ",").
type Param string

// UnmarshalJSON implements json.Unmarshaler.
func (p *Param) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Param(s)
	case '[':
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return fmt.Errorf("list parameter: %w", err)
		}
		*p = Param(strings.Join(items, ","))
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*p = Param(strconv.FormatBool(v))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("parameter must be a string, number, bool or list: %w", err)
		}
		*p = Param(n.String())
	}
	return nil
}

func (p Param) String() string { return string(p) }

// Trimmed returns the value without surrounding whitespace.
func (p Param) Trimmed() string { return strings.TrimSpace(string(p)) }

// TripRequest carries the user-facing trip parameters. Only Origin and
// Destination are required; both are "lat,lng" literals.
type TripRequest struct {
	Origin                        Param `json:"origin"`
	Destination                   Param `json:"destination"`
	Consumption                   Param `json:"consumption,omitempty"`
	InitialCharge                 Param `json:"initialCharge,omitempty"`
	MaxCharge                     Param `json:"maxCharge,omitempty"`
	ConnectorTypes                Param `json:"connectorTypes,omitempty"`
	ChargingCurve                 Param `json:"chargingCurve,omitempty"`
	MaxChargeAfterChargingStation Param `json:"maxChargeAfterChargingStation,omitempty"`
	EVConsumption                 Param `json:"evConsumption,omitempty"`
}

// TripRequestFromQuery reads a TripRequest from URL query parameters.
func TripRequestFromQuery(q url.Values) TripRequest {
	return TripRequest{
		Origin:                        Param(q.Get("origin")),
		Destination:                   Param(q.Get("destination")),
		Consumption:                   Param(q.Get("consumption")),
		InitialCharge:                 Param(q.Get("initialCharge")),
		MaxCharge:                     Param(q.Get("maxCharge")),
		ConnectorTypes:                Param(q.Get("connectorTypes")),
		ChargingCurve:                 Param(q.Get("chargingCurve")),
		MaxChargeAfterChargingStation: Param(q.Get("maxChargeAfterChargingStation")),
		EVConsumption:                 Param(q.Get("evConsumption")),
	}
}

// HasEndpoints reports whether origin and destination are both non-blank.
func (r TripRequest) HasEndpoints() bool {
	return r.Origin.Trimmed() != "" && r.Destination.Trimmed() != ""
}

// RouteDocument is the provider's route payload, kept verbatim.
type RouteDocument json.RawMessage

// MarshalJSON emits the raw payload, or null when empty.
func (d RouteDocument) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores a copy of the raw payload.
func (d *RouteDocument) UnmarshalJSON(b []byte) error {
	if d == nil {
		return fmt.Errorf("model.RouteDocument: UnmarshalJSON on nil pointer")
	}
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], b...)
	return nil
}

// Clone returns an independent copy; nil stays nil.
func (d RouteDocument) Clone() RouteDocument {
	if d == nil {
		return nil
	}
	return append(RouteDocument(nil), d...)
}
