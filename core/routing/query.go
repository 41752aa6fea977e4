package routing

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kilianp07/mg4dash/core/model"
)

// Defaults applied to absent trip parameters.
const (
	DefaultConsumption                   = "15.0"
	DefaultInitialCharge                 = "60"
	DefaultMaxCharge                     = "80"
	DefaultMaxChargeAfterChargingStation = "80"
)

// DefaultConnectorTypes lists the MG4's CCS2 and Type 2 AC inlets.
var DefaultConnectorTypes = []string{"iec62196Type2Combo", "iec62196Type2_AC"}

// CurveSegment is one charging-curve breakpoint: between FromPercent and
// ToPercent state of charge the car accepts at most PowerKW.
type CurveSegment struct {
	FromPercent float64
	ToPercent   float64
	PowerKW     float64
}

// ChargingCurve is a piecewise mapping from state of charge to power.
type ChargingCurve []CurveSegment

// DefaultChargingCurve approximates the MG4 DC charging profile.
var DefaultChargingCurve = ChargingCurve{
	{FromPercent: 0, ToPercent: 60, PowerKW: 50},
	{FromPercent: 60, ToPercent: 80, PowerKW: 40},
	{FromPercent: 80, ToPercent: 100, PowerKW: 25},
}

// Encode renders the curve in the provider's "from,to,power;..." literal.
func (c ChargingCurve) Encode() string {
	parts := make([]string, 0, len(c))
	for _, s := range c {
		parts = append(parts, fmt.Sprintf("%s,%s,%s", num(s.FromPercent), num(s.ToPercent), num(s.PowerKW)))
	}
	return strings.Join(parts, ";")
}

func num(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", f), "0"), ".")
}

// ReturnFields is the payload requested from the provider.
const ReturnFields = "polyline,summary,actions,instructions,travelSummary"

// BuildQuery maps a trip request to provider query parameters. Absent
// optional values fall back to the defaults above; EVConsumption takes
// precedence over Consumption.
func BuildQuery(req model.TripRequest, apiKey string) url.Values {
	q := url.Values{}
	q.Set("apiKey", apiKey)
	q.Set("transportMode", "car")
	q.Set("origin", req.Origin.Trimmed())
	q.Set("destination", req.Destination.Trimmed())
	q.Set("routingMode", "fast")
	q.Set("return", ReturnFields)

	q.Set("ev[initialCharge]", or(req.InitialCharge, DefaultInitialCharge))
	q.Set("ev[maxCharge]", or(req.MaxCharge, DefaultMaxCharge))
	q.Set("ev[connectorTypes]", or(req.ConnectorTypes, strings.Join(DefaultConnectorTypes, ",")))
	q.Set("ev[chargingCurve]", or(req.ChargingCurve, DefaultChargingCurve.Encode()))
	q.Set("ev[maxChargeAfterChargingStation]", or(req.MaxChargeAfterChargingStation, DefaultMaxChargeAfterChargingStation))
	q.Set("ev[trafficEnabled]", "true")

	if req.EVConsumption != "" {
		q.Set("ev[consumption]", req.EVConsumption.String())
	} else {
		q.Set("ev[consumption]", or(req.Consumption, DefaultConsumption))
	}
	return q
}

func or(p model.Param, def string) string {
	if p == "" {
		return def
	}
	return p.String()
}
