package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/mg4dash/core/model"
)

func TestBuildQueryDefaults(t *testing.T) {
	q := BuildQuery(model.TripRequest{Origin: "51.5,-0.1", Destination: "53.4,-2.9"}, "k")

	want := map[string]string{
		"apiKey":                            "k",
		"transportMode":                     "car",
		"routingMode":                       "fast",
		"origin":                            "51.5,-0.1",
		"destination":                       "53.4,-2.9",
		"return":                            "polyline,summary,actions,instructions,travelSummary",
		"ev[initialCharge]":                 "60",
		"ev[maxCharge]":                     "80",
		"ev[consumption]":                   "15.0",
		"ev[connectorTypes]":                "iec62196Type2Combo,iec62196Type2_AC",
		"ev[chargingCurve]":                 "0,60,50;60,80,40;80,100,25",
		"ev[maxChargeAfterChargingStation]": "80",
		"ev[trafficEnabled]":                "true",
	}
	for k, v := range want {
		assert.Equal(t, v, q.Get(k), k)
	}
}

func TestBuildQueryEVConsumptionWins(t *testing.T) {
	q := BuildQuery(model.TripRequest{
		Origin:        "1,1",
		Destination:   "2,2",
		Consumption:   "18",
		EVConsumption: "21.5",
	}, "k")
	assert.Equal(t, "21.5", q.Get("ev[consumption]"))

	q = BuildQuery(model.TripRequest{Origin: "1,1", Destination: "2,2", Consumption: "18"}, "k")
	assert.Equal(t, "18", q.Get("ev[consumption]"))
}

func TestBuildQueryOverrides(t *testing.T) {
	q := BuildQuery(model.TripRequest{
		Origin:                        "  1,1 ",
		Destination:                   "2,2",
		InitialCharge:                 "35",
		MaxCharge:                     "90",
		ConnectorTypes:                "chademo",
		ChargingCurve:                 "0,100,11",
		MaxChargeAfterChargingStation: "70",
	}, "k")
	assert.Equal(t, "1,1", q.Get("origin"))
	assert.Equal(t, "35", q.Get("ev[initialCharge]"))
	assert.Equal(t, "90", q.Get("ev[maxCharge]"))
	assert.Equal(t, "chademo", q.Get("ev[connectorTypes]"))
	assert.Equal(t, "0,100,11", q.Get("ev[chargingCurve]"))
	assert.Equal(t, "70", q.Get("ev[maxChargeAfterChargingStation]"))
}

func TestChargingCurveEncode(t *testing.T) {
	c := ChargingCurve{{0, 50, 7.4}, {50, 100, 3.25}}
	assert.Equal(t, "0,50,7.4;50,100,3.25", c.Encode())
	assert.Empty(t, ChargingCurve{}.Encode())
}
