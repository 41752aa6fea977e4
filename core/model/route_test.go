package model

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripRequestDecodesLooseJSON(t *testing.T) {
	body := `{"origin":" 51.5,-0.1 ","destination":"53.4,-2.9","initialCharge":55,
		"connectorTypes":["iec62196Type2Combo","chademo"],"consumption":null}`
	var req TripRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "51.5,-0.1", req.Origin.Trimmed())
	assert.Equal(t, Param("55"), req.InitialCharge)
	assert.Equal(t, Param("iec62196Type2Combo,chademo"), req.ConnectorTypes)
	assert.Empty(t, req.Consumption)
	assert.True(t, req.HasEndpoints())
}

func TestTripRequestRejectsObjects(t *testing.T) {
	var req TripRequest
	assert.Error(t, json.Unmarshal([]byte(`{"origin":{"lat":1}}`), &req))
}

func TestTripRequestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("origin", "51.5,-0.1")
	q.Set("destination", "   ")
	q.Set("evConsumption", "17")
	req := TripRequestFromQuery(q)
	assert.False(t, req.HasEndpoints())
	assert.Equal(t, Param("17"), req.EVConsumption)
}

func TestRouteDocumentRoundTrip(t *testing.T) {
	var nav NavigationState
	out, err := json.Marshal(nav)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isNavigating":false,"activeRoute":null}`, string(out))

	nav.ActiveRoute = RouteDocument(`{"routes":[]}`)
	out, err = json.Marshal(nav)
	require.NoError(t, err)
	assert.JSONEq(t, `{"isNavigating":false,"activeRoute":{"routes":[]}}`, string(out))

	var back NavigationState
	require.NoError(t, json.Unmarshal(out, &back))
	assert.JSONEq(t, `{"routes":[]}`, string(back.ActiveRoute))
}

func TestRouteDocumentClone(t *testing.T) {
	var empty RouteDocument
	assert.Nil(t, empty.Clone())
	doc := RouteDocument(`{"a":1}`)
	c := doc.Clone()
	c[2] = 'b'
	assert.Equal(t, `{"a":1}`, string(doc))
}
