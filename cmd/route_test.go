package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mg4dash/core/routing"
)

const hereDoc = `{"routes":[{"sections":[{
"arrival":{"place":{"type":"chargingStation","name":"Gridserve Braintree","location":{"lat":51.9,"lng":0.6}}},
"summary":{"duration":3600,"length":80000,"consumption":12},
"postActions":[{"action":"charging","duration":900,"consumablePower":150,"arrivalCharge":10,"targetCharge":40}],
"actions":[{"action":"depart","instruction":"Head north."}]}]}]}`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		routeFlags.asJSON = false
		cfgPath = ""
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRouteCommandPrintsSummary(t *testing.T) {
	var calls atomic.Int32
	var gotConnectors atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotConnectors.Store(r.URL.Query().Get("ev[connectorTypes]"))
		_, _ = w.Write([]byte(hereDoc))
	}))
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "mg4dash.yaml")
	conf := fmt.Sprintf("gateway:\n  base_url: %s/v8/routes\n  price_per_kwh: 0.45\n", srv.URL)
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o600))
	t.Setenv("HERE_API_KEY", "key")

	out, err := runCLI(t, "-c", path, "route", "--origin", "51.5,-0.1", "--destination", "52.0,0.9", "--connectors", "iec62196Type2Combo,chademo")
	require.NoError(t, err)
	require.Equal(t, int32(1), calls.Load(), "stub provider not reached")
	assert.Equal(t, "iec62196Type2Combo,chademo", gotConnectors.Load())
	assert.Contains(t, out, "Distance:  80.0 km")
	assert.Contains(t, out, "Stop 1:    Gridserve Braintree, 15 min at 150 kW (10.0 -> 40.0 kWh)")
	assert.Contains(t, out, "  - Head north.")

	out, err = runCLI(t, "-c", path, "route", "--origin", "51.5,-0.1", "--destination", "52.0,0.9", "--json")
	require.NoError(t, err)
	require.Equal(t, int32(2), calls.Load(), "stub provider not reached")
	var sum routing.RouteSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.InDelta(t, 13.5, sum.EstimatedCost, 1e-9)
}

func TestRouteCommandWithoutKey(t *testing.T) {
	t.Setenv("HERE_API_KEY", "")
	_, err := runCLI(t, "route", "--origin", "1,1", "--destination", "2,2")
	assert.ErrorIs(t, err, routing.ErrMissingCredential)
}

func TestRouteChargeFlagsArePercentages(t *testing.T) {
	for _, name := range []string{"initial-charge", "max-charge"} {
		f := routeCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Contains(t, f.Usage, "percent", name)
		assert.NotContains(t, f.Usage, "kWh", name)
	}
}
