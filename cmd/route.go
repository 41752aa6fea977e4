package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/core/model"
	"github.com/kilianp07/mg4dash/core/routing"
	"github.com/kilianp07/mg4dash/infra/logger"
)

var routeFlags struct {
	origin, destination string
	consumption         string
	initialCharge       string
	maxCharge           string
	connectors          []string
	asJSON              bool
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Plan an EV route and print its summary",
	Example: `  HERE_API_KEY=... mg4dash route --origin 51.5074,-0.1278 --destination 53.4084,-2.9916
  mg4dash route --origin 51.5,-0.12 --destination 52.2,0.12 --initial-charge 40 --json`,
	RunE: runRoute,
}

func init() {
	f := routeCmd.Flags()
	f.StringVar(&routeFlags.origin, "origin", "", `start as "lat,lng"`)
	f.StringVar(&routeFlags.destination, "destination", "", `destination as "lat,lng"`)
	f.StringVar(&routeFlags.consumption, "consumption", "", "consumption in kWh/100km")
	f.StringVar(&routeFlags.initialCharge, "initial-charge", "", "battery charge at departure in percent")
	f.StringVar(&routeFlags.maxCharge, "max-charge", "", "charge limit in percent")
	f.StringSliceVar(&routeFlags.connectors, "connectors", nil, "accepted connector types")
	f.BoolVar(&routeFlags.asJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	req := model.TripRequest{
		Origin:         model.Param(routeFlags.origin),
		Destination:    model.Param(routeFlags.destination),
		Consumption:    model.Param(routeFlags.consumption),
		InitialCharge:  model.Param(routeFlags.initialCharge),
		MaxCharge:      model.Param(routeFlags.maxCharge),
		ConnectorTypes: model.Param(strings.Join(routeFlags.connectors, ",")),
	}
	planner := routing.NewPlanner(cfg.Gateway, logger.New("routing"))
	doc, err := planner.Plan(cmd.Context(), req)
	if err != nil {
		return err
	}
	sum, err := routing.Summarize(doc, routing.Pricing{PerKWh: cfg.Gateway.Price(), Currency: cfg.Gateway.Currency})
	if err != nil {
		return err
	}
	if routeFlags.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	return printSummary(cmd.OutOrStdout(), sum)
}

func printSummary(w io.Writer, s routing.RouteSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Distance:  %.1f km\n", s.DistanceKm)
	fmt.Fprintf(&b, "Duration:  %.0f min (%.0f driving, %.0f charging)\n", s.DurationMinutes, s.DrivingMinutes, s.ChargingMinutes)
	fmt.Fprintf(&b, "Energy:    %.1f kWh used, %.1f kWh charged\n", s.ConsumptionKWh, s.ChargedKWh)
	fmt.Fprintf(&b, "Cost:      %.2f %s\n", s.EstimatedCost, s.Currency)
	for i, st := range s.ChargingStops {
		fmt.Fprintf(&b, "Stop %d:    %s, %.0f min at %.0f kW (%.1f -> %.1f kWh)\n",
			i+1, st.Name, st.ChargeMinutes, st.PowerKW, st.ArrivalChargeKWh, st.TargetChargeKWh)
	}
	for _, in := range s.Instructions {
		fmt.Fprintf(&b, "  - %s\n", in)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
