// Package telemetry connects the trip session to a vehicle data source.
//
// A Source is chosen from configuration and passed explicitly to whatever
// runs the session:
//
//	simulation  periodic Tick on the session
//	api         polls the vehicle status API with a bearer token
//	mqtt        subscribes to pushed status messages
//	obd, can    hardware transports, not implemented yet
package telemetry
