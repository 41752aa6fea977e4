// Package session holds the in-memory trip session: the current telemetry
// snapshot, the planned route and the navigation state. All mutations go
// through Session methods and are published to observers in order.
package session
