// Package routing turns trip requests into EV-aware HERE Routing v8 queries,
// forwards them and shapes the returned route for display.
package routing
