package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Nafath verification API
	RouteNafathStatus   = "/api/nafath/status"
	RouteNafathInitiate = "/api/nafath/initiate"
	RouteNafathCallback = "/api/nafath/callback"
	RouteNafathSession  = "/api/nafath/session/{token}"
	RouteNafathConsume  = "/api/nafath/session/{token}/consume"

	// Operational
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
