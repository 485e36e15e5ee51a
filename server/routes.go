package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteNafathStatus, ChainMiddleware(s.NafathStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteNafathInitiate, ChainMiddleware(s.NafathInitiateHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteNafathCallback, ChainMiddleware(s.NafathCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteNafathSession, ChainMiddleware(s.NafathSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("DELETE "+RouteNafathSession, ChainMiddleware(s.NafathDeleteSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteNafathConsume, ChainMiddleware(s.NafathConsumeHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}
