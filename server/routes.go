package server

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Browser flow
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.AuthorizeHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.HTMLMiddleWare(s.RateLimitMiddleware)...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPISession, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIContent, ChainMiddleware(s.ContentStatusHandler(), s.APIMiddleware()...))

	// Streaming routes. The manifest pattern is more specific than the segment one.
	s.RegisterRouteHandler("GET "+RouteStreamManifest, ChainMiddleware(s.ManifestHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteStreamSegment, ChainMiddleware(s.SegmentHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /stream/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}
