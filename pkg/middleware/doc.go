// Package middleware provides observability middleware for transit routes.
//
// Both middlewares implement transition.Middleware and are usually
// installed application-wide with Registry.Use, so they wrap every route's
// own middleware, loader and action.
//
// # OpenTelemetry
//
// OpenTelemetry opens a server span per route request and swaps it into
// rc.Request's context:
//
//	reg.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("shop"),
//	    middleware.WithFilter(func(rc *transition.RequestContext) bool {
//	        return rc.Route.ID != "healthz"
//	    }),
//	))
//
// # Prometheus
//
// Prometheus counts and times route requests:
//   - transit_requests_total{route, outcome}
//   - transit_request_duration_seconds{route}
//   - transit_request_errors_total{route, error_type}
//   - transit_routes
//   - transit_route_swaps_total
//
// Expose the registry with promhttp:
//
//	mux.Handle("/metrics", promhttp.Handler())
package middleware
