package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/transit/pkg/transition"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "transit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "transit",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	routes          prometheus.Gauge
	routeSwaps      prometheus.Counter
}

// globalMetrics is created by the first call to Prometheus.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Route requests by route id and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Time spent in middleware, loaders and actions",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Uncaught route errors by category",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "error_type"}),

		routes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Routes in the active manifest",
			ConstLabels: config.ConstLabels,
		}),

		routeSwaps: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "route_swaps_total",
			Help:        "Route manifests installed",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Prometheus returns middleware that counts and times route requests.
//
// Metrics collected:
//   - transit_requests_total{route, outcome}: outcome is ok, redirect,
//     response, caught_<status> or error
//   - transit_request_duration_seconds{route}
//   - transit_request_errors_total{route, error_type}
//   - transit_routes and transit_route_swaps_total (see RecordRouteSwap)
//
// Requests that matched no route are labelled "not_found".
//
//	reg.Use(middleware.Prometheus(middleware.WithNamespace("shop")))
//	mux.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) transition.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalMetricsMu.Lock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	m := globalMetrics
	globalMetricsMu.Unlock()

	return transition.MiddlewareFunc(func(rc *transition.RequestContext, next transition.Next) (any, error) {
		route := routeLabel(rc)
		start := time.Now()

		result, err := next()

		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		outcome := classify(result, err)
		if outcome == "error" {
			m.requestErrors.WithLabelValues(route, categorizeError(err)).Inc()
		}
		m.requestsTotal.WithLabelValues(route, outcome).Inc()

		return result, err
	})
}

func routeLabel(rc *transition.RequestContext) string {
	if rc.Route == nil {
		return "not_found"
	}
	return rc.Route.ID
}

func classify(result any, err error) string {
	if err != nil {
		var ce *transition.CaughtError
		if errors.As(err, &ce) {
			return "caught_" + strconv.Itoa(ce.Status)
		}
		return "error"
	}
	switch result.(type) {
	case *transition.Redirect:
		return "redirect"
	case *transition.Response:
		return "response"
	}
	return "ok"
}

// categorizeError maps an error to a low-cardinality label.
func categorizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), strings.Contains(msg, "timeout"):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "forbidden"):
		return "forbidden"
	case strings.Contains(msg, "validation"):
		return "validation"
	default:
		return "internal"
	}
}

// RecordRouteSwap records a newly installed manifest with n routes.
func RecordRouteSwap(n int) {
	globalMetricsMu.Lock()
	m := globalMetrics
	globalMetricsMu.Unlock()
	if m != nil {
		m.routes.Set(float64(n))
		m.routeSwaps.Inc()
	}
}

// Collector exposes the metrics created by Prometheus.
type Collector struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestErrors   *prometheus.CounterVec
	routes          prometheus.Gauge
	routeSwaps      prometheus.Counter
}

// GetMetrics returns the global metrics, or nil before Prometheus has been
// called.
func GetMetrics() *Collector {
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		return nil
	}
	return &Collector{
		requestsTotal:   globalMetrics.requestsTotal,
		requestDuration: globalMetrics.requestDuration,
		requestErrors:   globalMetrics.requestErrors,
		routes:          globalMetrics.routes,
		routeSwaps:      globalMetrics.routeSwaps,
	}
}
