package middleware

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/transit/pkg/transition"
)

const defaultTracerName = "transit"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "transit").
	TracerName string

	// TracerProvider overrides the global provider.
	TracerProvider trace.TracerProvider

	// IncludeRoute adds the route pattern and id. Enabled by default.
	IncludeRoute bool

	// Filter decides which requests are traced. Nil traces everything.
	Filter func(rc *transition.RequestContext) bool

	// AttributeExtractor adds custom attributes to each span.
	AttributeExtractor func(rc *transition.RequestContext) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeRoute enables/disables including route in traces.
func WithIncludeRoute(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeRoute = include
	}
}

// WithFilter sets a filter function for requests.
func WithFilter(filter func(rc *transition.RequestContext) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(rc *transition.RequestContext) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeRoute: true,
	}
}

// OpenTelemetry returns middleware that wraps the rest of the chain,
// loaders and actions included, in a server span.
//
// The span context replaces rc.Request's context, so loaders that pass
// rc.Context() to database drivers or HTTP clients continue the trace.
// Caught errors are expected outcomes: they are recorded as the
// transit.caught_status attribute and leave the span status unset.
//
//	reg.Use(middleware.OpenTelemetry(middleware.WithTracerName("shop")))
//
// Without WithTracerProvider the global provider is used, so configure it
// with otel.SetTracerProvider before serving.
func OpenTelemetry(opts ...OTelOption) transition.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return transition.MiddlewareFunc(func(rc *transition.RequestContext, next transition.Next) (any, error) {
		if config.Filter != nil && !config.Filter(rc) {
			return next()
		}

		attrs := []attribute.KeyValue{
			attribute.String("transit.target", rc.Target),
			attribute.String("http.method", method(rc)),
		}
		if config.IncludeRoute && rc.Route != nil {
			attrs = append(attrs,
				attribute.String("transit.route_id", rc.Route.ID),
				attribute.String("transit.route", rc.Route.RoutePath),
			)
		}
		if config.AttributeExtractor != nil {
			attrs = append(attrs, config.AttributeExtractor(rc)...)
		}

		spanCtx, span := config.tracer.Start(
			rc.Context(),
			formatSpanName(rc),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		rc.Request = rc.Request.WithContext(spanCtx)
		rc.Set(spanContextKey, spanCtx)

		result, err := next()

		var caught *transition.CaughtError
		switch {
		case errors.As(err, &caught):
			span.SetAttributes(attribute.Int("transit.caught_status", caught.Status))
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		default:
			span.SetStatus(codes.Ok, "")
			if r, ok := result.(*transition.Redirect); ok {
				span.SetAttributes(attribute.String("transit.redirect", r.Location))
			}
		}

		return result, err
	})
}

// spanContextKey is the RequestContext local holding the span context.
const spanContextKey = "middleware.otel.span"

// SpanFromContext returns the span started by OpenTelemetry for rc, or nil
// when the request was not traced.
//
//	func loader(rc *transition.RequestContext) (any, error) {
//	    if span := middleware.SpanFromContext(rc); span != nil {
//	        span.SetAttributes(attribute.Int("shop.items", n))
//	    }
//	    ...
//	}
func SpanFromContext(rc *transition.RequestContext) trace.Span {
	if v, ok := rc.Get(spanContextKey); ok {
		if spanCtx, ok := v.(context.Context); ok {
			return trace.SpanFromContext(spanCtx)
		}
	}
	return nil
}

// TraceContext returns the context to propagate to downstream calls.
func TraceContext(rc *transition.RequestContext) context.Context {
	if v, ok := rc.Get(spanContextKey); ok {
		if spanCtx, ok := v.(context.Context); ok {
			return spanCtx
		}
	}
	return rc.Context()
}

func formatSpanName(rc *transition.RequestContext) string {
	if rc.Route != nil && rc.Route.RoutePath != "" {
		return "transit " + rc.Route.RoutePath
	}
	if rc.Target == "" {
		return "transit /"
	}
	return "transit " + rc.Target
}

func method(rc *transition.RequestContext) string {
	if rc.Request.Method == "" {
		return http.MethodGet
	}
	return rc.Request.Method
}
