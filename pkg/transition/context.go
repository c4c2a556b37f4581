package transition

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vango-dev/transit/pkg/router"
)

// RequestContext is passed to middleware, loaders, actions and API
// handlers. It is never shared between requests.
type RequestContext struct {
	// Request is the request being served. For a transition it describes
	// the navigation target, not the endpoint call.
	Request *http.Request

	// Route is nil when no route matched.
	Route *router.RouteDefinition

	Params map[string]string

	// Target is the path, query and fragment being rendered.
	Target string

	Logger *slog.Logger

	header http.Header
	locals map[string]any
}

func newRequestContext(r *http.Request, route *router.RouteDefinition, params map[string]string, target string, logger *slog.Logger) *RequestContext {
	if params == nil {
		params = map[string]string{}
	}
	return &RequestContext{
		Request: r,
		Route:   route,
		Params:  params,
		Target:  target,
		Logger:  logger,
		header:  make(http.Header),
	}
}

// Context returns the request's context.
func (rc *RequestContext) Context() context.Context { return rc.Request.Context() }

// Param returns a decoded route parameter.
func (rc *RequestContext) Param(name string) string { return rc.Params[name] }

// Bind fills a struct from route parameters using `param` tags.
func (rc *RequestContext) Bind(target any) error { return router.BindParams(rc.Params, target) }

// Header returns headers added to the eventual response, whatever its form.
func (rc *RequestContext) Header() http.Header { return rc.header }

// Set stores a request-scoped value for later middleware and loaders.
func (rc *RequestContext) Set(key string, v any) {
	if rc.locals == nil {
		rc.locals = make(map[string]any)
	}
	rc.locals[key] = v
}

// Get returns a value stored with Set.
func (rc *RequestContext) Get(key string) (any, bool) {
	v, ok := rc.locals[key]
	return v, ok
}

type loggerKey struct{}

// WithLogger returns a context carrying a request-scoped logger.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFrom returns the logger stored by WithLogger, or fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return fallback
}
