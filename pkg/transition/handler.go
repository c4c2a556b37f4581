package transition

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/a-h/templ"

	terrors "github.com/vango-dev/transit/internal/errors"
	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/render"
	"github.com/vango-dev/transit/pkg/routepath"
	"github.com/vango-dev/transit/pkg/router"
)

// DefaultTransitionPath is where the transition endpoint is served.
const DefaultTransitionPath = "/_transit"

// sanitizedMessage replaces uncaught error messages in production.
const sanitizedMessage = "Internal Server Error"

// Assets supplies per-route stylesheets and scripts.
type Assets interface {
	Stylesheets(routeID string) []string
	Scripts(routeID string) []string
}

// Config configures a Handler.
type Config struct {
	// TransitionPath defaults to DefaultTransitionPath.
	TransitionPath string

	// Production hides uncaught error messages from responses.
	Production bool

	Renderer render.RendererConfig

	// Assets may be nil.
	Assets Assets

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Handler serves pages, API routes and the transition endpoint.
type Handler struct {
	registry *Registry
	config   Config
	logger   *slog.Logger
	routes   atomic.Pointer[Routes]
}

// NewHandler creates a handler. Swap must be called before it serves
// requests.
func NewHandler(registry *Registry, config Config) *Handler {
	if config.TransitionPath == "" {
		config.TransitionPath = DefaultTransitionPath
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		config:   config,
		logger:   logger.With("component", "transition"),
	}
}

// Swap installs a new route generation after checking that every route has
// a registered module. In-flight requests finish on the old generation.
func (h *Handler) Swap(rt *Routes) error {
	if err := h.registry.Check(rt.Manifest); err != nil {
		return err
	}
	h.routes.Store(rt)
	return nil
}

// Routes returns the current generation, or nil before the first Swap.
func (h *Handler) Routes() *Routes { return h.routes.Load() }

// TransitionPath returns the endpoint path.
func (h *Handler) TransitionPath() string { return h.config.TransitionPath }

// ServeHTTP dispatches to the transition endpoint, an API route or a page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := h.routes.Load()
	if rt == nil {
		http.Error(w, "routes not loaded", http.StatusServiceUnavailable)
		return
	}
	if r.URL.Path == h.config.TransitionPath {
		h.serveTransition(w, r, rt)
		return
	}

	cr, err := routepath.CanonicalizePath(r.URL.EscapedPath())
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	cr.Query = r.URL.RawQuery
	if cr.Changed {
		status := http.StatusMovedPermanently
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			status = http.StatusPermanentRedirect
		}
		http.Redirect(w, r, cr.Target(), status)
		return
	}

	if def, params, ok := rt.api.Resolve(cr.Path); ok {
		h.serveAPI(w, r, def, params)
		return
	}
	h.serveDocument(w, r, rt, cr.Target())
}

type outcomeType int

const (
	outcomeRender outcomeType = iota
	outcomeRedirect
	outcomeRaw
	outcomeBareError
)

// outcome is the classified result of one request.
type outcome struct {
	typ    outcomeType
	kind   protocol.Kind
	status int

	route   *router.RouteDefinition
	module  *Module
	layouts []*Layout

	props  Props
	wire   any
	view   Component
	depth  int
	settle []deferred.Entry

	redirect *Redirect
	raw      *Response
	message  string
	header   http.Header
	logger   *slog.Logger
}

// body is the view wrapped in the layouts enclosing its owner.
func (o *outcome) body() templ.Component {
	return wrap(o.view(o.props), o.props, o.layouts[:o.depth])
}

func (o *outcome) payload() *protocol.RenderPayload {
	p := &protocol.RenderPayload{
		Data:   o.wire,
		Params: o.props.Params,
		URL:    o.props.URL,
		Error:  o.props.Error,
	}
	if o.route != nil {
		p.RouteID = o.route.ID
	}
	return p
}

// run resolves a page request for target and executes it.
func (h *Handler) run(r *http.Request, rt *Routes, target string) *outcome {
	logger := LoggerFrom(r.Context(), h.logger)
	def, params, ok := rt.pages.Resolve(target)
	if !ok {
		return h.notFound(r, target, logger)
	}
	rc := newRequestContext(r, def, params, target, logger)

	module, ok := h.registry.page(def.FilePath)
	if !ok {
		o := &outcome{route: def, header: rc.header, logger: logger, props: Props{Params: rc.Params, URL: target}}
		return h.uncaught(o, terrors.New("E206").WithFiles(def.FilePath))
	}

	o := &outcome{
		route:   def,
		module:  module,
		layouts: h.registry.layoutsFor(def.LayoutFiles),
		header:  rc.header,
		logger:  logger,
		props:   Props{Params: rc.Params, URL: target},
	}

	final := Next(func() (any, error) {
		fn := module.Loader
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			fn = module.Action
			if fn == nil {
				return nil, &CaughtError{Status: http.StatusMethodNotAllowed}
			}
		}
		if fn == nil {
			return nil, nil
		}
		return fn(rc)
	})

	chain := h.registry.chain(def.MiddlewareFiles, module.Middleware)
	result, err := h.invoke(rc, chain, final)
	return h.classify(o, result, err)
}

// invoke runs the chain, turning panics into errors. A double call of next
// is a programming error and keeps panicking.
func (h *Handler) invoke(rc *RequestContext, chain []Middleware, final Next) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok && errors.Is(e, ErrNextCalledTwice) {
				panic(p)
			}
			rc.Logger.Error("route panic", "route", rc.Target, "panic", p, "stack", string(debug.Stack()))
			result, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	return Compose(rc, chain, final)
}

func (h *Handler) classify(o *outcome, result any, err error) *outcome {
	if err != nil {
		var caught *CaughtError
		if errors.As(err, &caught) {
			return h.caught(o, caught)
		}
		return h.uncaught(o, err)
	}

	switch v := result.(type) {
	case *Redirect:
		o.typ, o.redirect, o.status = outcomeRedirect, v, v.status()
		return o
	case *Response:
		if rd, ok := v.asRedirect(); ok {
			o.typ, o.redirect, o.status = outcomeRedirect, rd, rd.Status
			return o
		}
		o.typ, o.raw, o.status = outcomeRaw, v, v.Status
		if o.status == 0 {
			o.status = http.StatusOK
		}
		return o
	case *deferred.Data:
		prepared := deferred.Prepare(o.route.ID, v)
		o.props.Data, o.wire, o.settle = prepared.Render, prepared.Wire, prepared.Settle
	default:
		o.props.Data, o.wire = v, v
	}
	o.typ, o.kind, o.status = outcomeRender, protocol.KindPage, http.StatusOK
	o.view, o.depth = o.module.Component, len(o.layouts)
	return o
}

func (h *Handler) caught(o *outcome, ce *CaughtError) *outcome {
	msg := ce.Message
	if msg == "" {
		msg = http.StatusText(ce.Status)
	}
	o.props.Error = &protocol.PayloadError{Message: msg, Status: ce.Status, Data: ce.Data}
	o.typ, o.status, o.kind = outcomeRender, ce.Status, protocol.KindCatch

	list := owners(o.module, o.layouts, h.registry.rootBoundaries())
	if ce.Status == http.StatusNotFound {
		if view, depth, ok := find(list, pickNotFound); ok {
			o.kind, o.view, o.depth = protocol.KindNotFound, view, depth
			return o
		}
	}
	if view, depth, ok := find(list, pickCatch); ok {
		o.view, o.depth = view, depth
		return o
	}
	o.view, o.depth = fallbackView, 0
	return o
}

func (h *Handler) uncaught(o *outcome, err error) *outcome {
	o.logger.Error("route error", "route", o.props.URL, "error", err)

	msg := err.Error()
	if h.config.Production {
		msg = sanitizedMessage
	}
	o.status, o.message = http.StatusInternalServerError, msg
	o.props.Data, o.wire, o.settle = nil, nil, nil

	view, depth, ok := find(owners(o.module, o.layouts, h.registry.rootBoundaries()), pickError)
	if !ok {
		o.typ = outcomeBareError
		return o
	}
	o.props.Error = &protocol.PayloadError{Message: msg, Status: http.StatusInternalServerError}
	o.typ, o.kind, o.view, o.depth = outcomeRender, protocol.KindError, view, depth
	return o
}

func (h *Handler) notFound(r *http.Request, target string, logger *slog.Logger) *outcome {
	o := &outcome{
		typ:     outcomeRender,
		kind:    protocol.KindNotFound,
		status:  http.StatusNotFound,
		layouts: h.registry.rootLayouts(),
		header:  make(http.Header),
		logger:  logger,
		props: Props{
			Params: map[string]string{},
			URL:    target,
			Error:  &protocol.PayloadError{Message: http.StatusText(http.StatusNotFound), Status: http.StatusNotFound},
		},
	}
	logger.Debug("no route", "target", target, "method", r.Method)
	if view, depth, ok := find(owners(nil, o.layouts, h.registry.rootBoundaries()), pickNotFound); ok {
		o.view, o.depth = view, depth
		return o
	}
	o.view, o.depth = fallbackView, 0
	return o
}

// head renders the managed head region for a render outcome.
func (h *Handler) head(ctx context.Context, o *outcome) string {
	var b strings.Builder
	if o.module != nil {
		if o.module.Meta != nil {
			writeMeta(&b, o.module.Meta(o.props))
		}
		if o.module.Head != nil {
			s, err := render.RenderComponent(ctx, o.module.Head)
			if err != nil {
				o.logger.Warn("head render failed", "route", o.props.URL, "error", err)
			}
			b.WriteString(s)
		}
	}
	if b.Len() == 0 && o.kind != protocol.KindPage {
		fmt.Fprintf(&b, "<title>%d %s</title>", o.status, html.EscapeString(http.StatusText(o.status)))
	}

	var styles []string
	if h.config.Assets != nil {
		id := ""
		if o.route != nil {
			id = o.route.ID
		}
		styles = h.config.Assets.Stylesheets(id)
	}
	return render.ManagedHead(b.String(), styles)
}

func writeMeta(b *strings.Builder, tags []MetaTag) {
	for _, t := range tags {
		switch {
		case t.Title != "":
			b.WriteString("<title>" + html.EscapeString(t.Title) + "</title>")
		case t.Property != "":
			b.WriteString(`<meta property="` + html.EscapeString(t.Property) + `" content="` + html.EscapeString(t.Content) + `">`)
		case t.Name != "":
			b.WriteString(`<meta name="` + html.EscapeString(t.Name) + `" content="` + html.EscapeString(t.Content) + `">`)
		}
	}
}

func copyHeader(w http.ResponseWriter, h http.Header) {
	for k, vs := range h {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
}

// serveDocument answers a full page load.
func (h *Handler) serveDocument(w http.ResponseWriter, r *http.Request, rt *Routes, target string) {
	o := h.run(r, rt, target)
	copyHeader(w, o.header)

	switch o.typ {
	case outcomeRedirect:
		status := o.redirect.status()
		if status == http.StatusFound && r.Method != http.MethodGet && r.Method != http.MethodHead {
			status = http.StatusSeeOther
		}
		http.Redirect(w, r, o.redirect.Location, status)
		return
	case outcomeRaw:
		o.raw.write(w)
		return
	case outcomeBareError:
		http.Error(w, o.message, http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	page := render.PageData{
		Head:     h.head(ctx, o),
		Body:     o.body(),
		Payload:  o.payload(),
		Snapshot: &rt.Snapshot,
	}
	if h.config.Assets != nil && o.route != nil {
		page.Scripts = h.config.Assets.Scripts(o.route.ID)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(o.status)

	var results <-chan deferred.Result
	if len(o.settle) > 0 {
		results = deferred.Drain(ctx, o.settle)
	}
	sr := render.NewStreamingRenderer(w, h.config.Renderer)
	if err := sr.RenderPage(ctx, page, results); err != nil {
		LoggerFrom(ctx, h.logger).Error("document render failed", "target", target, "error", err)
	}
}

// targetRequest derives the request a transition renders: same headers and
// context, GET, with the target's path and query.
func targetRequest(r *http.Request, cr routepath.CanonicalizeResult) *http.Request {
	req := r.Clone(r.Context())
	req.Method = http.MethodGet
	u, err := url.Parse(cr.Path)
	if err != nil {
		u = &url.URL{Path: cr.Path}
	}
	u.RawQuery = cr.Query
	req.URL = u
	req.RequestURI = u.RequestURI()
	req.Body = http.NoBody
	req.ContentLength = 0
	return req
}
