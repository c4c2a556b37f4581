package client

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/html"

	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/router"
)

// Defaults for Options.
const (
	DefaultTransitionPath = "/_transit"
	DefaultMaxRedirects   = 8
	DefaultPrefetchTTL    = 30 * time.Second
	DefaultAnnounceDelay  = 100 * time.Millisecond
)

// History records committed navigations.
type History interface {
	Push(url string)
	Replace(url string)
}

// View is one committed render.
type View struct {
	// Module is the route bundle, nil when no route matched.
	Module *Module

	Kind    protocol.Kind
	Status  int
	Payload *protocol.RenderPayload

	// Data is Payload.Data with every deferred token replaced by a
	// *deferred.Promise.
	Data any
}

// RenderRoot is the live view tree.
type RenderRoot interface {
	Render(ctx context.Context, v View) error
	RenderLoading(ctx context.Context, m *Module) error
}

// HeadHost exposes the document head.
type HeadHost interface {
	// Head returns the head element. The runtime edits its children in place.
	Head() *html.Node

	// AwaitStylesheet blocks until the stylesheet at href has fired load or
	// error, or ctx is done.
	AwaitStylesheet(ctx context.Context, href string) error
}

// ModuleLoader loads the bundle registered for a route id.
type ModuleLoader interface {
	Load(ctx context.Context, routeID string) (*Module, error)
}

// Navigator performs full browser navigations.
type Navigator interface {
	HardNavigate(url string)
}

// Scroller resets the viewport after a committed navigation.
type Scroller interface {
	ScrollToTop()
}

// Doer sends transition requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures New.
type Options struct {
	// Origin is the document origin; transition requests go to
	// Origin + TransitionPath.
	Origin *url.URL

	// URL is the location the document was loaded at.
	URL string

	TransitionPath string
	Snapshot       *router.Snapshot

	Root      RenderRoot
	History   History
	Head      HeadHost
	Loader    ModuleLoader
	Navigator Navigator

	// Optional.
	Scroller   Scroller
	LiveRegion LiveRegion
	HTTPClient Doer
	Logger     *slog.Logger

	MaxRedirects  int
	PrefetchTTL   time.Duration
	AnnounceDelay time.Duration

	// Now overrides the clock used for prefetch expiry.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.TransitionPath == "" {
		o.TransitionPath = DefaultTransitionPath
	}
	if o.Snapshot == nil {
		o.Snapshot = &router.Snapshot{}
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = DefaultMaxRedirects
	}
	if o.PrefetchTTL <= 0 {
		o.PrefetchTTL = DefaultPrefetchTTL
	}
	if o.AnnounceDelay <= 0 {
		o.AnnounceDelay = DefaultAnnounceDelay
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}
