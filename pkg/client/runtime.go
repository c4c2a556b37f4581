package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/router"
)

// Outcome is how a navigation ended.
type Outcome int

const (
	// Committed: the target view was rendered and recorded in history.
	Committed Outcome = iota
	// Skipped: the target is the current URL.
	Skipped
	// Abandoned: a newer navigation took over.
	Abandoned
	// HardNavigated: the runtime handed the target to the browser.
	HardNavigated
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Skipped:
		return "skipped"
	case Abandoned:
		return "abandoned"
	case HardNavigated:
		return "hard_navigated"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// NavigateOptions adjusts one navigation.
type NavigateOptions struct {
	// Replace records the navigation with History.Replace.
	Replace bool

	// NoScroll keeps the scroll position.
	NoScroll bool

	// Pop marks a back/forward replay; the history entry already exists.
	Pop bool

	// Managed marks a navigation the native Navigation API has already
	// committed to history.
	Managed bool

	redirects  int
	redirected bool
}

// Runtime is the client state of one document.
type Runtime struct {
	opts      Options
	logger    *slog.Logger
	modules   *Modules
	prefetch  *prefetchCache
	announcer *Announcer

	token atomic.Uint64

	mu       sync.Mutex
	current  string
	inflight *PrefetchEntry
}

// New creates the runtime for a hydrated document.
func New(opts Options) (*Runtime, error) {
	opts.applyDefaults()
	if opts.Origin == nil || opts.Origin.Scheme == "" || opts.Origin.Host == "" {
		return nil, errors.New("client: Options.Origin must be an absolute URL")
	}
	switch {
	case opts.Root == nil:
		return nil, errors.New("client: Options.Root is required")
	case opts.History == nil:
		return nil, errors.New("client: Options.History is required")
	case opts.Head == nil:
		return nil, errors.New("client: Options.Head is required")
	case opts.Navigator == nil:
		return nil, errors.New("client: Options.Navigator is required")
	}

	rt := &Runtime{
		opts:      opts,
		logger:    opts.Logger.With("component", "client"),
		modules:   newModules(opts.Loader),
		prefetch:  newPrefetchCache(opts.PrefetchTTL, opts.Now),
		announcer: NewAnnouncer(opts.LiveRegion, opts.AnnounceDelay),
	}
	if opts.URL != "" {
		if u, err := rt.resolve(opts.URL); err == nil {
			rt.current = local(u)
		}
	}
	return rt, nil
}

// Modules returns the module registry route scripts register into.
func (rt *Runtime) Modules() *Modules { return rt.modules }

// Announcer returns the runtime's live-region announcer.
func (rt *Runtime) Announcer() *Announcer { return rt.announcer }

// Current returns the committed URL.
func (rt *Runtime) Current() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// Navigate runs a soft navigation to target. It never returns an error:
// failures end in a hard navigation.
func (rt *Runtime) Navigate(ctx context.Context, target string, opts NavigateOptions) Outcome {
	u, err := rt.resolve(target)
	if err != nil {
		return rt.hard(target, err)
	}
	if !rt.sameOrigin(u) {
		return rt.hard(u.String(), ErrCrossOrigin)
	}
	dest := local(u)

	if dest == rt.Current() && !opts.Pop && !opts.Managed && opts.redirects == 0 {
		return Skipped
	}

	token := rt.token.Add(1)
	stale := func() bool { return rt.token.Load() != token }

	entry := rt.claim(dest, opts.redirected)

	outcome, err := rt.run(ctx, entry, dest, opts, stale)
	if err == nil {
		return outcome
	}
	if stale() {
		return Abandoned
	}
	return rt.hard(dest, err)
}

// claim aborts the in-flight transition and returns the entry the new
// navigation owns: the cached prefetch for dest, or a fresh one.
func (rt *Runtime) claim(dest string, redirected bool) *PrefetchEntry {
	rt.mu.Lock()
	prev := rt.inflight
	rt.inflight = nil
	rt.mu.Unlock()
	if prev != nil {
		prev.Abort()
		rt.prefetch.evict(prev)
	}

	entry, ok := rt.prefetch.take(dest)
	if !ok || redirected {
		if ok {
			entry.Abort()
		}
		entry = rt.start(dest, redirected, false)
	}

	rt.mu.Lock()
	rt.inflight = entry
	rt.mu.Unlock()
	return entry
}

func (rt *Runtime) run(ctx context.Context, entry *PrefetchEntry, dest string, opts NavigateOptions, stale func() bool) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("navigation panic: %v", r)
		}
	}()

	mv, err := entry.Module.Wait(ctx)
	if stale() {
		return Abandoned, nil
	}
	if err != nil {
		return 0, err
	}
	module, _ := mv.(*Module)
	if module != nil && module.Loading != nil {
		if err := rt.opts.Root.RenderLoading(ctx, module); err != nil {
			rt.logger.Debug("loading view failed", "target", dest, "error", err)
		}
	}

	cv, err := entry.Initial.Wait(ctx)
	if stale() {
		return Abandoned, nil
	}
	if err != nil {
		return 0, err
	}
	chunk := cv.(protocol.Chunk)

	switch chunk.Type {
	case protocol.TypeDocument:
		loc := chunk.Location
		if loc == "" {
			loc = dest
		}
		rt.finish(entry)
		return rt.hard(loc, nil), nil

	case protocol.TypeRedirect:
		rt.finish(entry)
		next, err := rt.resolveFrom(dest, chunk.Location)
		if err != nil {
			return 0, err
		}
		if !rt.sameOrigin(next) {
			return rt.hard(next.String(), ErrCrossOrigin), nil
		}
		if opts.redirects+1 > rt.opts.MaxRedirects {
			return rt.hard(local(next), ErrRedirectLimit), nil
		}
		follow := opts
		follow.Replace = true
		follow.redirects++
		follow.redirected = true
		return rt.Navigate(ctx, local(next), follow), nil

	case protocol.TypeInitial:
		return rt.commit(ctx, entry, module, chunk, dest, opts, stale)
	}
	return 0, fmt.Errorf("%w: lead chunk %q", protocol.ErrMalformedChunk, chunk.Type)
}

func (rt *Runtime) commit(ctx context.Context, entry *PrefetchEntry, module *Module, chunk protocol.Chunk, dest string, opts NavigateOptions, stale func() bool) (Outcome, error) {
	payload := chunk.Payload
	if payload.RouteID != routeIDOf(module) {
		m, err := rt.modules.Load(ctx, payload.RouteID)
		if stale() {
			return Abandoned, nil
		}
		if err != nil {
			return 0, err
		}
		module = m
	}

	if err := ReconcileHead(ctx, rt.opts.Head, rt.opts.Origin, chunk.Head); err != nil {
		if stale() {
			return Abandoned, nil
		}
		return 0, err
	}
	if stale() {
		return Abandoned, nil
	}

	view := View{
		Module:  module,
		Kind:    chunk.Kind,
		Status:  chunk.Status,
		Payload: payload,
		Data:    entry.Deferreds.Revive(payload.Data),
	}
	if err := rt.opts.Root.Render(ctx, view); err != nil {
		return 0, fmt.Errorf("render %s: %w", dest, err)
	}

	rt.mu.Lock()
	rt.current = dest
	rt.mu.Unlock()

	switch {
	case opts.Managed, opts.Pop:
	case opts.Replace:
		rt.opts.History.Replace(dest)
	default:
		rt.opts.History.Push(dest)
	}
	if !opts.NoScroll && rt.opts.Scroller != nil {
		rt.opts.Scroller.ScrollToTop()
	}

	title := headTitle(chunk.Head)
	if title == "" {
		title = dest
	}
	rt.announcer.Announce(title)

	rt.logger.Debug("navigation committed", "target", dest, "route", payload.RouteID, "kind", chunk.Kind, "redirects", opts.redirects)
	return Committed, nil
}

// finish drops entry as the in-flight transition if it still is.
func (rt *Runtime) finish(entry *PrefetchEntry) {
	rt.mu.Lock()
	if rt.inflight == entry {
		rt.inflight = nil
	}
	rt.mu.Unlock()
}

// hard hands target to the browser. cause, when set, is logged and dropped.
func (rt *Runtime) hard(target string, cause error) Outcome {
	if cause != nil {
		rt.logger.Warn("falling back to hard navigation", "target", target, "error", cause)
	}
	rt.mu.Lock()
	prev := rt.inflight
	rt.inflight = nil
	rt.mu.Unlock()
	if prev != nil {
		prev.Abort()
	}
	rt.opts.Navigator.HardNavigate(target)
	return HardNavigated
}

// Prefetch starts the transition for target and caches it for the prefetch
// TTL. A live cached entry is returned as is.
func (rt *Runtime) Prefetch(target string) (*PrefetchEntry, error) {
	u, err := rt.resolve(target)
	if err != nil {
		return nil, err
	}
	if !rt.sameOrigin(u) {
		return nil, ErrCrossOrigin
	}
	dest := local(u)
	if e, ok := rt.prefetch.get(dest); ok {
		return e, nil
	}
	return rt.start(dest, false, true), nil
}

// Hydrate seeds the runtime from the server-rendered document and renders
// its payload into the root.
func (rt *Runtime) Hydrate(ctx context.Context, doc *Document) error {
	if doc.Snapshot != nil {
		rt.opts.Snapshot = doc.Snapshot
	}
	if doc.Payload == nil {
		return errors.New("client: document has no payload")
	}
	module, err := rt.modules.Load(ctx, doc.Payload.RouteID)
	if err != nil {
		return err
	}
	ds := NewDeferreds()
	for _, r := range doc.Resolved {
		ds.Resolve(r)
	}
	view := View{
		Module:  module,
		Kind:    protocol.KindPage,
		Status:  http.StatusOK,
		Payload: doc.Payload,
		Data:    ds.Revive(doc.Payload.Data),
	}
	// The document is complete; tokens without a resolution script never
	// settle otherwise.
	ds.Close(ErrStreamClosed)
	if e := doc.Payload.Error; e != nil {
		view.Status = e.Status
		switch {
		case e.Status == http.StatusNotFound:
			view.Kind = protocol.KindNotFound
		case e.Status == 0 || e.Status >= 500:
			view.Kind = protocol.KindError
		default:
			view.Kind = protocol.KindCatch
		}
		if view.Status == 0 {
			view.Status = http.StatusInternalServerError
		}
	}
	if err := rt.opts.Root.Render(ctx, view); err != nil {
		return err
	}
	if doc.Payload.URL != "" {
		rt.mu.Lock()
		rt.current = doc.Payload.URL
		rt.mu.Unlock()
	}
	return nil
}

// resolve resolves target against the committed URL.
func (rt *Runtime) resolve(target string) (*url.URL, error) {
	return rt.resolveFrom(rt.Current(), target)
}

// resolveFrom resolves target against base, a same-origin target; an empty
// base means the origin itself.
func (rt *Runtime) resolveFrom(base, target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", target, err)
	}
	b := rt.opts.Origin
	if base != "" {
		if bu, err := url.Parse(base); err == nil {
			b = b.ResolveReference(bu)
		}
	}
	return b.ResolveReference(ref), nil
}

func (rt *Runtime) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, rt.opts.Origin.Scheme) && strings.EqualFold(u.Host, rt.opts.Origin.Host)
}

// matchRoute returns the snapshot route id for dest, or "".
func (rt *Runtime) matchRoute(dest string) string {
	if m := router.Match(rt.opts.Snapshot.Pages, dest); m != nil {
		return m.Route.ID
	}
	return ""
}

// local renders u as a same-origin target.
func local(u *url.URL) string {
	s := u.EscapedPath()
	if s == "" {
		s = "/"
	}
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.EscapedFragment()
	}
	return s
}

func routeIDOf(m *Module) string {
	if m == nil {
		return ""
	}
	return m.RouteID
}
