package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/transit/pkg/protocol"
	"github.com/vango-dev/transit/pkg/router"
)

type fakeRoot struct {
	mu      sync.Mutex
	views   []View
	loading []string
	fail    error
}

func (r *fakeRoot) Render(_ context.Context, v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.views = append(r.views, v)
	return nil
}

func (r *fakeRoot) RenderLoading(_ context.Context, m *Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = append(r.loading, m.RouteID)
	return nil
}

func (r *fakeRoot) rendered() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

type fakeHistory struct {
	mu  sync.Mutex
	ops []string
}

func (h *fakeHistory) Push(u string)    { h.record("push " + u) }
func (h *fakeHistory) Replace(u string) { h.record("replace " + u) }

func (h *fakeHistory) record(op string) {
	h.mu.Lock()
	h.ops = append(h.ops, op)
	h.mu.Unlock()
}

func (h *fakeHistory) entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.ops...)
}

type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *fakeNavigator) HardNavigate(u string) {
	n.mu.Lock()
	n.urls = append(n.urls, u)
	n.mu.Unlock()
}

func (n *fakeNavigator) navigated() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}

// moduleLoader builds a module for any route id.
type moduleLoader struct {
	loading bool
}

func (l moduleLoader) Load(_ context.Context, routeID string) (*Module, error) {
	m := &Module{RouteID: routeID, View: "view:" + routeID}
	if l.loading {
		m.Loading = "loading:" + routeID
	}
	return m, nil
}

type fakeRegion struct {
	mu   sync.Mutex
	said []string
}

func (r *fakeRegion) Announce(p Politeness, text string) {
	r.mu.Lock()
	r.said = append(r.said, string(p)+" "+text)
	r.mu.Unlock()
}

func (r *fakeRegion) heard() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.said...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// parseHead parses a document and returns its head element.
func parseHead(t *testing.T, doc string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	var head *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if head == nil && n.Type == html.ElementNode && n.DataAtom == atom.Head {
			head = n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	require.NotNil(t, head)
	return head
}

// managed renders the nodes between the head markers.
func managed(t *testing.T, head *html.Node) string {
	t.Helper()
	start, end := headMarkers(head)
	require.NotNil(t, start)
	require.NotNil(t, end)
	var b strings.Builder
	for n := start.NextSibling; n != end; n = n.NextSibling {
		require.NoError(t, html.Render(&b, n))
	}
	return b.String()
}

const shell = `<!DOCTYPE html><html><head><meta charset="utf-8"><!--transit-head-start--><title>Home</title><!--transit-head-end--></head><body></body></html>`

// snapshotOf builds a client snapshot from route files.
func snapshotOf(files ...string) *router.Snapshot {
	s := &router.Snapshot{}
	for _, f := range files {
		segs := segmentsOf(f)
		s.Pages = append(s.Pages, router.ClientRoute{
			ID:        router.RouteID(f),
			RoutePath: router.FormatPattern(segs),
			Segments:  segs,
			Score:     router.Score(segs),
		})
	}
	// Highest score first, as the server orders them.
	for i := 1; i < len(s.Pages); i++ {
		for j := i; j > 0 && s.Pages[j].Score > s.Pages[j-1].Score; j-- {
			s.Pages[j], s.Pages[j-1] = s.Pages[j-1], s.Pages[j]
		}
	}
	return s
}

func segmentsOf(file string) []router.Segment {
	p := strings.TrimSuffix(file, ".go")
	if p == "index" {
		return nil
	}
	p = strings.TrimSuffix(p, "/index")
	var segs []router.Segment
	for _, part := range strings.Split(p, "/") {
		switch {
		case strings.HasPrefix(part, "[...") && strings.HasSuffix(part, "]"):
			segs = append(segs, router.Segment{Kind: router.SegmentCatchAll, Value: part[4 : len(part)-1]})
		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			segs = append(segs, router.Segment{Kind: router.SegmentDynamic, Value: part[1 : len(part)-1]})
		default:
			segs = append(segs, router.Segment{Kind: router.SegmentStatic, Value: part})
		}
	}
	return segs
}

// transitionFunc answers one transition request for target.
type transitionFunc func(w http.ResponseWriter, r *http.Request, enc *protocol.Encoder, target string)

// fixture is a runtime wired to fakes and a transition server.
type fixture struct {
	rt      *Runtime
	root    *fakeRoot
	history *fakeHistory
	nav     *fakeNavigator
	region  *fakeRegion
	head    *html.Node
	clock   *fakeClock
	srv     *httptest.Server

	mu       sync.Mutex
	requests []string
}

func (f *fixture) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newFixture(t *testing.T, snap *router.Snapshot, answer transitionFunc) *fixture {
	t.Helper()
	f := &fixture{
		root:    &fakeRoot{},
		history: &fakeHistory{},
		nav:     &fakeNavigator{},
		region:  &fakeRegion{},
		head:    parseHead(t, shell),
		clock:   &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != DefaultTransitionPath {
			http.NotFound(w, r)
			return
		}
		to := r.URL.Query().Get("to")
		key := to
		if r.URL.Query().Get("redirected") != "" {
			key += " (redirected)"
		}
		f.mu.Lock()
		f.requests = append(f.requests, key)
		f.mu.Unlock()
		w.Header().Set("Content-Type", protocol.ContentType)
		answer(w, r, protocol.NewEncoder(w), to)
	}))
	t.Cleanup(f.srv.Close)

	origin, err := url.Parse(f.srv.URL)
	require.NoError(t, err)
	f.rt, err = New(Options{
		Origin:        origin,
		URL:           "/",
		Snapshot:      snap,
		Root:          f.root,
		History:       f.history,
		Head:          StaticHead{Node: f.head},
		Loader:        moduleLoader{},
		Navigator:     f.nav,
		LiveRegion:    f.region,
		HTTPClient:    f.srv.Client(),
		AnnounceDelay: 5 * time.Millisecond,
		Now:           f.clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(f.rt.Announcer().Stop)
	return f
}

// page answers with an initial page chunk for the route matched in snap.
func page(snap *router.Snapshot, head string, data any) transitionFunc {
	return func(w http.ResponseWriter, r *http.Request, enc *protocol.Encoder, target string) {
		p := &protocol.RenderPayload{URL: target, Data: data, Params: map[string]string{}}
		if m := router.Match(snap.Pages, target); m != nil {
			p.RouteID = m.Route.ID
			p.Params = m.Params
		}
		_ = enc.Encode(protocol.Initial(protocol.KindPage, http.StatusOK, p, head))
	}
}
