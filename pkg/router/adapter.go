package router

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	terrors "github.com/vango-dev/transit/internal/errors"
	"github.com/vango-dev/transit/pkg/routepath"
)

// Adapter resolves paths through chi's radix tree. Each route is projected
// to a chi pattern with a stub endpoint; a native hit is translated back to
// the RouteDefinition and its params are re-bound with Match so decoding is
// identical to the pure matcher.
type Adapter struct {
	mux       *chi.Mux
	byPattern map[string]*RouteDefinition
}

// NewAdapter projects routes onto a fresh chi mux. Two routes that project
// to the same native pattern fail with E204 naming both files.
func NewAdapter(routes []RouteDefinition) (*Adapter, error) {
	a := &Adapter{
		mux:       chi.NewMux(),
		byPattern: make(map[string]*RouteDefinition, len(routes)),
	}
	stub := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	for i := range routes {
		r := &routes[i]
		pattern := ProjectPattern(r.Segments)
		if other, ok := a.byPattern[pattern]; ok {
			return nil, terrors.New("E204").
				WithDetail(other.RoutePath + " and " + r.RoutePath + " both project to " + pattern).
				WithFiles(other.FilePath, r.FilePath)
		}
		a.byPattern[pattern] = r
		a.mux.Handle(pattern, stub)
	}
	return a, nil
}

// Resolve finds the route for a pathname. The second result holds params
// decoded by Match, never chi's own.
func (a *Adapter) Resolve(pathname string) (*RouteDefinition, map[string]string, bool) {
	native, ok := nativePath(pathname)
	if !ok {
		return nil, nil, false
	}
	pattern := a.mux.Find(chi.NewRouteContext(), http.MethodGet, native)
	if pattern == "" {
		return nil, nil, false
	}
	r, ok := a.byPattern[pattern]
	if !ok {
		return nil, nil, false
	}
	res := Match([]RouteDefinition{*r}, pathname)
	if res == nil {
		return nil, nil, false
	}
	return r, res.Params, true
}

// Len returns the number of projected routes.
func (a *Adapter) Len() int { return len(a.byPattern) }

// ProjectPattern converts segments to chi's pattern syntax. Dynamic
// segments are named by position, so two patterns that differ only in
// parameter names project to the same native route and chi keeps a single
// param node per depth. Static segments are path-escaped so they compare
// against normalized paths.
func ProjectPattern(segs []Segment) string {
	if len(segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for i, s := range segs {
		b.WriteByte('/')
		switch s.Kind {
		case SegmentDynamic:
			b.WriteString("{p" + strconv.Itoa(i) + "}")
		case SegmentCatchAll:
			b.WriteByte('*')
		default:
			b.WriteString(url.PathEscape(s.Value))
		}
	}
	return b.String()
}

// nativePath re-encodes each segment the way ProjectPattern encodes static
// values, so "/my page" and "/my%20page" reach the same chi node.
func nativePath(pathname string) (string, bool) {
	if i := strings.IndexAny(pathname, "?#"); i >= 0 {
		pathname = pathname[:i]
	}
	raw := routepath.SplitSegments(pathname)
	if len(raw) == 0 {
		return "/", true
	}
	var b strings.Builder
	for _, r := range raw {
		d, err := routepath.DecodeSegment(r)
		if err != nil {
			return "", false
		}
		b.WriteByte('/')
		b.WriteString(url.PathEscape(d))
	}
	return b.String(), true
}
