package router

// SegmentKind classifies a route segment.
type SegmentKind string

const (
	SegmentStatic   SegmentKind = "static"
	SegmentDynamic  SegmentKind = "dynamic"
	SegmentCatchAll SegmentKind = "catchall"
)

// Segment is one element of a route pattern. For dynamic and catch-all
// segments Value is the parameter name.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Value string      `json:"value"`
}

// RouteKind distinguishes page routes from API routes.
type RouteKind string

const (
	RoutePage RouteKind = "page"
	RouteAPI  RouteKind = "api"
)

// RouteDefinition is a page or API route discovered by the Scanner.
// Definitions are immutable once a scan has returned them.
type RouteDefinition struct {
	// ID is the deterministic slug of FilePath, identical in every process.
	ID string `json:"id"`

	Kind RouteKind `json:"kind"`

	// FilePath is the route source, relative to the routes root, using "/".
	FilePath string `json:"filePath"`

	// GeneratedPath is where the build writes the compiled counterpart of a
	// non-native source. Empty for native routes.
	GeneratedPath string `json:"generatedPath,omitempty"`

	// RoutePath is the URL pattern, e.g. "/users/:id" or "/docs/*slug".
	RoutePath string `json:"routePath"`

	Segments []Segment `json:"segments"`

	// Score ranks specificity; higher is matched first.
	Score int64 `json:"score"`

	// LayoutFiles are the enclosing layouts, root first (outermost).
	LayoutFiles []string `json:"layoutFiles"`

	// MiddlewareFiles are the enclosing middleware files, root first.
	MiddlewareFiles []string `json:"middlewareFiles"`

	// Directory is the route file's directory relative to the root ("" for the root).
	Directory string `json:"directory"`
}

// RouteSegments implements Routable.
func (r RouteDefinition) RouteSegments() []Segment { return r.Segments }

// Client returns the serializable subset of r used by the client runtime.
func (r RouteDefinition) Client() ClientRoute {
	return ClientRoute{
		ID:        r.ID,
		RoutePath: r.RoutePath,
		Segments:  r.Segments,
		Score:     r.Score,
	}
}

// Manifest is the ranked, de-duplicated result of a scan.
type Manifest struct {
	Pages []RouteDefinition `json:"pages"`
	API   []RouteDefinition `json:"api"`
}

// ClientRoutes returns the page routes in manifest order, reduced to the
// fields the client matcher needs.
func (m *Manifest) ClientRoutes() []ClientRoute {
	out := make([]ClientRoute, len(m.Pages))
	for i, p := range m.Pages {
		out[i] = p.Client()
	}
	return out
}

// PageByID looks up a page route by its ID.
func (m *Manifest) PageByID(id string) (*RouteDefinition, bool) {
	for i := range m.Pages {
		if m.Pages[i].ID == id {
			return &m.Pages[i], true
		}
	}
	return nil, false
}

// ClientRoute is the serializable route shape shipped to the browser.
type ClientRoute struct {
	ID        string    `json:"id"`
	RoutePath string    `json:"routePath"`
	Segments  []Segment `json:"segments"`
	Score     int64     `json:"score"`
}

// RouteSegments implements Routable.
func (r ClientRoute) RouteSegments() []Segment { return r.Segments }

// Snapshot seeds the client runtime without a network round-trip.
type Snapshot struct {
	Pages      []ClientRoute     `json:"pages"`
	Assets     map[string]string `json:"assets"`
	DevVersion string            `json:"devVersion"`
}
