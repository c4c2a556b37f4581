package transition

import (
	"github.com/a-h/templ"

	"github.com/vango-dev/transit/pkg/protocol"
)

// Props is the input of every route view.
type Props struct {
	// Data is the loader or action result. Deferred values are still
	// *deferred.Promise here; views may block on them.
	Data any

	Params map[string]string

	// URL is the request target: path, query and fragment.
	URL string

	// Error is set for boundary renders.
	Error *protocol.PayloadError
}

// Component renders a view for props.
type Component func(p Props) templ.Component

// LayoutComponent wraps a child view.
type LayoutComponent func(p Props, children templ.Component) templ.Component

// LoaderFunc loads data for a request. It is also the shape of actions and
// API handlers.
type LoaderFunc func(rc *RequestContext) (any, error)

// MetaTag is one entry of a module's Meta output.
type MetaTag struct {
	Title    string
	Name     string
	Property string
	Content  string
}

// Boundaries are the fallback views a module, a layout or the root may
// declare. A nil field means "not declared here".
type Boundaries struct {
	ErrorBoundary Component
	CatchBoundary Component
	NotFound      Component
}

// Module is the contract of a page route file.
type Module struct {
	// Component is required.
	Component Component

	// Loader runs for GET and HEAD.
	Loader LoaderFunc

	// Action runs for other methods.
	Action LoaderFunc

	Middleware []Middleware

	Head templ.Component
	Meta func(p Props) []MetaTag

	Boundaries
}

// Layout is the contract of a layout file.
type Layout struct {
	// Layout may be nil for a file that only declares boundaries.
	Layout LayoutComponent

	Boundaries
}

// APIModule is the contract of an API route file.
type APIModule struct {
	Middleware []Middleware

	// Handlers maps an HTTP method to its handler. HEAD falls back to GET.
	Handlers map[string]LoaderFunc
}
