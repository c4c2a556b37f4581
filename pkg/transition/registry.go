package transition

import (
	"fmt"
	"path"
	"sort"
	"sync"

	terrors "github.com/vango-dev/transit/internal/errors"
	"github.com/vango-dev/transit/pkg/router"
)

// Registry holds route modules keyed by route file path relative to the
// routes root, exactly as the scanner reports it. Generated code registers
// modules from init functions.
type Registry struct {
	mu         sync.RWMutex
	pages      map[string]*Module
	layouts    map[string]*Layout
	middleware map[string][]Middleware
	api        map[string]*APIModule
	global     []Middleware
	root       Boundaries
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pages:      make(map[string]*Module),
		layouts:    make(map[string]*Layout),
		middleware: make(map[string][]Middleware),
		api:        make(map[string]*APIModule),
	}
}

// RegisterPage registers the module for a page file. It panics if the
// module has no Component or the file is already registered.
func (r *Registry) RegisterPage(file string, m Module) {
	if m.Component == nil {
		panic(fmt.Sprintf("transition: page %s has no Component", file))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.pages[file]; dup {
		panic(fmt.Sprintf("transition: page %s registered twice", file))
	}
	r.pages[file] = &m
}

// RegisterLayout registers a layout file.
func (r *Registry) RegisterLayout(file string, l Layout) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layouts[file] = &l
}

// RegisterMiddleware registers the middleware exported by a middleware file.
func (r *Registry) RegisterMiddleware(file string, mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware[file] = append(r.middleware[file], mw...)
}

// RegisterAPI registers an API route file.
func (r *Registry) RegisterAPI(file string, a APIModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.api[file] = &a
}

// Use appends global middleware, which runs before any file middleware.
func (r *Registry) Use(mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, mw...)
}

// SetRoot sets the outermost boundaries.
func (r *Registry) SetRoot(b Boundaries) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.root = b
}

// Check returns E206 naming every route file in m that has no registered
// module.
func (r *Registry) Check(m *router.Manifest) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []string
	for _, p := range m.Pages {
		if _, ok := r.pages[p.FilePath]; !ok {
			missing = append(missing, p.FilePath)
		}
	}
	for _, a := range m.API {
		if _, ok := r.api[a.FilePath]; !ok {
			missing = append(missing, a.FilePath)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return terrors.New("E206").
		WithFiles(missing...).
		WithSuggestion("Run the route code generator, or import the package that registers these modules.")
}

func (r *Registry) page(file string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.pages[file]
	return m, ok
}

func (r *Registry) apiModule(file string) (*APIModule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.api[file]
	return a, ok
}

// layoutsFor returns the registered layouts among files, keeping order.
func (r *Registry) layoutsFor(files []string) []*Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Layout, 0, len(files))
	for _, f := range files {
		if l, ok := r.layouts[f]; ok {
			out = append(out, l)
		}
	}
	return out
}

// rootLayouts returns the layout declared in the routes root, if any.
func (r *Registry) rootLayouts() []*Layout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for f, l := range r.layouts {
		if path.Dir(f) == "." {
			return []*Layout{l}
		}
	}
	return nil
}

// chain assembles global, file and module middleware in execution order.
func (r *Registry) chain(files []string, own []Middleware) []Middleware {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Middleware, 0, len(r.global)+len(files)+len(own))
	out = append(out, r.global...)
	for _, f := range files {
		out = append(out, r.middleware[f]...)
	}
	return append(out, own...)
}

func (r *Registry) rootBoundaries() Boundaries {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.root
}
