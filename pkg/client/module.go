package client

import (
	"context"
	"fmt"
	"sync"
)

// Module is the loaded bundle of one page route.
type Module struct {
	RouteID string

	// View is handed to the render root untouched.
	View any

	// Loading, when set, is shown while the transition for the route
	// streams.
	Loading any
}

// Modules maps route ids to loaded bundles. Route scripts call Register
// once they have executed; lookups that miss go through the ModuleLoader.
type Modules struct {
	mu      sync.RWMutex
	modules map[string]*Module
	loader  ModuleLoader
}

func newModules(loader ModuleLoader) *Modules {
	return &Modules{modules: make(map[string]*Module), loader: loader}
}

// Register records m under its route id, replacing any earlier bundle.
func (r *Modules) Register(m *Module) {
	if m == nil || m.RouteID == "" {
		panic("client: Register requires a module with a route id")
	}
	r.mu.Lock()
	r.modules[m.RouteID] = m
	r.mu.Unlock()
}

// Lookup returns the registered bundle for routeID.
func (r *Modules) Lookup(routeID string) (*Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[routeID]
	return m, ok
}

// Load returns the bundle for routeID, loading it on first use. An empty
// routeID yields a nil module.
func (r *Modules) Load(ctx context.Context, routeID string) (*Module, error) {
	if routeID == "" {
		return nil, nil
	}
	if m, ok := r.Lookup(routeID); ok {
		return m, nil
	}
	if r.loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleMissing, routeID)
	}
	m, err := r.loader.Load(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("load module %s: %w", routeID, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrModuleMissing, routeID)
	}
	if m.RouteID != routeID {
		return nil, fmt.Errorf("%w: loader returned %q for %q", ErrModuleMissing, m.RouteID, routeID)
	}
	r.Register(m)
	return m, nil
}
