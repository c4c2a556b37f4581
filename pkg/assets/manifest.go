// Package assets resolves fingerprinted asset paths for documents and
// transitions.
//
// The build writes a manifest mapping source asset names to fingerprinted
// files, plus the stylesheets and module scripts each page route needs:
//
//	{
//	  "assets": {"app.css": "app.1a2b3c4d.css", "users-id.js": "users-id.9f8e7d6c.js"},
//	  "styles": ["app.css"],
//	  "routes": {
//	    "users-id-5c1f0e2a": {"scripts": ["users-id.js"], "styles": []}
//	  }
//	}
//
// A Bundle built from the manifest answers the transition handler's
// per-route lookups and fills the client route snapshot:
//
//	m, _ := assets.Load("dist/manifest.json")
//	b := assets.NewBundle(m, assets.NewResolver(m, "/assets/"))
//	b.Stylesheets("users-id-5c1f0e2a") // ["/assets/app.1a2b3c4d.css"]
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RouteAssets lists the source assets one page route needs.
type RouteAssets struct {
	Scripts []string `json:"scripts,omitempty"`
	Styles  []string `json:"styles,omitempty"`
}

// manifestFile is the on-disk shape.
type manifestFile struct {
	Assets map[string]string      `json:"assets"`
	Styles []string               `json:"styles,omitempty"`
	Routes map[string]RouteAssets `json:"routes,omitempty"`
}

// Manifest holds the mapping from source asset paths to fingerprinted paths
// and the per-route asset lists. It is safe for concurrent use.
type Manifest struct {
	mu      sync.RWMutex
	entries map[string]string
	styles  []string
	routes  map[string]RouteAssets
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
		routes:  make(map[string]RouteAssets),
	}
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest.
func Parse(data []byte) (*Manifest, error) {
	var f manifestFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode asset manifest: %w", err)
	}
	m := NewManifest()
	for k, v := range f.Assets {
		m.entries[k] = v
	}
	for k, v := range f.Routes {
		m.routes[k] = v
	}
	m.styles = append(m.styles, f.Styles...)
	return m, nil
}

// Resolve returns the fingerprinted path for the given source path.
// If not found, returns the original path unchanged.
func (m *Manifest) Resolve(source string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[source]; ok {
		return resolved
	}
	return source
}

// Has returns true if the manifest contains the given source path.
func (m *Manifest) Has(source string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[source]
	return ok
}

// Set adds or updates an entry in the manifest.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// SetRoute records the assets of one route.
func (m *Manifest) SetRoute(routeID string, ra RouteAssets) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[routeID] = ra
}

// SetStyles replaces the stylesheets every page includes.
func (m *Manifest) SetStyles(sources ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.styles = append([]string(nil), sources...)
}

// Route returns the assets recorded for routeID.
func (m *Manifest) Route(routeID string) (RouteAssets, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ra, ok := m.routes[routeID]
	return ra, ok
}

// Styles returns the stylesheets every page includes.
func (m *Manifest) Styles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.styles...)
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of all manifest entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}
