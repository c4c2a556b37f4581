package assets

// Resolver turns a source asset name into the URL path it is served at.
type Resolver interface {
	Asset(source string) string
}

// manifestResolver wraps a Manifest to implement Resolver.
type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver creates a Resolver from a Manifest with an optional path
// prefix, e.g. "/assets/".
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(source string) string {
	return r.prefix + r.manifest.Resolve(source)
}

// passthrough returns assets unchanged (for development mode).
type passthrough struct {
	prefix string
}

// NewPassthroughResolver creates a resolver that only applies prefix, for
// development builds without fingerprinting.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(source string) string {
	return p.prefix + source
}

// Bundle answers per-route asset lookups for the transition handler.
type Bundle struct {
	manifest *Manifest
	resolver Resolver
}

// NewBundle pairs a manifest with the resolver that produces URLs for it.
func NewBundle(m *Manifest, r Resolver) *Bundle {
	if m == nil {
		m = NewManifest()
	}
	if r == nil {
		r = NewResolver(m, "")
	}
	return &Bundle{manifest: m, resolver: r}
}

// Stylesheets returns the global stylesheets followed by those of routeID,
// resolved and without duplicates. An empty routeID yields only the global
// ones.
func (b *Bundle) Stylesheets(routeID string) []string {
	sources := b.manifest.Styles()
	if ra, ok := b.manifest.Route(routeID); ok {
		sources = append(sources, ra.Styles...)
	}
	return b.resolveAll(sources)
}

// Scripts returns the module scripts of routeID, resolved.
func (b *Bundle) Scripts(routeID string) []string {
	ra, ok := b.manifest.Route(routeID)
	if !ok {
		return nil
	}
	return b.resolveAll(ra.Scripts)
}

// Snapshot maps every source asset to its URL, for the client route
// snapshot.
func (b *Bundle) Snapshot() map[string]string {
	all := b.manifest.All()
	out := make(map[string]string, len(all))
	for source := range all {
		out[source] = b.resolver.Asset(source)
	}
	return out
}

func (b *Bundle) resolveAll(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		u := b.resolver.Asset(s)
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
