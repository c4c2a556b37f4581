package transition

import (
	"github.com/vango-dev/transit/pkg/router"
)

// Routes is one immutable generation of the route table. The Handler swaps
// generations wholesale; requests keep the generation they started with.
type Routes struct {
	Manifest *router.Manifest
	Snapshot router.Snapshot

	pages *router.Adapter
	api   *router.Adapter
}

// NewRoutes builds adapters for m. assets and devVersion are copied into
// the client snapshot.
func NewRoutes(m *router.Manifest, assets map[string]string, devVersion string) (*Routes, error) {
	pages, err := router.NewAdapter(m.Pages)
	if err != nil {
		return nil, err
	}
	api, err := router.NewAdapter(m.API)
	if err != nil {
		return nil, err
	}
	return &Routes{
		Manifest: m,
		Snapshot: router.Snapshot{
			Pages:      m.ClientRoutes(),
			Assets:     assets,
			DevVersion: devVersion,
		},
		pages: pages,
		api:   api,
	}, nil
}
