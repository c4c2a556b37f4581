package middleware

import (
	"net/http/httptest"

	"github.com/vango-dev/transit/pkg/router"
	"github.com/vango-dev/transit/pkg/transition"
)

func newRequestContext(routeID, routePath, target string) *transition.RequestContext {
	rc := &transition.RequestContext{
		Request: httptest.NewRequest("GET", target, nil),
		Params:  map[string]string{},
		Target:  target,
	}
	if routeID != "" {
		rc.Route = &router.RouteDefinition{ID: routeID, RoutePath: routePath}
	}
	return rc
}
