// Package router builds and matches the route manifest of a transit app.
//
// The router provides:
//   - a Scanner that turns a route-file hierarchy into a ranked Manifest
//   - Match, the pure segment matcher shared by the server and the client
//   - an Adapter that projects the manifest onto chi's radix matcher
//
// # File Structure Convention
//
//	app/routes/
//	├── index.go              → /
//	├── layout.go             → layout for every page
//	├── middleware.go         → middleware for every route
//	├── about.md              → /about (compiled into the generated dir)
//	├── (marketing)/
//	│   ├── layout.go         → layout for the group, not part of the URL
//	│   └── pricing.go        → /pricing
//	├── users/
//	│   ├── new.go            → /users/new
//	│   ├── [id].go           → /users/:id
//	│   └── _helpers.go       → hidden
//	├── docs/
//	│   └── [...slug].go      → /docs/*slug
//	└── api/
//	    └── health.go         → /api/health (API route)
//
// Routes are ranked so that static segments beat dynamic ones and dynamic
// segments beat catch-alls, comparing segment by segment from the left:
// /users/new wins over /users/:id for "/users/new".
//
// # Usage
//
//	m, err := router.NewScanner("app/routes", ".transit/gen").Scan()
//	if err != nil {
//	    return err
//	}
//	if res := router.Match(m.Pages, "/users/42"); res != nil {
//	    // res.Route.ID, res.Params["id"] == "42"
//	}
package router
