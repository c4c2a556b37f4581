// Package transition serves route requests.
//
// For every request the Handler resolves the route, runs the middleware
// chain (global, then route-ancestor files root-first, then the module's
// own) around the loader or action, and classifies the result:
//
//   - no route: not_found render using the nearest NotFound boundary
//   - *CaughtError: nearest CatchBoundary, or NotFound for a caught 404
//   - any other error or panic: nearest ErrorBoundary, else a bare 500
//   - *Redirect, or a *Response with a redirect status: redirect
//   - *Response: sent as-is
//   - *deferred.Data or plain data: page render
//
// Boundaries are searched module first, then layouts innermost to
// outermost, then the registry's root boundaries.
//
// A full page load receives a streamed HTML document. A soft navigation
// calls the transition endpoint,
//
//	GET /_transit?to=/users/42?tab=posts
//
// and receives an NDJSON stream: one initial, redirect or document chunk,
// flushed at once, followed by a deferred chunk per settled value.
package transition
