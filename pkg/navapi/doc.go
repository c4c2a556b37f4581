// Package navapi routes client navigations through the browser's native
// Navigation API when it is fully supported.
//
// With full support the browser's history stays authoritative: the adapter
// dispatches through the native API, tags the dispatch with an opaque id and
// runs the transition when the matching navigate event arrives. If the event
// never comes, the adapter falls back to the manual pushState path after a
// timeout. Without full support every navigation takes the manual path.
package navapi
