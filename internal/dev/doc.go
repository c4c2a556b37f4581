// Package dev keeps a running app's route manifest in step with the route
// tree during development.
//
// A Watcher reports debounced batches of file changes under the route and
// generated-source directories. The app rescans on each batch, installs the
// new manifest wholesale and announces its dev version through a
// ReloadServer:
//
//	{"type": "version", "version": "..."}   // manifest swapped
//	{"type": "error", "error": "..."}       // rescan failed, old manifest kept
//	{"type": "clear"}                       // error resolved
//
// Browsers reload on a version change. The client runtime compares the
// snapshot's dev version instead.
package dev
