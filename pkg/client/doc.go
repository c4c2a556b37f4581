// Package client is the soft-navigation runtime that consumes the transition
// protocol.
//
// A Runtime owns the one live render root of a document. It resolves a
// target against the route snapshot, streams the transition for it, patches
// the managed head region, swaps the view and records history. Browser
// facilities (history, head, render root, module loading, hard navigation,
// the live region) are reached through small interfaces so the same
// navigation algorithm runs in a browser build and headlessly.
//
// Every navigation bumps a token. A navigation that finds the token moved on
// after any wait abandons itself without rendering. Failures that are not
// caused by a newer navigation end in a hard navigation to the target.
package client
