package client

import "errors"

// Errors that end a navigation in a hard navigation. They are logged, never
// returned from Navigate.
var (
	ErrModuleMissing    = errors.New("client: route module missing")
	ErrRedirectLimit    = errors.New("client: redirect limit exceeded")
	ErrCrossOrigin      = errors.New("client: cross-origin target")
	ErrEmptyStream      = errors.New("client: transition stream ended before the first chunk")
	ErrUnexpectedStatus = errors.New("client: unexpected transition response")
	ErrNoHeadMarkers    = errors.New("client: managed head markers not found")
	ErrStreamClosed     = errors.New("client: transition stream closed before value settled")
)

// DeferredError is the rejection of a deferred value.
type DeferredError struct {
	ID      string
	Message string
}

func (e *DeferredError) Error() string { return "deferred " + e.ID + ": " + e.Message }
