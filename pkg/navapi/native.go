package navapi

import (
	"context"

	"github.com/vango-dev/transit/pkg/client"
)

// HistoryMode is the history behaviour of a native dispatch.
type HistoryMode string

const (
	HistoryPush    HistoryMode = "push"
	HistoryReplace HistoryMode = "replace"
)

// Info is attached to native dispatches so their events can be matched.
type Info struct {
	ID string `json:"transitId"`
}

// DispatchOptions are passed to Native.Navigate.
type DispatchOptions struct {
	History HistoryMode
	Info    Info
}

// NavigateEvent is a native navigate event.
type NavigateEvent struct {
	// Destination is the absolute URL being navigated to.
	Destination string

	// Info is whatever the dispatcher attached, nil for browser-initiated
	// navigations.
	Info any

	// Replace is set for replace navigations.
	Replace bool

	// Traversal is set for back/forward.
	Traversal bool

	// HashChange is set for fragment-only navigations.
	HashChange bool

	// Download is set when the navigation downloads a resource.
	Download bool

	// CanIntercept reports whether the browser lets this event be
	// intercepted.
	CanIntercept bool
}

// Listener handles a navigate event. When intercepted is true the browser
// binding intercepts the event and the transition has already run.
type Listener func(ctx context.Context, ev NavigateEvent) (out client.Outcome, intercepted bool)

// Native is the browser Navigation API. Implementations may also implement
// Interceptor and Listenable; Detect reports which.
type Native interface {
	Navigate(url string, opts DispatchOptions) error
}

// Interceptor is implemented by Navigation APIs whose events support
// intercept().
type Interceptor interface {
	CanIntercept() bool
}

// Listenable is implemented by Navigation APIs that accept navigate
// listeners.
type Listenable interface {
	AddNavigateListener(l Listener)
}

// Capabilities is the detected Navigation API support.
type Capabilities struct {
	Navigate  bool
	Intercept bool
	Listen    bool
}

// Full reports whether navigations can go through the native API.
func (c Capabilities) Full() bool { return c.Navigate && c.Intercept && c.Listen }

// Detect probes n.
func Detect(n Native) Capabilities {
	if n == nil {
		return Capabilities{}
	}
	c := Capabilities{Navigate: true}
	if i, ok := n.(Interceptor); ok {
		c.Intercept = i.CanIntercept()
	}
	_, c.Listen = n.(Listenable)
	return c
}

// Runner runs the transition algorithm. *client.Runtime implements it.
type Runner interface {
	Navigate(ctx context.Context, target string, opts client.NavigateOptions) client.Outcome
}
