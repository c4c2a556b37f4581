package navapi

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/transit/pkg/client"
	"github.com/vango-dev/transit/pkg/routepath"
)

// Defaults for Options.
const (
	DefaultMatchWindow = time.Second
	DefaultTimeout     = 1500 * time.Millisecond
)

// Options configures New.
type Options struct {
	// Origin is the document origin. Events for other origins are left to
	// the browser.
	Origin *url.URL

	// MatchWindow bounds how old a pending dispatch may be and still be
	// matched by destination URL.
	MatchWindow time.Duration

	// Timeout is how long a dispatch waits for its navigate event.
	Timeout time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// Adapter dispatches navigations through the native API when it is fully
// supported and through the Runner otherwise.
type Adapter struct {
	native Native
	runner Runner
	caps   Capabilities
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
	settled map[string]time.Time
}

// pending is a native dispatch waiting for its navigate event.
type pending struct {
	id      string
	url     string
	created time.Time
	opts    client.NavigateOptions
	done    chan client.Outcome
}

// New creates an adapter. When native is fully supported, New registers the
// adapter's listener with it.
func New(native Native, runner Runner, opts Options) *Adapter {
	if opts.MatchWindow <= 0 {
		opts.MatchWindow = DefaultMatchWindow
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	a := &Adapter{
		native:  native,
		runner:  runner,
		caps:    Detect(native),
		opts:    opts,
		logger:  opts.Logger.With("component", "navapi"),
		pending: make(map[string]*pending),
		settled: make(map[string]time.Time),
	}
	if a.caps.Full() {
		native.(Listenable).AddNavigateListener(a.HandleNavigate)
	}
	return a
}

// Capabilities returns what Detect found.
func (a *Adapter) Capabilities() Capabilities { return a.caps }

// Navigate runs a navigation to target and returns its outcome. With full
// native support the browser commits history; otherwise the Runner does.
func (a *Adapter) Navigate(ctx context.Context, target string, opts client.NavigateOptions) client.Outcome {
	if !a.caps.Full() {
		return a.runner.Navigate(ctx, target, opts)
	}

	p := &pending{
		id:      uuid.NewString(),
		url:     a.absolute(target),
		created: a.opts.Now(),
		opts:    opts,
		done:    make(chan client.Outcome, 1),
	}
	a.mu.Lock()
	a.pruneLocked()
	a.pending[p.id] = p
	a.mu.Unlock()

	mode := HistoryPush
	if opts.Replace {
		mode = HistoryReplace
	}
	if err := a.native.Navigate(p.url, DispatchOptions{History: mode, Info: Info{ID: p.id}}); err != nil {
		a.logger.Debug("native dispatch failed", "target", target, "error", err)
		if a.release(p.id, false) {
			return a.runner.Navigate(ctx, target, opts)
		}
		return <-p.done
	}

	timer := time.NewTimer(a.opts.Timeout)
	defer timer.Stop()
	select {
	case out := <-p.done:
		return out
	case <-timer.C:
		if !a.release(p.id, true) {
			// The event arrived while the timer fired.
			return <-p.done
		}
		a.logger.Debug("navigate event never fired, using manual navigation", "target", target, "id", p.id)
		return a.runner.Navigate(ctx, target, opts)
	case <-ctx.Done():
		if !a.release(p.id, true) {
			return <-p.done
		}
		return client.Abandoned
	}
}

// release removes the pending dispatch id. It reports false when an event
// already claimed it. A tombstoned id makes a late event for it a no-op.
func (a *Adapter) release(id string, tombstone bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[id]; !ok {
		return false
	}
	delete(a.pending, id)
	if tombstone {
		a.settled[id] = a.opts.Now()
	}
	return true
}

// HandleNavigate is the native navigate listener.
func (a *Adapter) HandleNavigate(ctx context.Context, ev NavigateEvent) (client.Outcome, bool) {
	if !ev.CanIntercept || ev.HashChange || ev.Download {
		return 0, false
	}
	if !routepath.SameOrigin(a.opts.Origin, ev.Destination) {
		return 0, false
	}

	id := infoID(ev.Info)
	a.mu.Lock()
	a.pruneLocked()
	if _, late := a.settled[id]; late && id != "" {
		a.mu.Unlock()
		return client.Skipped, true
	}
	p := a.matchLocked(id, ev.Destination)
	if p != nil {
		delete(a.pending, p.id)
	}
	a.mu.Unlock()

	opts := client.NavigateOptions{Replace: ev.Replace, Pop: ev.Traversal}
	if p != nil {
		opts = p.opts
	}
	opts.Managed = true
	out := a.runner.Navigate(ctx, ev.Destination, opts)
	if p != nil {
		p.done <- out
	}
	return out, true
}

// matchLocked finds the pending dispatch for an event: by id when the event
// carries one, otherwise by destination among recent dispatches.
func (a *Adapter) matchLocked(id, dest string) *pending {
	if id != "" {
		return a.pending[id]
	}
	dest = a.absolute(dest)
	now := a.opts.Now()
	var best *pending
	for _, p := range a.pending {
		if p.url != dest || now.Sub(p.created) > a.opts.MatchWindow {
			continue
		}
		if best == nil || p.created.Before(best.created) {
			best = p
		}
	}
	return best
}

// pruneLocked drops tombstones older than the match window.
func (a *Adapter) pruneLocked() {
	now := a.opts.Now()
	for id, at := range a.settled {
		if now.Sub(at) > a.opts.MatchWindow {
			delete(a.settled, id)
		}
	}
}

func (a *Adapter) absolute(target string) string {
	u, err := url.Parse(target)
	if err != nil || a.opts.Origin == nil {
		return target
	}
	return a.opts.Origin.ResolveReference(u).String()
}

func infoID(info any) string {
	switch v := info.(type) {
	case Info:
		return v.ID
	case *Info:
		if v != nil {
			return v.ID
		}
	case map[string]any:
		id, _ := v["transitId"].(string)
		return id
	}
	return ""
}
