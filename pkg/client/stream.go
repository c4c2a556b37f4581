package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/vango-dev/transit/pkg/deferred"
	"github.com/vango-dev/transit/pkg/protocol"
)

// start begins loading the module and streaming the transition for dest.
// A cached entry is stored before its stream can fail and evict it.
func (rt *Runtime) start(dest string, redirected, cache bool) *PrefetchEntry {
	ctx, cancel := context.WithCancel(context.Background())
	initial, settleInitial := deferred.Pending()
	done, settleDone := deferred.Pending()
	routeID := rt.matchRoute(dest)

	e := &PrefetchEntry{
		URL:       dest,
		CreatedAt: rt.opts.Now(),
		Module: deferred.Go(ctx, func(ctx context.Context) (any, error) {
			return rt.modules.Load(ctx, routeID)
		}),
		Initial:   initial,
		Done:      done,
		Deferreds: NewDeferreds(),
		cancel:    cancel,
	}
	if cache {
		rt.prefetch.put(e)
	}

	go func() {
		defer cancel()
		err := rt.consume(ctx, e, redirected, settleInitial)
		if err != nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err == nil {
			err = ErrStreamClosed
		} else {
			rt.prefetch.evict(e)
		}
		settleInitial(nil, err)
		e.Deferreds.Close(err)
		if errors.Is(err, ErrStreamClosed) {
			err = nil
		}
		settleDone(nil, err)
	}()
	return e
}

// consume reads the transition stream into e. A nil return means the
// stream ended cleanly after its lead chunk.
func (rt *Runtime) consume(ctx context.Context, e *PrefetchEntry, redirected bool, settleInitial deferred.SettleFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rt.transitionURL(e.URL, redirected), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", protocol.ContentType)

	resp, err := rt.opts.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != protocol.ContentType {
		return fmt.Errorf("%w: content type %q", ErrUnexpectedStatus, resp.Header.Get("Content-Type"))
	}

	dec := protocol.NewDecoder(resp.Body)
	lead, err := dec.Next()
	if errors.Is(err, io.EOF) {
		return ErrEmptyStream
	}
	if err != nil {
		return err
	}
	settleInitial(lead, nil)
	if lead.Type != protocol.TypeInitial {
		return nil
	}

	for {
		c, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		e.Deferreds.Resolve(c.Result())
	}
}

func (rt *Runtime) transitionURL(dest string, redirected bool) string {
	q := url.Values{"to": {dest}}
	if redirected {
		q.Set("redirected", "1")
	}
	u := *rt.opts.Origin
	u.Path = strings.TrimSuffix(rt.opts.Origin.Path, "/") + rt.opts.TransitionPath
	u.RawPath = ""
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String()
}
