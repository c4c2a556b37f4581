package deferred

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TokenKey is the JSON property that marks a deferred placeholder.
const TokenKey = "__deferred"

// Data is loader output in which some values may be promises.
type Data struct {
	values map[string]any
}

// Defer wraps a flat key/value map. Values of type *Promise are deferred;
// everything else is sent with the initial render.
func Defer(values map[string]any) *Data {
	cp := make(map[string]any, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &Data{values: cp}
}

// Keys returns the keys in sorted order.
func (d *Data) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Token stands in for a pending value on the wire.
type Token struct {
	DeferredID string `json:"__deferred"`
}

// TokenID reports whether v, as decoded from JSON, is a deferred token.
func TokenID(v any) (string, bool) {
	switch t := v.(type) {
	case Token:
		return t.DeferredID, true
	case *Token:
		if t == nil {
			return "", false
		}
		return t.DeferredID, true
	case map[string]any:
		if len(t) != 1 {
			return "", false
		}
		id, ok := t[TokenKey].(string)
		return id, ok
	}
	return "", false
}

// Result is the settled outcome of one deferred value.
type Result struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Unencodable is the rejection sent in place of a settled value that
// cannot be serialized.
func Unencodable(id string, err error) Result {
	return Result{ID: id, Error: fmt.Sprintf("encode deferred value: %v", err)}
}

// Entry pairs a token id with the promise that produces its value.
type Entry struct {
	ID      string
	promise *Promise
}

// Wait settles the entry. It never returns a failure; rejection and
// cancellation are reported through Result.OK.
func (e Entry) Wait(ctx context.Context) Result {
	v, err := e.promise.Wait(ctx)
	if err != nil {
		return Result{ID: e.ID, OK: false, Error: err.Error()}
	}
	return Result{ID: e.ID, OK: true, Value: v}
}

// Prepared is the render/wire split of a Data.
type Prepared struct {
	// Render holds the values for the current in-process render; pending
	// values remain *Promise.
	Render map[string]any

	// Wire is the serializable payload; pending values are Tokens.
	Wire map[string]any

	// Settle lists one entry per promise, in key order.
	Settle []Entry
}

// Prepare splits d for routeID. Token ids are routeID + ":" + key so they
// are unique within a transition and stable across processes.
func Prepare(routeID string, d *Data) Prepared {
	out := Prepared{
		Render: make(map[string]any),
		Wire:   make(map[string]any),
	}
	if d == nil {
		return out
	}
	for _, k := range d.Keys() {
		v := d.values[k]
		p, ok := v.(*Promise)
		if !ok || p == nil {
			out.Render[k] = v
			out.Wire[k] = v
			continue
		}
		id := routeID + ":" + k
		out.Render[k] = p
		out.Wire[k] = Token{DeferredID: id}
		out.Settle = append(out.Settle, Entry{ID: id, promise: p})
	}
	return out
}

// Drain settles every entry concurrently and sends each result as soon as
// it is available, so results arrive in completion order. The channel is
// closed after the last result. If ctx ends first, pending entries settle
// with the context error.
func Drain(ctx context.Context, entries []Entry) <-chan Result {
	out := make(chan Result, len(entries))
	var wg sync.WaitGroup
	wg.Add(len(entries))
	for _, e := range entries {
		go func(e Entry) {
			defer wg.Done()
			out <- e.Wait(ctx)
		}(e)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}
