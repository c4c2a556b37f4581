package client

import (
	"sync"

	"github.com/vango-dev/transit/pkg/deferred"
)

// Deferreds holds the client side of one transition's deferred values,
// keyed by token id. Promises can be requested before or after their chunk
// arrives.
type Deferreds struct {
	mu     sync.Mutex
	slots  map[string]*slot
	closed error
}

type slot struct {
	promise *deferred.Promise
	settle  deferred.SettleFunc
}

// NewDeferreds returns an empty registry.
func NewDeferreds() *Deferreds {
	return &Deferreds{slots: make(map[string]*slot)}
}

func (d *Deferreds) slot(id string) *slot {
	s, ok := d.slots[id]
	if !ok {
		p, settle := deferred.Pending()
		s = &slot{promise: p, settle: settle}
		d.slots[id] = s
		if d.closed != nil {
			settle(nil, d.closed)
		}
	}
	return s
}

// Promise returns the promise for id.
func (d *Deferreds) Promise(id string) *deferred.Promise {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slot(id).promise
}

// Resolve settles the promise named by r.ID. Results after the first for an
// id are ignored.
func (d *Deferreds) Resolve(r deferred.Result) {
	d.mu.Lock()
	s := d.slot(r.ID)
	d.mu.Unlock()
	if r.OK {
		s.settle(r.Value, nil)
		return
	}
	s.settle(nil, &DeferredError{ID: r.ID, Message: r.Error})
}

// Close rejects every unsettled promise, and any requested later, with err.
func (d *Deferreds) Close(err error) {
	if err == nil {
		err = ErrStreamClosed
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed != nil {
		return
	}
	d.closed = err
	for _, s := range d.slots {
		s.settle(nil, err)
	}
}

// Revive returns a copy of v in which every deferred token is replaced by
// its promise. Maps and slices are walked recursively.
func (d *Deferreds) Revive(v any) any {
	if id, ok := deferred.TokenID(v); ok {
		return d.Promise(id)
	}
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = d.Revive(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = d.Revive(e)
		}
		return out
	default:
		return v
	}
}
