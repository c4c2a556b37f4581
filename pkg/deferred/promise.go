package deferred

import (
	"context"
	"fmt"
	"sync"
)

// Promise is a value computed in the background. It settles exactly once.
type Promise struct {
	done  chan struct{}
	value any
	err   error
}

// Go runs fn in a new goroutine and returns a promise for its result.
// A panic in fn rejects the promise.
func Go(ctx context.Context, fn func(ctx context.Context) (any, error)) *Promise {
	p := &Promise{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		defer func() {
			if r := recover(); r != nil {
				p.value = nil
				p.err = fmt.Errorf("deferred: panic: %v", r)
			}
		}()
		p.value, p.err = fn(ctx)
	}()
	return p
}

// Resolved returns a settled promise holding v.
func Resolved(v any) *Promise {
	p := &Promise{done: make(chan struct{}), value: v}
	close(p.done)
	return p
}

// Rejected returns a settled promise holding err.
func Rejected(err error) *Promise {
	p := &Promise{done: make(chan struct{}), err: err}
	close(p.done)
	return p
}

// SettleFunc settles a pending promise. Calls after the first are ignored.
type SettleFunc func(v any, err error)

// Pending returns an unsettled promise and the function that settles it.
func Pending() (*Promise, SettleFunc) {
	p := &Promise{done: make(chan struct{})}
	var once sync.Once
	return p, func(v any, err error) {
		once.Do(func() {
			p.value, p.err = v, err
			close(p.done)
		})
	}
}

// Done is closed once the promise settles.
func (p *Promise) Done() <-chan struct{} { return p.done }

// Wait blocks until the promise settles or ctx is done.
func (p *Promise) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
