package transition

import "errors"

// ErrNextCalledTwice is the panic value raised when a middleware invokes
// its continuation more than once.
var ErrNextCalledTwice = errors.New("transition: next called more than once")

// Next runs the rest of the chain. It may be called at most once.
type Next func() (any, error)

// Middleware wraps the rest of the chain. It may return without calling
// next to short-circuit, typically with a *Redirect or *Response.
type Middleware interface {
	Handle(rc *RequestContext, next Next) (any, error)
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(rc *RequestContext, next Next) (any, error)

// Handle implements Middleware.
func (f MiddlewareFunc) Handle(rc *RequestContext, next Next) (any, error) {
	return f(rc, next)
}

// Compose runs mw in order around final. Each continuation handed to a
// middleware panics with ErrNextCalledTwice on a second call.
func Compose(rc *RequestContext, mw []Middleware, final Next) (any, error) {
	chain := final
	for i := len(mw) - 1; i >= 0; i-- {
		m := mw[i]
		if m == nil {
			continue
		}
		next := once(chain)
		chain = func() (any, error) {
			return m.Handle(rc, next)
		}
	}
	return chain()
}

func once(fn Next) Next {
	called := false
	return func() (any, error) {
		if called {
			panic(ErrNextCalledTwice)
		}
		called = true
		return fn()
	}
}

// Chain combines middleware into one, run in order.
func Chain(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(rc *RequestContext, next Next) (any, error) {
		return Compose(rc, middleware, next)
	})
}

// Skip bypasses mw when condition holds.
func Skip(condition func(rc *RequestContext) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(rc *RequestContext, next Next) (any, error) {
		if condition(rc) {
			return next()
		}
		return mw.Handle(rc, next)
	})
}

// Only runs mw only when condition holds.
func Only(condition func(rc *RequestContext) bool, mw Middleware) Middleware {
	return MiddlewareFunc(func(rc *RequestContext, next Next) (any, error) {
		if !condition(rc) {
			return next()
		}
		return mw.Handle(rc, next)
	})
}
