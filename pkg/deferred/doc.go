// Package deferred splits loader data into an immediate part and values that
// resolve later.
//
// A loader returns Defer(map) with some values wrapped in a *Promise. Prepare
// produces two views of the same data: the render view keeps the live
// promises so components in the current request can block on them, and the
// wire view replaces each promise with a Token that a client resolves when
// the matching deferred chunk arrives. The settle entries pair each token id
// with its promise and never fail; a rejected promise settles as
// Result{OK: false}.
//
//	return deferred.Defer(map[string]any{
//	    "user":     user,
//	    "comments": deferred.Go(ctx, loadComments),
//	}), nil
package deferred
