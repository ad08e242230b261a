// Package pipeline implements the Middleware Composer (spec §4.B): chaining
// an ordered list of middleware into a single Handler, enforcing that each
// middleware calls next at most once per request.
package pipeline

import (
	"fmt"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/reqctx"
)

// Handler handles a request, optionally staging a response on ctx.Response.
// A nil return means "nothing more to do"; Compose itself does not finalize
// anything, and Router.Handle calls ctx.Response.Finalize after every chain,
// matching the spec's "staged response" model.
type Handler func(c *reqctx.Context) error

// Next is the continuation a Middleware invokes to call the rest of the
// chain. It returns the error the inner handler produced.
type Next func(c *reqctx.Context) error

// Middleware wraps a Handler, receiving a Next continuation to call the
// downstream chain. Each middleware must call next at most once; invoking
// it twice is a programming error and panics with ErrNextCalledTwice so the
// violation is impossible to miss.
type Middleware func(c *reqctx.Context, next Next) error

// ErrNextCalledTwice is the panic value raised when a middleware invokes its
// next continuation more than once for the same request.
type ErrNextCalledTwice struct{ Middleware int }

func (e ErrNextCalledTwice) Error() string {
	return fmt.Sprintf("pipeline: next() called multiple times by middleware at index %d", e.Middleware)
}

// Compose builds a single Handler from an ordered middleware list plus a
// final handler. Middleware executes in registration order on the way in
// and unwinds in reverse order on the way out (the onion pattern): for
// middlewares [A,B,C] the call sequence is A-in, B-in, C-in, final,
// C-out, B-out, A-out.
//
// The returned Handler never panics outward: any panic raised anywhere in
// the chain — including ErrNextCalledTwice — is recovered and converted
// into an App{operational:false} error, so a single-next-law violation or
// any other defect reaches the caller as a normal error return rather than
// crashing the connection.
func Compose(mws []Middleware, final Handler) Handler {
	if len(mws) == 0 {
		return recoverPanics(func(c *reqctx.Context) error {
			if final == nil {
				return nil
			}
			return final(c)
		})
	}
	return recoverPanics(func(c *reqctx.Context) error {
		return dispatch(c, mws, 0, final)
	})
}

// recoverPanics wraps a Handler so that any panic during its execution is
// turned into a typed defect error instead of propagating to the caller.
func recoverPanics(h Handler) Handler {
	return func(c *reqctx.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = apperr.NewDefect(fmt.Sprintf("recovered panic: %v", r))
			}
		}()
		return h(c)
	}
}

func dispatch(c *reqctx.Context, mws []Middleware, idx int, final Handler) error {
	if idx >= len(mws) {
		if final == nil {
			return nil
		}
		return final(c)
	}
	called := false
	mw := mws[idx]
	next := func(c *reqctx.Context) error {
		if called {
			panic(ErrNextCalledTwice{Middleware: idx})
		}
		called = true
		return dispatch(c, mws, idx+1, final)
	}
	return mw(c, next)
}
