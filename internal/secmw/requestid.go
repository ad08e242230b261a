// Package secmw implements the Security, CORS, Request-ID, Timing, and
// Health-check middleware described by spec §4.G.
package secmw

import (
	"github.com/google/uuid"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// RequestIDStateKey is the reqctx state key the request ID is stored under.
const RequestIDStateKey = "requestId"

// RequestIDHeader is the response header the request ID is always echoed on.
const RequestIDHeader = "X-Request-ID"

// RequestID generates a UUIDv4 when the inbound request carries no
// X-Request-ID, stores it in ctx.state.requestId, and always echoes it back
// as a response header.
func RequestID() pipeline.Middleware {
	return func(c *reqctx.Context, next pipeline.Next) error {
		id := c.Request().Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDStateKey, id)
		c.Response.Headers.Set(RequestIDHeader, id)
		return next(c)
	}
}
