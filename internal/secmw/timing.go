package secmw

import (
	"fmt"
	"time"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// Timing records a monotonic start time, runs the downstream chain, and
// appends an X-Response-Time header in whole milliseconds.
func Timing() pipeline.Middleware {
	return func(c *reqctx.Context, next pipeline.Next) error {
		start := time.Now()
		err := next(c)
		elapsed := time.Since(start)
		c.Response.Headers.Set("X-Response-Time", fmt.Sprintf("%dms", elapsed.Milliseconds()))
		return err
	}
}
