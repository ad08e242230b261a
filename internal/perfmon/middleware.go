package perfmon

import (
	"encoding/json"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// Middleware measures request duration and records it against the Monitor,
// keyed by "METHOD path". Status is read from the staged response after
// next returns, since the spec's model only finalises status at that point.
func Middleware(m *Monitor) pipeline.Middleware {
	return func(c *reqctx.Context, next pipeline.Next) error {
		start := time.Now()
		err := next(c)
		elapsed := time.Since(start).Milliseconds()

		status := c.Response.Status
		if status == 0 {
			status = 200
		}
		endpoint := c.Request().Method + " " + c.URL().Path
		span := trace.SpanFromContext(c.Request().Context())
		m.RecordSpan(endpoint, c.Request().Method, elapsed, status, span)
		return err
	}
}

type memSnapshot struct {
	AllocBytes      uint64 `json:"allocBytes"`
	TotalAllocBytes uint64 `json:"totalAllocBytes"`
	SysBytes        uint64 `json:"sysBytes"`
	NumGoroutine    int    `json:"numGoroutine"`
}

func takeMemSnapshot() memSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return memSnapshot{
		AllocBytes:      ms.Alloc,
		TotalAllocBytes: ms.TotalAlloc,
		SysBytes:        ms.Sys,
		NumGoroutine:    runtime.NumGoroutine(),
	}
}

// Handler serves the /metrics route: GetMetrics() plus a rolling process
// memory snapshot, per spec §4.H.
func Handler(m *Monitor) pipeline.Handler {
	return func(c *reqctx.Context) error {
		body, err := json.Marshal(map[string]any{
			"endpoints": m.GetMetrics(),
			"memory":    takeMemSnapshot(),
		})
		if err != nil {
			return err
		}
		c.Response.Headers.Set("Content-Type", "application/json; charset=utf-8")
		c.Response.Commit(reqctx.CommitFields{Status: 200, Body: body})
		return nil
	}
}
