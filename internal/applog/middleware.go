package applog

import (
	"net/http"
	"strings"
	"time"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// RequestLogging wraps the downstream chain, timing the request and
// emitting the REQ/RES line pair via Logger.LogRequest once it completes
// (spec §4.F). At debug level it additionally emits a structured "Request
// Details" entry with sanitised headers, resolved client IP, user-agent,
// and query parameters.
func RequestLogging(l *Logger) pipeline.Middleware {
	return func(c *reqctx.Context, next pipeline.Next) error {
		start := time.Now()
		requestID := c.GetString("requestId")
		pathAndQuery := c.URL().Path
		if rawQuery := c.URL().RawQuery; rawQuery != "" {
			pathAndQuery += "?" + rawQuery
		}

		if l.level <= LevelDebug {
			l.Debug("Request Details", map[string]any{
				"requestId": requestID,
				"headers":   SanitizeHeaders(c.Request().Header),
				"ip":        clientIP(c.Request()),
				"userAgent": c.Request().UserAgent(),
				"query":     c.URL().Query(),
			})
		}

		err := next(c)

		status := c.Response.Status
		if status == 0 {
			status = 200
		}
		l.LogRequest(c.Request().Method, pathAndQuery, status, time.Since(start), requestID)
		return err
	}
}

// clientIP mirrors the error subsystem's resolution order (spec §4.E step 1
// / §4.F: "client IP resolved as in §4.E"): X-Forwarded-For's first hop,
// then X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		return host[:idx]
	}
	return host
}
