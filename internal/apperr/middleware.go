package apperr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grenas405/genesis/internal/reqctx"
)

// consoleLogger is the subset of *applog.Logger the error handler needs.
// Depending on the interface rather than the concrete type keeps this
// package free of an import on internal/applog, which in turn imports
// internal/pipeline for its request-logging middleware — internal/pipeline
// imports internal/apperr to convert recovered panics into typed errors, so
// a direct *applog.Logger field here would close that into an import cycle.
type consoleLogger interface {
	Error(msg string, fields map[string]any)
}

// Handler is the error-subsystem sink installed via
// pipeline.Router.SetErrorHandler. It implements the 8-step catch pipeline
// from spec §4.E: extract requestId, normalise, log, record to a file,
// update analytics, map to a status/message, build the response body, and
// best-effort forward 5xx to a remote reporter.
type Handler struct {
	logger    consoleLogger
	analytics *Analytics
	cfg       Config

	fileMu sync.Mutex
	file   *os.File
}

// NewHandler builds an error Handler. logger may be nil (console logging is
// then skipped regardless of cfg.LogErrors). In practice callers pass an
// *applog.Logger, which satisfies consoleLogger structurally.
func NewHandler(logger consoleLogger, analytics *Analytics, cfg Config) *Handler {
	return &Handler{logger: logger, analytics: analytics, cfg: cfg}
}

// clientIP extracts the caller's address, preferring X-Forwarded-For's first
// hop over RemoteAddr, matching the teacher's reverse-proxy-aware lookup.
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

// Handle is installed as the pipeline's error sink.
func (h *Handler) Handle(c *reqctx.Context, err error) {
	requestID := c.GetString("requestId")

	e := Wrap(err)
	e = withRequestID(e, requestID)

	if h.logger != nil && h.cfg.LogErrors {
		h.logger.Error(e.Error(), map[string]any{
			"type":      e.Kind.String(),
			"requestId": requestID,
			"stack":     e.Stack,
		})
	}

	if h.cfg.LogFilePath != "" {
		h.appendLogLine(e, c)
	}

	if h.analytics != nil {
		h.analytics.Record(Occurrence{
			Type:      e.Kind.String(),
			Message:   e.Error(),
			Timestamp: time.Now(),
			RequestID: requestID,
			IP:        clientIP(c.Request()),
		})
	}

	status, message, validation, retryAfter := h.mapOutward(e)

	responseBody := map[string]any{
		"error": map[string]any{
			"message":   message,
			"type":      e.Kind.String(),
			"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
			"requestId": requestID,
		},
	}
	if validation != nil {
		responseBody["validation"] = validation
	}
	if retryAfter != nil {
		responseBody["retryAfter"] = *retryAfter
	}
	body, _ := json.Marshal(responseBody)

	if e.Kind == RateLimit && e.RetryAfterSeconds > 0 {
		c.Response.Headers.Set("Retry-After", strconv.Itoa(e.RetryAfterSeconds))
	}
	c.Response.Headers.Set("Content-Type", "application/json; charset=utf-8")
	c.Response.Commit(reqctx.CommitFields{Status: status, Body: body})

	if status >= 500 && h.cfg.Reporter != nil {
		go h.cfg.Reporter(e)
	}
}

// mapOutward applies customMessages overrides and, in sanitising
// configurations, hides the real message behind a generic string for 5xx
// responses while leaving the logged/recorded data untouched. Validation
// and RateLimit kinds additionally surface the top-level "validation" and
// "retryAfter" response fields required by the error body contract.
func (h *Handler) mapOutward(e *Error) (status int, message string, validation map[string]any, retryAfter *int) {
	status = e.HTTPStatus()
	message = e.Error()

	if custom, ok := h.cfg.CustomMessages[e.Kind]; ok {
		message = custom
	} else if h.cfg.SanitizeServerErrors && status >= 500 {
		message = genericServerMessage
	}

	switch e.Kind {
	case Validation:
		validation = map[string]any{"field": e.Field, "value": e.Value}
	case RateLimit:
		if e.RetryAfterSeconds > 0 {
			seconds := e.RetryAfterSeconds
			retryAfter = &seconds
		}
	}
	return status, message, validation, retryAfter
}

func (h *Handler) appendLogLine(e *Error, c *reqctx.Context) {
	h.fileMu.Lock()
	defer h.fileMu.Unlock()

	if h.file == nil {
		if err := os.MkdirAll(filepath.Dir(h.cfg.LogFilePath), 0o755); err != nil {
			return
		}
		f, err := os.OpenFile(h.cfg.LogFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		h.file = f
	}

	line, err := json.Marshal(map[string]any{
		"type":      e.Kind.String(),
		"message":   e.Error(),
		"requestId": e.RequestID,
		"path":      c.URL().Path,
		"method":    c.Request().Method,
		"ip":        clientIP(c.Request()),
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(h.file, string(line))
}

// Close releases the handler's open log file, if any.
func (h *Handler) Close() error {
	h.fileMu.Lock()
	defer h.fileMu.Unlock()
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}
