package apperr

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"
)

// fromOSError maps common OS-level error sentinels to typed *Error values
// per spec §4.E's OS-mapped row: NotFound→404, PermissionDenied→403,
// ConnectionRefused→503, TimedOut→408. Returns nil if err doesn't match any
// of these, leaving the caller to fall back to an Unknown-kind wrap.
func fromOSError(err error) *Error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &Error{Kind: App, StatusCode: http.StatusNotFound, IsOperational: true,
			Message: "resource not found", Cause: err, Timestamp: time.Now(), Stack: captureStack()}
	case errors.Is(err, os.ErrPermission):
		return &Error{Kind: App, StatusCode: http.StatusForbidden, IsOperational: true,
			Message: "permission denied", Cause: err, Timestamp: time.Now(), Stack: captureStack()}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &Error{Kind: App, StatusCode: http.StatusServiceUnavailable, IsOperational: true,
			Message: "connection refused", Cause: err, Timestamp: time.Now(), Stack: captureStack()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return &Error{Kind: App, StatusCode: http.StatusRequestTimeout, IsOperational: true,
			Message: "timed out", Cause: err, Timestamp: time.Now(), Stack: captureStack()}
	default:
		return nil
	}
}
