// Package apperr implements the typed error hierarchy, error middleware,
// and process-wide error analytics described by spec §4.E.
package apperr

import (
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// Kind is the sum-type discriminant for typed errors. It replaces the
// "any-typed error catch" pattern flagged in the spec's design notes with a
// closed enum plus an Unknown variant wrapping foreign errors at the
// boundary.
type Kind int

const (
	Validation Kind = iota
	Authentication
	Authorization
	NotFound
	RateLimit
	Database
	App
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "ValidationError"
	case Authentication:
		return "AuthenticationError"
	case Authorization:
		return "AuthorizationError"
	case NotFound:
		return "NotFoundError"
	case RateLimit:
		return "RateLimitError"
	case Database:
		return "DatabaseError"
	case App:
		return "AppError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete typed error carried through the pipeline. Every
// variant embeds it; Kind-specific data lives in the optional fields below,
// populated only by the matching constructor.
type Error struct {
	Kind      Kind
	Message   string
	Timestamp time.Time
	RequestID string
	Stack     string

	// Validation
	Field string
	Value any

	// NotFound
	Resource string

	// RateLimit
	RetryAfterSeconds int

	// Database
	Operation string
	Query     string

	// App
	StatusCode   int
	IsOperational bool

	// Unknown
	Cause error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

func captureStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewValidation builds a Validation-kind error. isOperational is always true
// for this variant per spec §3.
func NewValidation(field string, value any, message string) *Error {
	return &Error{Kind: Validation, Field: field, Value: value, Message: message,
		Timestamp: time.Now(), Stack: captureStack()}
}

// NewAuthentication builds an Authentication-kind error with a generic
// message; callers must never leak *why* authentication failed into Message.
func NewAuthentication(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return &Error{Kind: Authentication, Message: message, Timestamp: time.Now(), Stack: captureStack()}
}

// NewAuthorization builds an Authorization-kind error: the user is known but
// the action is denied.
func NewAuthorization(message string) *Error {
	if message == "" {
		message = "action not permitted"
	}
	return &Error{Kind: Authorization, Message: message, Timestamp: time.Now(), Stack: captureStack()}
}

// NewNotFound builds a NotFound-kind error with the spec's fixed message
// shape "{resource} not found".
func NewNotFound(resource string) *Error {
	return &Error{Kind: NotFound, Resource: resource, Message: resource + " not found",
		Timestamp: time.Now(), Stack: captureStack()}
}

// NewRateLimit builds a RateLimit-kind error; the error middleware is
// responsible for turning RetryAfterSeconds into a Retry-After header.
func NewRateLimit(retryAfterSeconds int) *Error {
	return &Error{Kind: RateLimit, RetryAfterSeconds: retryAfterSeconds, Message: "rate limit exceeded",
		Timestamp: time.Now(), Stack: captureStack()}
}

// NewDatabase builds a Database-kind error. query is logged server-side only
// and never included in the client-facing response.
func NewDatabase(operation, query, message string) *Error {
	return &Error{Kind: Database, Operation: operation, Query: query, Message: message,
		Timestamp: time.Now(), Stack: captureStack()}
}

// NewApp builds an arbitrary operational App-kind error with an explicit
// HTTP status.
func NewApp(statusCode int, message string) *Error {
	return &Error{Kind: App, StatusCode: statusCode, IsOperational: true, Message: message,
		Timestamp: time.Now(), Stack: captureStack()}
}

// NewDefect builds an App{operational:false} error signalling a programming
// defect rather than an expected runtime condition. It is always sanitised
// to 500 outward regardless of explicit status.
func NewDefect(message string) *Error {
	return &Error{Kind: App, StatusCode: http.StatusInternalServerError, IsOperational: false,
		Message: message, Timestamp: time.Now(), Stack: captureStack()}
}

// Wrap normalises an arbitrary error into a typed *Error. If err is already
// *Error it is returned unchanged; OS errors are mapped per spec §4.E's
// OS-mapped row; anything else becomes an Unknown-kind defect wrapping the
// cause.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	if e := fromOSError(err); e != nil {
		return e
	}
	return &Error{Kind: Unknown, Message: err.Error(), Cause: err, IsOperational: false,
		Timestamp: time.Now(), Stack: captureStack()}
}

func (e *Error) operational() bool {
	switch e.Kind {
	case App:
		return e.IsOperational
	case Unknown:
		return false
	default:
		return true
	}
}

// HTTPStatus maps the error's kind to its default HTTP status per the
// taxonomy table in spec §4.E.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case Validation:
		return http.StatusBadRequest
	case Authentication:
		return http.StatusUnauthorized
	case Authorization:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case RateLimit:
		return http.StatusTooManyRequests
	case Database:
		return http.StatusInternalServerError
	case App:
		if e.StatusCode != 0 {
			return e.StatusCode
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func withRequestID(e *Error, requestID string) *Error {
	clone := *e
	clone.RequestID = requestID
	return &clone
}

var _ fmt.Stringer = Kind(0)
