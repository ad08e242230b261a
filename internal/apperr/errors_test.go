package apperr

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMappingTable(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{NewValidation("email", "x", "invalid"), http.StatusBadRequest},
		{NewAuthentication(""), http.StatusUnauthorized},
		{NewAuthorization(""), http.StatusForbidden},
		{NewNotFound("user"), http.StatusNotFound},
		{NewRateLimit(30), http.StatusTooManyRequests},
		{NewDatabase("select", "select 1", "db failure"), http.StatusInternalServerError},
		{NewApp(http.StatusTeapot, "teapot"), http.StatusTeapot},
		{NewDefect("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Kind.String())
	}
}

func TestWrapPassesThroughTypedError(t *testing.T) {
	original := NewNotFound("widget")
	assert.Same(t, original, Wrap(original))
}

func TestWrapMapsOSNotExist(t *testing.T) {
	_, statErr := os.Stat("/does/not/exist/genesis-test")
	e := Wrap(statErr)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus())
}

func TestWrapMapsContextDeadlineExceeded(t *testing.T) {
	e := Wrap(context.DeadlineExceeded)
	assert.Equal(t, http.StatusRequestTimeout, e.HTTPStatus())
}

func TestWrapUnknownDefaultsTo500(t *testing.T) {
	e := Wrap(errors.New("whatever"))
	assert.Equal(t, Unknown, e.Kind)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
	assert.False(t, e.operational())
}

func TestNewDefectAlwaysNonOperational(t *testing.T) {
	e := NewDefect("panic recovered")
	assert.False(t, e.operational())
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
}
