package pipeline

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/reqctx"
)

func TestRouterMatchesParamsAndHandler(t *testing.T) {
	r := NewRouter()
	r.GET("/users/:id", func(c *reqctx.Context) error {
		c.Response.Commit(reqctx.CommitFields{Status: http.StatusOK, Body: []byte(c.Param("id"))})
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestRouterNotFoundBody(t *testing.T) {
	r := NewRouter()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"NotFound"`)
}

func TestRouterGlobalThenRouteMiddlewareOrder(t *testing.T) {
	var log []string
	r := NewRouter()
	r.Use(trace("global", &log))
	r.GET("/ping", func(c *reqctx.Context) error {
		log = append(log, "handler")
		return nil
	}, trace("route", &log))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, []string{"global-in", "route-in", "handler", "route-out", "global-out"}, log)
}

func TestRouterPanicRecoversToJSON500Body(t *testing.T) {
	r := NewRouter()
	errHandler := apperr.NewHandler(nil, apperr.NewAnalytics(), apperr.Config{})
	t.Cleanup(func() { _ = errHandler.Close() })
	r.SetErrorHandler(errHandler.Handle)

	r.GET("/boom", func(c *reqctx.Context) error {
		panic(ErrNextCalledTwice{Middleware: 0})
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "AppError", errObj["type"])
	assert.NotEmpty(t, errObj["message"])
}
