package apperr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grenas405/genesis/internal/reqctx"
)

func newTestContext(t *testing.T, method, path string) *reqctx.Context {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })
	return c
}

func TestHandlerMapsValidationErrorTo400(t *testing.T) {
	h := NewHandler(nil, NewAnalytics(), Config{})
	c := newTestContext(t, http.MethodPost, "/widgets")

	h.Handle(c, NewValidation("name", "", "required"))

	assert.Equal(t, http.StatusBadRequest, c.Response.Status)
	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "ValidationError", errObj["type"])

	validation := body["validation"].(map[string]any)
	assert.Equal(t, "name", validation["field"])
	assert.Equal(t, "", validation["value"])
	assert.Nil(t, body["retryAfter"])
}

func TestHandlerSanitizesServerErrorsInProduction(t *testing.T) {
	h := NewHandler(nil, NewAnalytics(), Config{SanitizeServerErrors: true})
	c := newTestContext(t, http.MethodGet, "/boom")

	h.Handle(c, NewDefect("leaked internal detail"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, genericServerMessage, errObj["message"])
}

func TestHandlerCustomMessageOverridesDefault(t *testing.T) {
	h := NewHandler(nil, NewAnalytics(), Config{CustomMessages: map[Kind]string{NotFound: "nothing here"}})
	c := newTestContext(t, http.MethodGet, "/missing")

	h.Handle(c, NewNotFound("widget"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "nothing here", errObj["message"])
}

func TestHandlerSetsRetryAfterHeaderForRateLimit(t *testing.T) {
	h := NewHandler(nil, NewAnalytics(), Config{})
	c := newTestContext(t, http.MethodGet, "/limited")

	h.Handle(c, NewRateLimit(42))

	assert.Equal(t, "42", c.Response.Headers.Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	assert.Equal(t, float64(42), body["retryAfter"])
	assert.Nil(t, body["validation"])
}

func TestHandlerRecordsToAnalytics(t *testing.T) {
	analytics := NewAnalytics()
	h := NewHandler(nil, analytics, Config{})
	c := newTestContext(t, http.MethodGet, "/boom")

	h.Handle(c, NewDatabase("insert", "insert into x", "write failed"))

	assert.Equal(t, 1, analytics.ByType()[Database.String()])
}

func TestHandlerAppendsLogFileLine(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "nested", "requests.log")

	h := NewHandler(nil, NewAnalytics(), Config{LogFilePath: logPath})
	c := newTestContext(t, http.MethodGet, "/boom")
	h.Handle(c, NewApp(http.StatusBadGateway, "upstream failed"))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "upstream failed")
}

func TestHandlerForwardsServerErrorsToReporter(t *testing.T) {
	reported := make(chan *Error, 1)
	h := NewHandler(nil, NewAnalytics(), Config{Reporter: func(e *Error) { reported <- e }})
	c := newTestContext(t, http.MethodGet, "/boom")

	h.Handle(c, NewDefect("reporter should see this"))

	select {
	case e := <-reported:
		assert.Equal(t, "reporter should see this", e.Message)
	case <-time.After(time.Second):
		t.Fatal("reporter was never invoked")
	}
}
