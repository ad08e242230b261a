package secmw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grenas405/genesis/internal/reqctx"
)

func newCtx(t *testing.T, method, path string) *reqctx.Context {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })
	return c
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/x")
	err := RequestID()(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)

	id, ok := c.Get(RequestIDStateKey)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, c.Response.Headers.Get(RequestIDHeader))
}

func TestRequestIDEchoesInbound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "caller-supplied")
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })

	err := RequestID()(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "caller-supplied", c.Response.Headers.Get(RequestIDHeader))
}

func TestTimingSetsResponseTimeHeader(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/x")
	err := Timing()(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)
	assert.Regexp(t, `^\d+ms$`, c.Response.Headers.Get("X-Response-Time"))
}

func TestSecurityHeadersSetAlways(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/x")
	err := Security(SecurityConfig{})(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)

	h := c.Response.Headers
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}

func TestSecurityHeadersHSTSOnlyInProduction(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/x")
	err := Security(SecurityConfig{Production: true})(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)
	assert.Contains(t, c.Response.Headers.Get("Strict-Transport-Security"), "max-age=31536000")
}

func TestCORSWildcardUsesStarWhenCredentialsOff(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://example.com")
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })

	err := CORS(CORSConfig{AllowedOrigins: []string{"*"}})(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "*", c.Response.Headers.Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsDisallowedOriginInProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })

	err := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}})(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, c.Response.Headers.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	c := reqctx.New(req, reqctx.Params{})
	t.Cleanup(func() { reqctx.Release(c) })

	called := false
	err := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example.com"}, AllowedMethods: []string{"GET", "POST"}})(c,
		func(c *reqctx.Context) error { called = true; return nil })
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, c.Response.Status)
	assert.Equal(t, "GET, POST", c.Response.Headers.Get("Access-Control-Allow-Methods"))
}

func TestHealthReportsHealthyWithNoChecks(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/health")
	err := Health(DevelopmentHealth())(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthReportsUnhealthyWhenAllChecksFail(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/health")
	cfg := ProductionHealth(map[string]Check{
		"db": func() CheckResult { return CheckResult{OK: false, Detail: "connection refused"} },
	})
	err := Health(cfg)(c, func(c *reqctx.Context) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, c.Response.Status)
	var body map[string]any
	require.NoError(t, json.Unmarshal(c.Response.Body, &body))
	assert.Equal(t, "unhealthy", body["status"])
}

func TestHealthPassesThroughOtherPaths(t *testing.T) {
	c := newCtx(t, http.MethodGet, "/other")
	called := false
	err := Health(DevelopmentHealth())(c, func(c *reqctx.Context) error { called = true; return nil })
	require.NoError(t, err)
	assert.True(t, called)
}
