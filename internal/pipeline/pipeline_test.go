package pipeline

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/reqctx"
)

func trace(label string, log *[]string) Middleware {
	return func(c *reqctx.Context, next Next) error {
		*log = append(*log, label+"-in")
		err := next(c)
		*log = append(*log, label+"-out")
		return err
	}
}

func TestOnionOrder(t *testing.T) {
	var log []string
	final := func(c *reqctx.Context) error {
		log = append(log, "handler")
		return nil
	}
	h := Compose([]Middleware{trace("A", &log), trace("B", &log), trace("C", &log)}, final)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := reqctx.New(req, nil)
	defer reqctx.Release(c)

	err := h(c)
	assert.NoError(t, err)
	assert.Equal(t, []string{"A-in", "B-in", "C-in", "handler", "C-out", "B-out", "A-out"}, log)
}

func TestSingleNextLawDoubleCallRecoversToDefectError(t *testing.T) {
	bad := func(c *reqctx.Context, next Next) error {
		_ = next(c)
		_ = next(c)
		return nil
	}
	h := Compose([]Middleware{bad}, func(c *reqctx.Context) error { return nil })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := reqctx.New(req, nil)
	defer reqctx.Release(c)

	var err error
	assert.NotPanics(t, func() { err = h(c) })
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.App, appErr.Kind)
	assert.False(t, appErr.IsOperational)
}

func TestCompositionPanicRecoversToDefectError(t *testing.T) {
	explodes := func(c *reqctx.Context) error {
		panic("boom")
	}
	h := Compose(nil, explodes)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := reqctx.New(req, nil)
	defer reqctx.Release(c)

	var err error
	assert.NotPanics(t, func() { err = h(c) })
	require.Error(t, err)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.App, appErr.Kind)
}

func TestComposeWithNoMiddlewareCallsFinal(t *testing.T) {
	called := false
	h := Compose(nil, func(c *reqctx.Context) error { called = true; return nil })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := reqctx.New(req, nil)
	defer reqctx.Release(c)
	assert.NoError(t, h(c))
	assert.True(t, called)
}
