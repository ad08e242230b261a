package pipeline

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/grenas405/genesis/internal/reqctx"
)

// Router matches method + URL pattern and dispatches through a composed
// middleware chain. Route-specific middleware is appended after global
// middleware registered via Use, per spec §4.C.
type Router struct {
	raw     *httprouter.Router
	global  []Middleware
	onError func(c *reqctx.Context, err error)
	now     func() time.Time
}

// NewRouter constructs a Router with sensible defaults: a 404 responder that
// matches the spec's standard JSON error body, and a no-op error handler
// that callers are expected to override with the error subsystem.
func NewRouter() *Router {
	r := &Router{raw: httprouter.New(), now: time.Now}
	r.raw.HandleMethodNotAllowed = true
	r.raw.NotFound = http.HandlerFunc(r.notFound)
	return r
}

// Use registers global middleware, applied to every route in the order
// added, before any route-specific middleware.
func (r *Router) Use(mw ...Middleware) { r.global = append(r.global, mw...) }

// SetErrorHandler installs the sink invoked whenever a composed handler chain
// returns a non-nil error, whether or not a response was already staged.
func (r *Router) SetErrorHandler(h func(c *reqctx.Context, err error)) { r.onError = h }

// Handle registers a route for method+pattern with optional route-specific
// middleware, composed as global ⧺ route-specific ⧺ handler.
func (r *Router) Handle(method, pattern string, h Handler, mws ...Middleware) {
	chain := make([]Middleware, 0, len(r.global)+len(mws))
	chain = append(chain, r.global...)
	chain = append(chain, mws...)
	composed := Compose(chain, h)

	r.raw.Handle(method, pattern, func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		params := make(reqctx.Params, len(ps))
		for _, p := range ps {
			params[p.Key] = p.Value
		}
		c := reqctx.New(req, params)
		defer reqctx.Release(c)

		err := composed(c)
		if err != nil && r.onError != nil {
			r.onError(c, err)
		}
		writeResponse(w, c.Response.Finalize(nil))
	})
}

// convenience verb registrations, mirroring the spec's "convenience methods
// for each HTTP verb" requirement.
func (r *Router) GET(p string, h Handler, mws ...Middleware)    { r.Handle(http.MethodGet, p, h, mws...) }
func (r *Router) POST(p string, h Handler, mws ...Middleware)   { r.Handle(http.MethodPost, p, h, mws...) }
func (r *Router) PUT(p string, h Handler, mws ...Middleware)    { r.Handle(http.MethodPut, p, h, mws...) }
func (r *Router) PATCH(p string, h Handler, mws ...Middleware)  { r.Handle(http.MethodPatch, p, h, mws...) }
func (r *Router) DELETE(p string, h Handler, mws ...Middleware) { r.Handle(http.MethodDelete, p, h, mws...) }
func (r *Router) HEAD(p string, h Handler, mws ...Middleware)   { r.Handle(http.MethodHead, p, h, mws...) }
func (r *Router) OPTIONS(p string, h Handler, mws ...Middleware) {
	r.Handle(http.MethodOptions, p, h, mws...)
}

// ServeHTTP implements http.Handler by delegating to the underlying router.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) { r.raw.ServeHTTP(w, req) }

// notFound responds with the spec's standard JSON 404 error body. No
// middleware runs for an unmatched route, so requestId is copied from the
// inbound X-Request-ID header and is empty when the client sent none; no id
// is generated here.
func (r *Router) notFound(w http.ResponseWriter, req *http.Request) {
	body, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"type":      "NotFound",
			"message":   "no route matches " + req.Method + " " + req.URL.Path,
			"timestamp": r.now().UTC().Format(time.RFC3339),
			"requestId": req.Header.Get("X-Request-ID"),
		},
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(body)
}

func writeResponse(w http.ResponseWriter, resp *reqctx.Response) {
	hdr := w.Header()
	for k, vv := range resp.Headers {
		for _, v := range vv {
			hdr.Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if resp.Stream != nil {
		buf := make([]byte, 32*1024)
		for {
			n, err := resp.Stream.Read(buf)
			if n > 0 {
				_, _ = w.Write(buf[:n])
			}
			if err != nil {
				break
			}
		}
		return
	}
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}
