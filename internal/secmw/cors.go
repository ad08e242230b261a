package secmw

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// CORSConfig controls cross-origin handling. AllowedOrigins == ["*"] is the
// development posture: the request Origin is echoed back (or "*" is used
// when Credentials is false). Any other value is treated as an explicit
// production allowlist; origins outside it are rejected by omitting the
// header entirely rather than by erroring.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	Credentials    bool
	MaxAgeSeconds  int
}

func (cfg CORSConfig) isWildcard() bool {
	return len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*"
}

func (cfg CORSConfig) allows(origin string) bool {
	if cfg.isWildcard() {
		return true
	}
	for _, o := range cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// CORS implements the spec §4.G cross-origin middleware: always adds
// Vary: Origin; short-circuits preflight OPTIONS requests with 204.
func CORS(cfg CORSConfig) pipeline.Middleware {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")

	return func(c *reqctx.Context, next pipeline.Next) error {
		h := c.Response.Headers
		h.Add("Vary", "Origin")

		origin := c.Request().Header.Get("Origin")
		if origin != "" && cfg.allows(origin) {
			if cfg.isWildcard() && !cfg.Credentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			if cfg.Credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if c.Request().Method == http.MethodOptions && c.Request().Header.Get("Access-Control-Request-Method") != "" {
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if cfg.MaxAgeSeconds > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAgeSeconds))
			}
			c.Response.Commit(reqctx.CommitFields{Status: http.StatusNoContent})
			return nil
		}

		return next(c)
	}
}
