// Package staticfiles implements the Static File Handler (spec §4.K):
// serving files from a root directory with a path-traversal guard and
// dev/prod caching presets.
package staticfiles

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
	"github.com/grenas405/genesis/security"
)

// CachePreset selects the Cache-Control strategy.
type CachePreset int

const (
	// Development disables caching: every request revalidates.
	Development CachePreset = iota
	// Production serves long-lived, immutable, content-hash-keyed caching.
	Production
)

// Config controls the static file handler.
type Config struct {
	// Root is the directory files are resolved relative to.
	Root string
	// Prefix is the URL path prefix stripped before resolving against Root
	// (e.g. "/static/"). Empty means no stripping.
	Prefix string
	// Cache selects the Cache-Control strategy.
	Cache CachePreset
}

// Handler serves files out of Config.Root as a pipeline.Handler, rejecting
// any resolved path that escapes Root.
func Handler(cfg Config) pipeline.Handler {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		root = cfg.Root
	}

	return func(c *reqctx.Context) error {
		reqPath := security.SanitizePath(c.URL().Path)
		if reqPath == "" {
			c.Response.Commit(reqctx.CommitFields{Status: http.StatusBadRequest})
			return nil
		}
		reqPath = strings.TrimPrefix(reqPath, cfg.Prefix)
		reqPath = strings.TrimPrefix(reqPath, "/")

		full := filepath.Join(root, filepath.FromSlash(reqPath))
		// Traversal guard: the resolved path must stay within root after
		// Join. The check is lexical; symlinks inside root are not
		// resolved and are followed by ReadFile.
		rel, err := filepath.Rel(root, full)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			c.Response.Commit(reqctx.CommitFields{Status: http.StatusForbidden})
			return nil
		}

		data, err := os.ReadFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				c.Response.Commit(reqctx.CommitFields{Status: http.StatusNotFound})
				return nil
			}
			return err
		}

		ctype := mime.TypeByExtension(filepath.Ext(full))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		c.Response.Headers.Set("Content-Type", ctype)
		c.Response.Headers.Set("Content-Length", fmt.Sprintf("%d", len(data)))
		applyCacheHeaders(c, cfg.Cache, data)
		c.Response.Commit(reqctx.CommitFields{Status: http.StatusOK, Body: data})
		return nil
	}
}

func applyCacheHeaders(c *reqctx.Context, preset CachePreset, data []byte) {
	switch preset {
	case Production:
		c.Response.Headers.Set("Cache-Control", "public, max-age=31536000, immutable")
		c.Response.Headers.Set("ETag", contentHash(data))
	default:
		c.Response.Headers.Set("Cache-Control", "no-cache")
	}
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}
