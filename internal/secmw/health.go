package secmw

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/reqctx"
)

// CheckResult is what a single pluggable health check reports.
type CheckResult struct {
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Detail    string `json:"detail,omitempty"`
}

// Check is a pluggable liveness/readiness probe run on every health request.
type Check func() CheckResult

// HealthConfig controls the health-check middleware.
type HealthConfig struct {
	// Path is the intercepted request path; defaults to "/health".
	Path string
	// Checks maps a check name to the probe that produces its result.
	Checks map[string]Check
	// StartedAt is used to compute uptimeSeconds; defaults to time.Now() at
	// Health() construction time.
	StartedAt time.Time
}

// DevelopmentHealth returns a preset with no checks: the process responding
// at all is considered healthy.
func DevelopmentHealth() HealthConfig { return HealthConfig{} }

// ProductionHealth returns a preset wired with the given checks, intended
// for real dependency probes (database, cache, downstream services).
func ProductionHealth(checks map[string]Check) HealthConfig {
	return HealthConfig{Checks: checks}
}

// Health intercepts cfg.Path (default "/health") and responds with the
// aggregate health document described in spec §4.G, short-circuiting the
// rest of the chain. Any other path passes through untouched.
func Health(cfg HealthConfig) pipeline.Middleware {
	path := cfg.Path
	if path == "" {
		path = "/health"
	}
	started := cfg.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	return func(c *reqctx.Context, next pipeline.Next) error {
		if c.URL().Path != path {
			return next(c)
		}

		results := make(map[string]CheckResult, len(cfg.Checks))
		failures := 0
		for name, check := range cfg.Checks {
			start := time.Now()
			res := check()
			if res.LatencyMs == 0 {
				res.LatencyMs = time.Since(start).Milliseconds()
			}
			if !res.OK {
				failures++
			}
			results[name] = res
		}

		status := "healthy"
		switch {
		case len(cfg.Checks) > 0 && failures == len(cfg.Checks):
			status = "unhealthy"
		case failures > 0:
			status = "degraded"
		}

		body, _ := json.Marshal(map[string]any{
			"status":        status,
			"uptimeSeconds": int64(time.Since(started).Seconds()),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"checks":        results,
		})

		httpStatus := http.StatusOK
		if status == "unhealthy" {
			httpStatus = http.StatusServiceUnavailable
		}
		c.Response.Headers.Set("Content-Type", "application/json; charset=utf-8")
		c.Response.Commit(reqctx.CommitFields{Status: httpStatus, Body: body})
		return nil
	}
}
