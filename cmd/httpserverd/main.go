// Command httpserverd is the HTTP Server child process spawned by the
// kernel (spec §4.I): it composes the full middleware pipeline described by
// §4.A-§4.H and §4.K, binds {hostname, port}, and emits the SERVER_READY
// token once listening.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/grenas405/genesis/internal/apperr"
	"github.com/grenas405/genesis/internal/applog"
	"github.com/grenas405/genesis/internal/bodyparse"
	"github.com/grenas405/genesis/internal/httpserver"
	"github.com/grenas405/genesis/internal/perfmon"
	"github.com/grenas405/genesis/internal/pipeline"
	"github.com/grenas405/genesis/internal/remotesink"
	"github.com/grenas405/genesis/internal/secmw"
	"github.com/grenas405/genesis/internal/staticfiles"
)

func main() {
	port := envInt("PORT", 3000)
	hostname := envOr("HOSTNAME", "0.0.0.0")
	environment := envOr("ENVIRONMENT", "development")

	level := applog.LevelInfo
	if environment == "development" {
		level = applog.LevelDebug
	}
	logger := applog.New(level)

	monitor := perfmon.New()
	analytics := apperr.NewAnalytics()

	reporter := buildReporter(logger)

	var errCfg apperr.Config
	switch environment {
	case "production":
		errCfg = apperr.Production(reporter)
	case "minimal":
		errCfg = apperr.Minimal()
	default:
		errCfg = apperr.Development()
	}
	errHandler := apperr.NewHandler(logger, analytics, errCfg)
	defer errHandler.Close()

	router := pipeline.NewRouter()
	router.SetErrorHandler(errHandler.Handle)
	router.Use(
		secmw.RequestID(),
		secmw.Security(secmw.SecurityConfig{Production: environment == "production"}),
		secmw.CORS(secmw.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		}),
		secmw.Timing(),
		secmw.Health(secmw.DevelopmentHealth()),
		applog.RequestLogging(logger),
		perfmon.Middleware(monitor),
		bodyparse.Middleware(),
	)

	registerTodoRoutes(router)
	router.GET("/metrics", perfmon.Handler(monitor))
	router.GET("/static/*filepath", staticfiles.Handler(staticfiles.Config{
		Root:   envOr("STATIC_ROOT", "./public"),
		Prefix: "/static/",
		Cache:  staticCachePreset(environment),
	}))

	srv := httpserver.New(httpserver.Config{
		Hostname:     hostname,
		Port:         port,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		logger.Error("server exited with error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// buildReporter wires the error subsystem's best-effort remote-error
// forwarding (spec §4.E step 8) onto the Remote Log Sink when the
// environment names a collector; returns nil otherwise so Config.Reporter
// stays a no-op.
func buildReporter(logger *applog.Logger) func(*apperr.Error) {
	url := os.Getenv("ERROR_REPORTING_URL")
	if url == "" {
		return nil
	}
	sink := remotesink.New(remotesink.Destination{
		Name:   "error-reporting",
		URL:    url,
		APIKey: os.Getenv("ERROR_REPORTING_API_KEY"),
	})
	go func() { _ = sink.Serve(context.Background()) }()

	return func(e *apperr.Error) {
		sink.Enqueue(remotesink.Entry{
			Timestamp: e.Timestamp,
			Level:     "error",
			Message:   e.Error(),
			Fields: map[string]any{
				"type":      e.Kind.String(),
				"requestId": e.RequestID,
			},
		})
	}
}

func staticCachePreset(environment string) staticfiles.CachePreset {
	if environment == "production" {
		return staticfiles.Production
	}
	return staticfiles.Development
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
