// Command genesis is the kernel's entrypoint: it parses boot configuration
// from flags and environment, then hands control to kernel.Boot for the
// remainder of the process lifetime (spec §4.J, §6).
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/grenas405/genesis/internal/applog"
	"github.com/grenas405/genesis/internal/kernel"
)

func main() {
	var (
		port          = flag.Int("port", envInt("PORT", 3000), "HTTP server port")
		hostname      = flag.String("hostname", envOr("HOSTNAME", "0.0.0.0"), "HTTP server bind hostname")
		environment   = flag.String("environment", envOr("ENVIRONMENT", "development"), `"development" | "production" | "minimal"`)
		debug         = flag.Bool("debug", envOr("DEBUG", "") == "true", "enable debug-level logging")
		serverBin     = flag.String("server-bin", envOr("SERVER_BIN", defaultBinPath("httpserverd")), "path to the HTTP server child binary")
		heartbeatBin  = flag.String("heartbeat-bin", envOr("HEARTBEAT_BIN", defaultBinPath("heartbeatd")), "path to the heartbeat child binary")
		shutdownGrace = flag.Duration("shutdown-grace", 5*time.Second, "grace period before escalating SIGTERM to SIGKILL")
	)
	flag.Parse()

	level := applog.LevelInfo
	if *debug {
		level = applog.LevelDebug
	}
	logger := applog.New(level)

	cfg := kernel.Config{
		ServerPort:          *port,
		ServerHostname:      *hostname,
		Debug:               *debug,
		Environment:         *environment,
		ServerScriptPath:    *serverBin,
		HeartbeatScriptPath: *heartbeatBin,
		ShutdownGrace:       *shutdownGrace,
		Banner:              os.Stdout,
	}

	k := kernel.New(cfg, logger)
	os.Exit(k.Boot(context.Background()))
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

// defaultBinPath assumes the sibling binary was built alongside genesis in
// the same directory, the layout `go build -o <dir>/ ./cmd/...` produces.
func defaultBinPath(name string) string {
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	return filepath.Join(filepath.Dir(exe), name)
}
