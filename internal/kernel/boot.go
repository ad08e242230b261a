package kernel

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const (
	heartbeatID  = "heartbeat"
	httpServerID = "http-server"
)

// Boot implements spec §4.J's boot sequence: install signal handlers,
// render the startup banner, spawn the heartbeat and HTTP server children,
// await the server's readiness token, launch the REPL if stdin is a TTY
// (advertising SIGUSR1 otherwise), then block until a shutdown signal
// arrives. It returns the process exit code per spec §6 (0 graceful, 1
// fatal).
func (k *Kernel) Boot(ctx context.Context) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(sigCh)

	if k.cfg.Banner != nil {
		fmt.Fprintln(k.cfg.Banner, "genesis kernel booting")
	}

	supervisorDone := make(chan error, 1)
	go func() { supervisorDone <- k.supervisor.Serve(ctx) }()

	if _, err := k.Spawn(ctx, heartbeatID, "heartbeat", k.cfg.HeartbeatScriptPath, SpawnOptions{
		AutoRestart: true,
	}); err != nil {
		k.logError("failed to spawn heartbeat", map[string]any{"error": err.Error()})
		return 1
	}

	server, err := k.Spawn(ctx, httpServerID, "http-server", k.cfg.ServerScriptPath, SpawnOptions{
		AutoRestart: true,
		Port:        k.cfg.ServerPort,
		Env:         []string{fmt.Sprintf("PORT=%d", k.cfg.ServerPort), fmt.Sprintf("HOSTNAME=%s", k.cfg.ServerHostname)},
	})
	if err != nil {
		k.logError("failed to spawn http server", map[string]any{"error": err.Error()})
		return 1
	}

	readyCtx, readyCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readyCancel()
	if err := server.Wait(readyCtx); err != nil {
		k.logError("http server did not become ready in time", map[string]any{"error": err.Error()})
	} else {
		k.logInfo("ready", nil)
	}

	if isTTY(os.Stdin) && k.cfg.ReplLauncher != nil {
		k.cfg.ReplLauncher(k.replInbox)
	} else {
		k.logInfo("headless: send SIGUSR1 to re-enter the REPL", nil)
	}

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				if k.cfg.ReplLauncher != nil && isTTY(os.Stdin) {
					select {
					case k.replInbox <- ReplReopen:
					default:
					}
					k.cfg.ReplLauncher(k.replInbox)
				} else {
					k.logWarn("SIGUSR1 ignored: stdin is not a TTY", nil)
				}
			default:
				k.logInfo("shutdown signal received", map[string]any{"signal": sig.String()})
				k.Shutdown(context.Background())
				cancel()
				<-supervisorDone
				return 0
			}
		case <-ctx.Done():
			return 0
		}
	}
}

// Shutdown implements spec §4.J's shutdown algorithm: flip
// shutdownInProgress, SIGTERM every owned running process concurrently,
// and log completion once all have stopped (or the grace window elapses).
func (k *Kernel) Shutdown(ctx context.Context) {
	k.shutdownMu.Lock()
	if k.shutdownStarted {
		k.shutdownMu.Unlock()
		return
	}
	k.shutdownStarted = true
	k.shutdownMu.Unlock()

	k.mu.Lock()
	procs := make([]*ManagedProcess, 0, len(k.processes))
	for _, p := range k.processes {
		procs = append(procs, p)
	}
	k.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, k.cfg.ShutdownGrace)
	defer cancel()

	var wg sync.WaitGroup
	for _, p := range procs {
		p.mu.Lock()
		external := p.external
		p.mu.Unlock()
		if external {
			continue
		}
		wg.Add(1)
		go func(p *ManagedProcess) {
			defer wg.Done()
			_ = k.Kill(shutdownCtx, p.ID, syscall.SIGTERM)
		}(p)
	}
	wg.Wait()

	k.logInfo("all processes stopped", nil)
}
