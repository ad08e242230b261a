// Package kernel implements the process-supervision Kernel (spec §4.J): it
// spawns, monitors, and restarts the fleet of child worker processes (the
// HTTP server, the heartbeat sampler, and any additional registered
// scripts), takes over already-bound ports instead of fighting them, and
// reacts to shutdown/REPL-reentry signals.
package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/grenas405/genesis/internal/applog"
)

// Status is a ManagedProcess's lifecycle state.
type Status int

const (
	Starting Status = iota
	Running
	Stopped
	Failed
)

func (s Status) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// restartDelay is the fixed pause between a failed exit and the respawn
// attempt, per spec §4.J's exit-watcher algorithm and testable property 8.
const restartDelay = 2 * time.Second

// livenessPollInterval is how often external-monitor mode checks whether a
// process it does not own is still alive, per spec §4.J.
const livenessPollInterval = 5 * time.Second

// ErrProcessExists is returned by Spawn when id is already present in the
// process table.
var ErrProcessExists = errors.New("kernel: process id already registered")

// SpawnOptions configures one Spawn call.
type SpawnOptions struct {
	Argv        []string
	Env         []string
	Cwd         string
	Port        int // 0 means "no port binding, no takeover probe"
	AutoRestart bool
}

// ManagedProcess is the Kernel's record of one child, owned or externally
// monitored (spec §3).
type ManagedProcess struct {
	ID   string
	Name string

	mu           sync.Mutex
	argv         []string
	env          []string
	cwd          string
	cmd          *exec.Cmd
	pid          int
	startTime    time.Time
	restartCount int
	autoRestart  bool
	status       Status
	port         int
	external     bool // true when this record monitors a process the kernel did not spawn

	ready     chan struct{}
	readyOnce sync.Once

	// exited is recreated by startChild on every (re)spawn and closed by
	// ownedLifecycle the moment cmd.Wait() returns, so Kill can wait for
	// real exit without racing a second concurrent Wait() on the same
	// *os.Process (which os/exec explicitly does not support).
	exited chan struct{}
}

func (p *ManagedProcess) snapshot() ManagedProcessView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ManagedProcessView{
		ID: p.ID, Name: p.Name, PID: p.pid, StartTime: p.startTime,
		RestartCount: p.restartCount, AutoRestart: p.autoRestart,
		Status: p.status, Port: p.port, External: p.external,
	}
}

// ManagedProcessView is a read-only copy of a ManagedProcess's public
// fields, safe to hand to callers outside the kernel package.
type ManagedProcessView struct {
	ID           string
	Name         string
	PID          int
	StartTime    time.Time
	RestartCount int
	AutoRestart  bool
	Status       Status
	Port         int
	External     bool
}

func (p *ManagedProcess) markReady() {
	p.readyOnce.Do(func() { close(p.ready) })
}

// Wait blocks until the process's readiness token has been observed or ctx
// is cancelled.
func (p *ManagedProcess) Wait(ctx context.Context) error {
	select {
	case <-p.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config is the Kernel's boot configuration, mirroring spec §6's enumerated
// Kernel options.
type Config struct {
	ServerPort          int
	ServerHostname      string
	Debug               bool
	Environment         string // "development" | "production" | "minimal"
	ServerScriptPath    string
	HeartbeatScriptPath string

	// ShutdownGrace bounds how long Shutdown waits for owned children to
	// exit after SIGTERM before escalating to SIGKILL (spec §9 Open
	// Question, fixed at 5s per the spec's own recommendation).
	ShutdownGrace time.Duration

	// Interpreter generalizes spec §4.J step 3's "execute scriptPath under
	// the same runtime" to Go's compiled-binary model: each child is
	// normally its own sibling binary (cmd/httpserverd, cmd/heartbeatd),
	// so ScriptPath is executed directly when Interpreter is empty. Set
	// Interpreter (e.g. to "go") to instead run ScriptPath as an argument
	// to that interpreter, the shape a "go run ./cmd/httpserverd" dev
	// workflow needs.
	Interpreter string

	// Banner, when non-nil, receives the startup banner line. The actual
	// ANSI-styled banner renderer is an external collaborator out of
	// scope (spec §1); this is the contract-only seam it plugs into.
	Banner io.Writer

	// ReplLauncher, when non-nil, is invoked once stdin is a TTY at boot,
	// and again on every SIGUSR1. It is handed the Kernel's REPL inbox so
	// the (externally implemented) REPL can post ReplSignal values back.
	ReplLauncher func(inbox <-chan ReplSignal)
}

func (c *Config) applyDefaults() {
	if c.ServerHostname == "" {
		c.ServerHostname = "0.0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 5 * time.Second
	}
}

// ReplSignal is what the Kernel posts to its REPL inbox (spec §9's redesign
// of the signal-driven REPL: "the REPL as an external collaborator
// connected by a message channel").
type ReplSignal int

const (
	// ReplReopen requests that an already-running REPL regain focus, or
	// that a fresh one be launched if none is active.
	ReplReopen ReplSignal = iota
)

// Kernel is the process-supervision core. The zero value is not usable;
// construct with New.
type Kernel struct {
	cfg    Config
	logger *applog.Logger

	mu        sync.Mutex
	processes map[string]*ManagedProcess

	supervisor *suture.Supervisor
	tokens     map[string]suture.ServiceToken

	shutdownMu      sync.Mutex
	shutdownStarted bool

	replInbox chan ReplSignal

	// findPIDOnPort and isAlive are swapped out in tests; production
	// callers get the real OS-probing implementations (portprobe.go,
	// liveness_unix.go).
	findPIDOnPort func(port int) (int, bool)
	isAlive       func(pid int) bool
}

// New constructs a Kernel ready to Spawn/Kill processes and, once Boot is
// called, run the full boot/shutdown lifecycle.
func New(cfg Config, logger *applog.Logger) *Kernel {
	cfg.applyDefaults()
	return &Kernel{
		cfg:           cfg,
		logger:        logger,
		processes:     make(map[string]*ManagedProcess),
		supervisor:    suture.NewSimple("kernel"),
		tokens:        make(map[string]suture.ServiceToken),
		replInbox:     make(chan ReplSignal, 1),
		findPIDOnPort: findPIDOnPortLsof,
		isAlive:       isAliveSignal0,
	}
}

func (k *Kernel) logInfo(msg string, fields map[string]any) {
	if k.logger != nil {
		k.logger.Info(msg, fields)
	}
}

func (k *Kernel) logWarn(msg string, fields map[string]any) {
	if k.logger != nil {
		k.logger.Warn(msg, fields)
	}
}

func (k *Kernel) logError(msg string, fields map[string]any) {
	if k.logger != nil {
		k.logger.Error(msg, fields)
	}
}

// Processes returns a snapshot of every registered process, keyed by id.
func (k *Kernel) Processes() map[string]ManagedProcessView {
	k.mu.Lock()
	procs := make([]*ManagedProcess, 0, len(k.processes))
	for _, p := range k.processes {
		procs = append(procs, p)
	}
	k.mu.Unlock()

	out := make(map[string]ManagedProcessView, len(procs))
	for _, p := range procs {
		out[p.ID] = p.snapshot()
	}
	return out
}

// Get returns the named process's current view, if registered.
func (k *Kernel) Get(id string) (ManagedProcessView, bool) {
	k.mu.Lock()
	p, ok := k.processes[id]
	k.mu.Unlock()
	if !ok {
		return ManagedProcessView{}, false
	}
	return p.snapshot(), true
}

func (k *Kernel) shuttingDown() bool {
	k.shutdownMu.Lock()
	defer k.shutdownMu.Unlock()
	return k.shutdownStarted
}

// serviceWrapper adapts one ManagedProcess's lifecycle loop to
// suture.Service, per the cartographus Start/Stop-to-Serve translation
// pattern: Serve blocks, owning the spawn/monitor/restart loop for this id
// until ctx is cancelled or the process is permanently stopped.
type serviceWrapper struct {
	k    *Kernel
	id   string
	opts SpawnOptions
	name string
	path string
}

func (s *serviceWrapper) String() string { return fmt.Sprintf("process:%s", s.id) }

func (s *serviceWrapper) Serve(ctx context.Context) error {
	return s.k.runProcessLifecycle(ctx, s.id, s.name, s.path, s.opts)
}
