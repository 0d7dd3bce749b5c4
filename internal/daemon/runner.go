// Package daemon runs the warpalarm daemon: one alarm scheduler, the worker
// thread that owns RPC-created alarms, and the JSON-RPC server in front of
// them.
package daemon

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/internal/server"
	"github.com/warpdl/warpalarm/pkg/alarm"
	"github.com/warpdl/warpalarm/pkg/logger"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// Addr is the TCP listen address. Empty means common.DefaultRPCAddr.
	Addr string

	// Secret is the JSON-RPC bearer token. Empty rejects every request.
	Secret string

	// Notifier names the notifier strategy, see alarm.NotifierByName.
	Notifier string

	// MaxEvents caps the number of live alarms. Zero means no cap.
	MaxEvents int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// Dependencies holds the external dependencies for the daemon runner.
// This enables dependency injection for testing.
type Dependencies struct {
	// ListenerFactory creates network listeners.
	// If nil, net.Listen is used.
	ListenerFactory func(network, address string) (net.Listener, error)

	// ShutdownFunc is called during shutdown before the components stop.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error

	// Logger receives daemon logs. If nil, logs are discarded.
	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config  *Config
	deps    *Dependencies
	running bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	addr    net.Addr
	sched   *alarm.Scheduler
}

// New creates a new daemon runner with the given configuration and dependencies.
// If config is nil, default values are used.
// If deps is nil, default dependencies (using net.Listen) are used.
func New(config *Config, deps *Dependencies) *Runner {
	return &Runner{
		config: applyConfigDefaults(config),
		deps:   applyDependencyDefaults(deps),
	}
}

func applyConfigDefaults(config *Config) *Config {
	var c Config
	if config != nil {
		c = *config
	}
	if c.Addr == "" {
		c.Addr = common.DefaultRPCAddr
	}
	return &c
}

func applyDependencyDefaults(deps *Dependencies) *Dependencies {
	var d Dependencies
	if deps != nil {
		d = *deps
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	if d.Logger == nil {
		d.Logger = logger.NewNopLogger()
	}
	return &d
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start builds the scheduler, the RPC worker thread and the server, then
// serves until the context is canceled or Shutdown is called. It stops the
// components in reverse order before returning.
// Returns ErrAlreadyRunning if the daemon is already started.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	l := r.deps.Logger

	notifier, err := alarm.NotifierByName(r.config.Notifier)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	// Create listener BEFORE setting running=true to avoid race condition
	listener, err := r.deps.ListenerFactory("tcp", r.config.Addr)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	sched := alarm.New(&alarm.Config{
		MaxEvents: r.config.MaxEvents,
		Notifier:  notifier,
		Logger:    l,
	})
	worker, err := server.StartWorker(sched, l)
	if err != nil {
		_ = listener.Close()
		_ = sched.Close()
		r.mu.Unlock()
		return err
	}
	srv := server.NewServer(l, r.config.Addr, &server.RPCConfig{
		Secret:    r.config.Secret,
		Version:   common.Version,
		Commit:    common.Commit,
		BuildType: common.BuildType,
	}, worker)
	srv.SetListener(listener)

	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.addr = listener.Addr()
	r.sched = sched
	r.running = true
	done := r.done
	r.mu.Unlock()

	if r.config.Secret == "" {
		l.Warning("daemon: no RPC secret set, every request will be rejected")
	}
	l.Info("daemon: serving alarms on %s", listener.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	_ = srv.Shutdown()
	worker.Stop()
	_ = sched.Close()
	l.Info("daemon: stopped")

	r.mu.Lock()
	r.running = false
	r.cancel()
	r.mu.Unlock()
	close(done)

	if serveErr != nil {
		return serveErr
	}
	return ctx.Err()
}

// Addr returns the address the daemon listens on, or nil when it is not
// running.
func (r *Runner) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	return r.addr
}

// Scheduler returns the daemon's scheduler, or nil when it is not running.
func (r *Runner) Scheduler() *alarm.Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	return r.sched
}

// Shutdown gracefully stops the daemon and waits for Start to finish its
// cleanup.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	if err := r.validateRunning(); err != nil {
		return err
	}

	if err := r.executeShutdownFunc(); err != nil {
		return err
	}

	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	cancel()
	<-done
	return nil
}

func (r *Runner) validateRunning() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotRunning
	}
	return nil
}

// executeShutdownFunc runs the shutdown function with timeout if configured.
func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}

	if r.config.ShutdownTimeout > 0 {
		return r.executeWithTimeout(r.deps.ShutdownFunc, r.config.ShutdownTimeout)
	}

	// The shutdown must proceed regardless of cleanup errors.
	_ = r.deps.ShutdownFunc()
	return nil
}

// executeWithTimeout runs a function with a timeout. On timeout the daemon
// is stopped without waiting for it.
func (r *Runner) executeWithTimeout(fn func() error, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		r.forceStop()
		return ErrShutdownTimeout
	}
}

func (r *Runner) forceStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
