package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"tubescribe/internal/api"
	"tubescribe/internal/batch"
	"tubescribe/internal/browser"
	"tubescribe/internal/config"
	"tubescribe/internal/history"
	"tubescribe/internal/logging"
	"tubescribe/internal/notifications"
	"tubescribe/internal/sweeper"
	"tubescribe/internal/transcriber"
)

// SessionManager is the browser session surface the daemon depends on.
type SessionManager interface {
	Start(ctx context.Context) error
	Stop()
	Health() browser.Health
}

// BatchProcessor runs a transcription batch to completion.
type BatchProcessor interface {
	Process(ctx context.Context, refs []string) (*batch.Result, error)
}

// Deps carries the daemon's collaborators.
type Deps struct {
	Session     SessionManager
	Processor   BatchProcessor
	Transcriber transcriber.Transcriber
	History     *history.Store
	Sweeper     *sweeper.Sweeper
	Notifier    notifications.Service
}

// Daemon coordinates the background services and the HTTP API.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	started time.Time
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Session == nil || deps.Processor == nil {
		return nil, errors.New("daemon requires config, session manager, and batch processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "tubescribed.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		deps:     deps,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, attaches the browser session, and brings
// up the HTTP server and sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another tubescribe daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.deps.Session.Start(runCtx); err != nil {
		// Degraded session is survivable: requests fail with a session error
		// until the browser comes back. A second daemon on the same profile
		// is not.
		d.logger.Warn("browser session not ready at startup", logging.Error(err))
		if notifyErr := d.deps.Notifier.NotifySessionDegraded(runCtx, err.Error()); notifyErr != nil {
			d.logger.Warn("session notification failed", logging.Error(notifyErr))
		}
	}

	if err := d.api.start(runCtx); err != nil {
		d.deps.Session.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	if d.deps.Sweeper != nil {
		go d.deps.Sweeper.Run(runCtx)
	}

	d.cancel = cancel
	d.started = time.Now()
	d.running.Store(true)
	d.logger.Info("tubescribe daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()))
	return nil
}

// Stop shuts down background services and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.deps.Session.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("tubescribe daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.deps.History != nil {
		return d.deps.History.Close()
	}
	return nil
}

// Addr returns the bound API address, empty until Start succeeds.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Health reports liveness for the unauthenticated endpoint.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	session := d.sessionStatus()
	transcriberName := "unconfigured"
	transcriberReady := false
	if d.deps.Transcriber != nil {
		transcriberName = d.deps.Transcriber.Name()
		transcriberReady = d.deps.Transcriber.HealthCheck(ctx) == nil
	}

	ready := d.running.Load() && session.Ready && transcriberReady
	status := "ok"
	if !ready {
		status = "degraded"
	}
	return api.HealthResponse{
		Status:      status,
		Session:     session,
		Transcriber: transcriberName,
		Ready:       ready,
	}
}

// Status reports detailed runtime state for authorized clients.
func (d *Daemon) Status(ctx context.Context) api.StatusResponse {
	resp := api.StatusResponse{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		Session:    d.sessionStatus(),
		BatchLimit: d.cfg.Batch.MaxSize,
		Workers:    d.cfg.Batch.Workers,
	}
	if d.running.Load() {
		resp.UptimeSeconds = int64(time.Since(d.started).Seconds())
	}
	if d.deps.Transcriber != nil {
		resp.Transcriber = d.deps.Transcriber.Name()
	}
	if d.deps.History != nil {
		resp.HistoryPath = d.deps.History.Path()
	}
	return resp
}

func (d *Daemon) sessionStatus() api.SessionStatus {
	health := d.deps.Session.Health()
	return api.SessionStatus{
		State:       string(health.State),
		Ready:       health.Ready,
		Detail:      health.Detail,
		LastRefresh: health.LastRefresh,
		Reattaches:  health.Reattaches,
	}
}
