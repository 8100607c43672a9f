package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
)

// Manager owns the lifecycle of the acquisition browser session. All access
// to the underlying connection is serialized through the manager so cookie
// exports and navigation never interleave.
type Manager struct {
	browserCfg config.Browser
	cookieFile string
	logger     *slog.Logger
	connector  Connector

	lockPath string
	lock     *flock.Flock

	onStateChange func(old, new State)

	mu          sync.Mutex
	state       State
	conn        Conn
	reattaches  int
	lastErr     error
	lastRefresh time.Time

	refreshCancel context.CancelFunc
	wg            sync.WaitGroup
}

// Option customizes manager construction.
type Option func(*Manager)

// WithConnector overrides the browser connector. Tests inject fakes here.
func WithConnector(c Connector) Option {
	return func(m *Manager) {
		if c != nil {
			m.connector = c
		}
	}
}

// WithStateChangeHook registers a callback invoked after every state
// transition. The callback runs outside the manager lock.
func WithStateChangeHook(hook func(old, new State)) Option {
	return func(m *Manager) {
		m.onStateChange = hook
	}
}

// NewManager constructs a session manager from configuration.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	lockPath := filepath.Join(cfg.Paths.ProfileDir, "session.lock")
	m := &Manager{
		browserCfg: cfg.Browser,
		cookieFile: cfg.Paths.CookieFile,
		logger:     logging.NewComponentLogger(logger, "browser"),
		connector:  NewCDPConnector(cfg.Browser.DebugURL),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start attaches to the browser endpoint and begins the cookie refresh loop.
// The endpoint is polled until it answers or the startup timeout elapses.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized && m.state != StateTerminated {
		m.mu.Unlock()
		return errors.New("session manager already started")
	}

	ok, err := m.lock.TryLock()
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("acquire profile lock: %w", err)
	}
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("profile lock %s is held by another process", m.lockPath)
	}

	m.setStateLocked(StateStarting)
	m.mu.Unlock()

	deadline := time.Now().Add(time.Duration(m.browserCfg.StartupTimeoutSeconds) * time.Second)
	var conn Conn
	for {
		conn, err = m.connector.Connect(ctx)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			m.mu.Lock()
			m.lastErr = err
			m.setStateLocked(StateDegraded)
			m.mu.Unlock()
			m.releaseLock()
			return services.Wrap(services.ErrSessionUnavailable, "browser", "start", "browser did not become reachable before timeout", err)
		}
		select {
		case <-ctx.Done():
			m.releaseLock()
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if m.browserCfg.NavigateURL != "" {
		if err := conn.Navigate(ctx, m.browserCfg.NavigateURL); err != nil {
			m.logger.Warn("warmup navigation failed", logging.Error(err))
		}
	}

	m.mu.Lock()
	m.conn = conn
	m.lastErr = nil
	m.setStateLocked(StateReady)
	m.mu.Unlock()

	if err := m.RefreshCookies(ctx); err != nil {
		m.logger.Warn("initial cookie export failed", logging.Error(err))
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m.refreshCancel = cancel
	m.wg.Add(1)
	go m.refreshLoop(loopCtx)

	m.logger.Info("session attached",
		logging.String("endpoint", m.browserCfg.DebugURL),
		logging.String("cookie_file", m.cookieFile))
	return nil
}

// Stop tears down the refresh loop and the browser connection. The browser
// process itself is left running; only the attachment is closed.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateTerminated || m.state == StateUninitialized {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateShuttingDown)
	m.mu.Unlock()

	if m.refreshCancel != nil {
		m.refreshCancel()
		m.refreshCancel = nil
	}
	m.wg.Wait()

	m.mu.Lock()
	if m.conn != nil {
		if err := m.conn.Close(); err != nil {
			m.logger.Warn("close browser connection", logging.Error(err))
		}
		m.conn = nil
	}
	m.setStateLocked(StateTerminated)
	m.mu.Unlock()

	m.releaseLock()
	m.logger.Info("session detached")
}

func (m *Manager) releaseLock() {
	if err := m.lock.Unlock(); err != nil {
		m.logger.Warn("release profile lock", logging.Error(err))
	}
}

// WithSession runs fn with exclusive access to the browser connection.
// A session failure triggers exactly one reattach attempt before the
// manager settles into Degraded.
func (m *Manager) WithSession(ctx context.Context, fn func(ctx context.Context, conn Conn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureConnLocked(ctx); err != nil {
		return err
	}

	err := fn(ctx, m.conn)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrSessionUnavailable) {
		return err
	}

	m.lastErr = err
	m.setStateLocked(StateDegraded)
	m.logger.Warn("session access failed, attempting reattach", logging.Error(err))

	if rerr := m.reattachLocked(ctx); rerr != nil {
		return err
	}
	return fn(ctx, m.conn)
}

// EnsureReady verifies the session is usable, reattaching once if needed.
func (m *Manager) EnsureReady(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureConnLocked(ctx)
}

func (m *Manager) ensureConnLocked(ctx context.Context) error {
	switch m.state {
	case StateReady:
		if m.conn != nil {
			return nil
		}
	case StateShuttingDown, StateTerminated:
		return services.Wrap(services.ErrSessionUnavailable, "browser", "session", "session manager stopped", nil)
	case StateUninitialized:
		return services.Wrap(services.ErrSessionUnavailable, "browser", "session", "session manager not started", nil)
	}
	return m.reattachLocked(ctx)
}

func (m *Manager) reattachLocked(ctx context.Context) error {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.setStateLocked(StateStarting)

	conn, err := m.connector.Connect(ctx)
	if err != nil {
		m.lastErr = err
		m.setStateLocked(StateDegraded)
		return services.Wrap(services.ErrSessionUnavailable, "browser", "reattach", "reattach to browser", err)
	}
	m.conn = conn
	m.reattaches++
	m.lastErr = nil
	m.setStateLocked(StateReady)
	m.logger.Info("session reattached", logging.Int("reattaches", m.reattaches))
	return nil
}

// RefreshCookies exports the session cookies for the configured domains to
// the jar file.
func (m *Manager) RefreshCookies(ctx context.Context) error {
	err := m.WithSession(ctx, func(ctx context.Context, conn Conn) error {
		cookies, err := conn.Cookies(ctx)
		if err != nil {
			return err
		}
		filtered := FilterCookies(cookies, m.browserCfg.CookieDomains)
		if err := WriteCookieFile(m.cookieFile, filtered); err != nil {
			return services.Wrap(services.ErrSessionUnavailable, "browser", "refresh", "write cookie jar", err)
		}
		m.logger.Debug("cookie jar refreshed",
			logging.Int("cookies", len(filtered)),
			logging.String("path", m.cookieFile))
		return nil
	})
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.lastRefresh = time.Now()
	m.mu.Unlock()
	return nil
}

func (m *Manager) refreshLoop(ctx context.Context) {
	defer m.wg.Done()
	interval := time.Duration(m.browserCfg.RefreshInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RefreshCookies(ctx); err != nil {
				m.logger.Warn("periodic cookie refresh failed", logging.Error(err))
			}
		}
	}
}

// Health reports the current session state.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()
	detail := ""
	if m.lastErr != nil {
		detail = m.lastErr.Error()
	}
	return Health{
		State:       m.state,
		Ready:       m.state == StateReady,
		Detail:      detail,
		LastRefresh: m.lastRefresh,
		CookieFile:  m.cookieFile,
		Reattaches:  m.reattaches,
	}
}

// CookieFile returns the jar path handed to the fetcher.
func (m *Manager) CookieFile() string {
	return m.cookieFile
}

func (m *Manager) setStateLocked(next State) {
	old := m.state
	if old == next {
		return
	}
	m.state = next
	if m.onStateChange != nil {
		hook := m.onStateChange
		go hook(old, next)
	}
}
