package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
	"tubescribe/internal/services"
	"tubescribe/internal/testsupport"
)

type fakeConn struct {
	mu        sync.Mutex
	cookies   []Cookie
	cookieErr error
	navErr    error
	closed    bool
	navs      []string
}

func (c *fakeConn) Navigate(_ context.Context, url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.navs = append(c.navs, url)
	return c.navErr
}

func (c *fakeConn) Cookies(context.Context) ([]Cookie, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cookieErr != nil {
		return nil, c.cookieErr
	}
	return c.cookies, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeConnector struct {
	mu       sync.Mutex
	conns    []*fakeConn
	failures int
	dials    int
}

func (f *fakeConnector) Connect(context.Context) (Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.failures > 0 {
		f.failures--
		return nil, services.Wrap(services.ErrSessionUnavailable, "browser", "connect", "refused", errors.New("connection refused"))
	}
	conn := &fakeConn{cookies: []Cookie{{Domain: ".youtube.com", Name: "SID", Value: "abc"}}}
	f.conns = append(f.conns, conn)
	return conn, nil
}

func (f *fakeConnector) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

func newTestManager(t *testing.T, connector Connector) (*Manager, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Browser.StartupTimeoutSeconds = 2
	cfg.Browser.RefreshInterval = 3600
	m := NewManager(cfg, logging.NewNop(), WithConnector(connector))
	return m, cfg
}

func TestStartAttachesAndExportsCookies(t *testing.T) {
	connector := &fakeConnector{}
	m, cfg := newTestManager(t, connector)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	health := m.Health()
	if !health.Ready || health.State != StateReady {
		t.Fatalf("expected ready state, got %+v", health)
	}

	data, err := os.ReadFile(cfg.Paths.CookieFile)
	if err != nil {
		t.Fatalf("cookie jar not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "# Netscape HTTP Cookie File") {
		t.Fatalf("jar missing netscape header: %q", data)
	}
	if !strings.Contains(string(data), "SID\tabc") {
		t.Fatalf("jar missing cookie row: %q", data)
	}
}

func TestStartRetriesUntilEndpointAnswers(t *testing.T) {
	connector := &fakeConnector{failures: 1}
	m, _ := newTestManager(t, connector)

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start should survive one refused dial: %v", err)
	}
	defer m.Stop()

	if connector.dialCount() != 2 {
		t.Fatalf("expected 2 dial attempts, got %d", connector.dialCount())
	}
}

func TestStartTimesOutWhenEndpointNeverAnswers(t *testing.T) {
	connector := &fakeConnector{failures: 1 << 20}
	m, _ := newTestManager(t, connector)

	err := m.Start(context.Background())
	if !errors.Is(err, services.ErrSessionUnavailable) {
		t.Fatalf("expected session unavailable, got %v", err)
	}
	if m.Health().State != StateDegraded {
		t.Fatalf("expected degraded state, got %s", m.Health().State)
	}
}

func TestWithSessionReattachesOnce(t *testing.T) {
	connector := &fakeConnector{}
	m, _ := newTestManager(t, connector)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	first := connector.conns[0]
	first.cookieErr = services.Wrap(services.ErrSessionUnavailable, "browser", "cookies", "tab crashed", errors.New("ws closed"))

	err := m.WithSession(context.Background(), func(ctx context.Context, conn Conn) error {
		_, err := conn.Cookies(ctx)
		return err
	})
	if err != nil {
		t.Fatalf("expected reattach to recover, got %v", err)
	}
	if !first.closed {
		t.Fatal("failed connection should be closed during reattach")
	}
	if m.Health().Reattaches != 1 {
		t.Fatalf("expected exactly one reattach, got %d", m.Health().Reattaches)
	}
}

func TestWithSessionDegradesWhenReattachFails(t *testing.T) {
	connector := &fakeConnector{}
	m, _ := newTestManager(t, connector)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	connector.mu.Lock()
	connector.failures = 1 << 20
	connector.conns[0].cookieErr = services.Wrap(services.ErrSessionUnavailable, "browser", "cookies", "tab crashed", errors.New("ws closed"))
	connector.mu.Unlock()

	err := m.WithSession(context.Background(), func(ctx context.Context, conn Conn) error {
		_, err := conn.Cookies(ctx)
		return err
	})
	if !errors.Is(err, services.ErrSessionUnavailable) {
		t.Fatalf("expected session unavailable, got %v", err)
	}
	if m.Health().State != StateDegraded {
		t.Fatalf("expected degraded, got %s", m.Health().State)
	}
}

func TestWithSessionPassesThroughNonSessionErrors(t *testing.T) {
	connector := &fakeConnector{}
	m, _ := newTestManager(t, connector)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	sentinel := errors.New("business failure")
	err := m.WithSession(context.Background(), func(context.Context, Conn) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected passthrough, got %v", err)
	}
	if connector.dialCount() != 1 {
		t.Fatal("non-session errors must not trigger reattach")
	}
}

func TestWithSessionSerializesAccess(t *testing.T) {
	connector := &fakeConnector{}
	m, _ := newTestManager(t, connector)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithSession(context.Background(), func(context.Context, Conn) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("expected serialized session access, saw %d concurrent", maxInside)
	}
}

func TestStopTerminatesSession(t *testing.T) {
	connector := &fakeConnector{}
	m, _ := newTestManager(t, connector)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()

	if m.Health().State != StateTerminated {
		t.Fatalf("expected terminated, got %s", m.Health().State)
	}
	err := m.EnsureReady(context.Background())
	if !errors.Is(err, services.ErrSessionUnavailable) {
		t.Fatalf("expected unavailable after stop, got %v", err)
	}
}

func TestProfileLockRejectsSecondManager(t *testing.T) {
	connector := &fakeConnector{}
	m1, cfg := newTestManager(t, connector)
	if err := m1.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m1.Stop()

	m2 := NewManager(cfg, logging.NewNop(), WithConnector(&fakeConnector{}))
	err := m2.Start(context.Background())
	if err == nil {
		m2.Stop()
		t.Fatal("second manager must not acquire the profile lock")
	}
	if !strings.Contains(err.Error(), "lock") {
		t.Fatalf("expected lock error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Paths.ProfileDir, "session.lock")); statErr != nil {
		t.Fatalf("lock file missing: %v", statErr)
	}
}
