package sweeper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tubescribe/internal/testsupport"
)

type fakePruner struct {
	calls int
	days  int
}

func (f *fakePruner) Prune(_ context.Context, retentionDays int) (int64, error) {
	f.calls++
	f.days = retentionDays
	return 2, nil
}

func mkWorkDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
	return path
}

func TestSweepOnceRemovesOnlyStaleDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sweeper.GracePeriodSeconds = 3600

	stale := mkWorkDir(t, cfg.Paths.TempDir, "item-stale", 2*time.Hour)
	fresh := mkWorkDir(t, cfg.Paths.TempDir, "item-fresh", time.Minute)
	loose := filepath.Join(cfg.Paths.TempDir, "stray.tmp")
	if err := os.WriteFile(loose, []byte("x"), 0o644); err != nil {
		t.Fatalf("write loose file: %v", err)
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(loose, old, old); err != nil {
		t.Fatalf("chtimes loose file: %v", err)
	}

	s := New(cfg, nil)
	removed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale directory survived sweep")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh directory was removed: %v", err)
	}
	if _, err := os.Stat(loose); err != nil {
		t.Errorf("loose file should be left for log retention: %v", err)
	}
}

func TestSweepOnceMissingTempDirIsNotAnError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.TempDir = filepath.Join(cfg.Paths.TempDir, "never-created")

	s := New(cfg, nil)
	removed, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected no removals, got %d", removed)
	}
}

func TestSweepPrunesHistoryWhenEnabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = true
	cfg.History.RetentionDays = 30

	pruner := &fakePruner{}
	s := New(cfg, nil, WithHistoryPruner(pruner))
	s.sweep(context.Background())

	if pruner.calls != 1 {
		t.Fatalf("expected one prune call, got %d", pruner.calls)
	}
	if pruner.days != 30 {
		t.Fatalf("expected retention of 30 days, got %d", pruner.days)
	}
}

func TestSweepSkipsHistoryWhenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false

	pruner := &fakePruner{}
	s := New(cfg, nil, WithHistoryPruner(pruner))
	s.sweep(context.Background())

	if pruner.calls != 0 {
		t.Fatalf("expected no prune calls, got %d", pruner.calls)
	}
}

func TestSweepUsesLogRetentionForLogFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.History.Enabled = false
	cfg.History.RetentionDays = 365
	cfg.Logging.RetentionDays = 1

	mkLogFile := func(name string) string {
		t.Helper()
		path := filepath.Join(cfg.Paths.LogDir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		old := time.Now().AddDate(0, 0, -3)
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
		return path
	}
	rotated := mkLogFile("tubescribe-2026-08-01.log")
	active := mkLogFile("tubescribe.log")

	s := New(cfg, nil)
	s.sweep(context.Background())

	if _, err := os.Stat(rotated); !os.IsNotExist(err) {
		t.Errorf("rotated log older than the log retention window survived")
	}
	if _, err := os.Stat(active); err != nil {
		t.Errorf("active log was removed: %v", err)
	}
}

func TestSweepOnceHonorsCancelledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sweeper.GracePeriodSeconds = 1
	mkWorkDir(t, cfg.Paths.TempDir, "item-a", time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(cfg, nil)
	if _, err := s.SweepOnce(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
