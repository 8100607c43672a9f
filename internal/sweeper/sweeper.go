package sweeper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tubescribe/internal/config"
	"tubescribe/internal/logging"
)

// HistoryPruner removes batch records older than the retention window.
type HistoryPruner interface {
	Prune(ctx context.Context, retentionDays int) (int64, error)
}

// Sweeper periodically removes stale work directories and expired records.
type Sweeper struct {
	cfg     *config.Config
	logger  *slog.Logger
	history HistoryPruner
	now     func() time.Time
}

// Option customizes sweeper construction.
type Option func(*Sweeper)

// WithHistoryPruner attaches a batch history store to prune on each pass.
func WithHistoryPruner(pruner HistoryPruner) Option {
	return func(s *Sweeper) {
		s.history = pruner
	}
}

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a sweeper for the configured temp root.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Sweeper{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "sweeper"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps immediately and then on every interval tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval()
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// SweepOnce removes work directories older than the grace period and returns
// the number of entries reclaimed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	root := s.cfg.Paths.TempDir
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-s.cfg.SweepGracePeriod())
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("orphan removal failed", logging.String("path", path), logging.Error(err))
			continue
		}
		s.logger.Info("orphaned work directory removed", logging.String("path", path))
		removed++
	}
	return removed, nil
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.SweepOnce(ctx)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("sweep failed", logging.Error(err))
	}
	if removed > 0 {
		s.logger.Info("sweep complete", logging.Int("removed", removed))
	}

	if s.cfg.History.Enabled && s.history != nil {
		pruned, err := s.history.Prune(ctx, s.cfg.History.RetentionDays)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("history prune failed", logging.Error(err))
		} else if pruned > 0 {
			s.logger.Info("history pruned", logging.Int64("batches", pruned))
		}
	}

	logging.CleanupOldLogs(s.logger, s.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     s.cfg.Paths.LogDir,
		Pattern: "*.log",
		Exclude: []string{filepath.Join(s.cfg.Paths.LogDir, "tubescribe.log")},
	})
}
