package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tubescribe/internal/config"
	"tubescribe/internal/fetcher"
	"tubescribe/internal/history"
	"tubescribe/internal/logging"
	"tubescribe/internal/notifications"
	"tubescribe/internal/services"
	"tubescribe/internal/transcriber"
)

// Fetcher downloads the audio track for a single video reference.
type Fetcher interface {
	Fetch(ctx context.Context, videoURL, workDir string) (*fetcher.Result, error)
}

// HistoryRecorder persists completed batch outcomes.
type HistoryRecorder interface {
	RecordBatch(ctx context.Context, record history.BatchRecord) error
}

// ItemOutcome is the result of one input position.
type ItemOutcome struct {
	Index       int
	Ref         string
	Title       string
	Transcript  string
	CharCount   int
	Err         error
	FailureKind services.FailureKind
	Duration    time.Duration
}

// Failed reports whether this position produced an error.
func (o ItemOutcome) Failed() bool {
	return o.Err != nil
}

// Result aggregates a processed batch. Outcomes always has the same length
// and ordering as the submitted references.
type Result struct {
	BatchID   string
	Success   bool
	Message   string
	Succeeded int
	Failed    int
	Outcomes  []ItemOutcome
	Started   time.Time
	Finished  time.Time
}

// Processor drives batches through fetch and transcription.
type Processor struct {
	cfg         *config.Config
	logger      *slog.Logger
	fetcher     Fetcher
	transcriber transcriber.Transcriber
	history     HistoryRecorder
	notifier    notifications.Service
	newBatchID  func() string
}

// Option customizes processor construction.
type Option func(*Processor)

// WithHistoryRecorder attaches a store that receives completed batches.
func WithHistoryRecorder(recorder HistoryRecorder) Option {
	return func(p *Processor) {
		p.history = recorder
	}
}

// WithNotifier attaches a notification service for batch lifecycle events.
func WithNotifier(notifier notifications.Service) Option {
	return func(p *Processor) {
		p.notifier = notifier
	}
}

// WithBatchIDGenerator overrides batch identifier generation (used in tests).
func WithBatchIDGenerator(gen func() string) Option {
	return func(p *Processor) {
		if gen != nil {
			p.newBatchID = gen
		}
	}
}

// NewProcessor builds a batch processor over the provided pipeline stages.
func NewProcessor(cfg *config.Config, logger *slog.Logger, f Fetcher, t transcriber.Transcriber, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Processor{
		cfg:         cfg,
		logger:      logging.NewComponentLogger(logger, "batch"),
		fetcher:     f,
		transcriber: t,
		notifier:    notifications.NewService(cfg),
		newBatchID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs all references through the pipeline and returns position-
// indexed outcomes. Partial failure is reported inside the result, not as an
// error; Process itself fails only for oversize batches or an unusable
// context.
func (p *Processor) Process(ctx context.Context, refs []string) (*Result, error) {
	if max := p.cfg.Batch.MaxSize; len(refs) > max {
		return nil, services.Wrap(services.ErrBatchTooLarge, "batch", "process",
			fmt.Sprintf("batch of %d exceeds limit of %d", len(refs), max), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchID := p.newBatchID()
	started := time.Now()
	ctx = services.WithBatchID(ctx, batchID)
	if timeout := p.cfg.BatchTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	p.logger.Info("batch started",
		logging.String(logging.FieldBatchID, batchID),
		logging.Int("videos", len(refs)))
	if err := p.notifier.NotifyBatchStarted(ctx, batchID, len(refs)); err != nil {
		p.logger.Warn("batch start notification failed", logging.Error(err))
	}

	outcomes := make([]ItemOutcome, len(refs))
	indexes := make(chan int)
	workers := p.cfg.Batch.Workers
	if workers > len(refs) {
		workers = len(refs)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				outcomes[i] = p.processItem(ctx, i, refs[i])
			}
		}()
	}
	for i := range refs {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	result := p.aggregate(batchID, started, outcomes)
	p.finish(ctx, result)
	return result, nil
}

func (p *Processor) processItem(ctx context.Context, index int, ref string) ItemOutcome {
	itemStart := time.Now()
	ctx = services.WithItemIndex(ctx, index)
	logger := p.logger.With(
		logging.String(logging.FieldBatchID, mustBatchID(ctx)),
		logging.Int(logging.FieldItemIndex, index),
		logging.String(logging.FieldVideoURL, ref))

	outcome := ItemOutcome{Index: index, Ref: ref}
	defer func() {
		outcome.Duration = time.Since(itemStart)
	}()

	if err := ctx.Err(); err != nil {
		outcome.Err = services.Wrap(services.ErrAcquisition, "batch", "item", "batch deadline exceeded", err)
		outcome.FailureKind = services.Classify(outcome.Err)
		return outcome
	}

	workDir, err := os.MkdirTemp(p.cfg.Paths.TempDir, "item-")
	if err != nil {
		outcome.Err = services.Wrap(services.ErrAcquisition, "batch", "item", "create work directory", err)
		outcome.FailureKind = services.Classify(outcome.Err)
		return outcome
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("work directory cleanup failed", logging.String("path", workDir), logging.Error(err))
		}
	}()

	artifact, err := p.fetcher.Fetch(ctx, ref, workDir)
	if err != nil {
		outcome.Err = err
		outcome.FailureKind = services.Classify(err)
		logger.Warn("audio fetch failed",
			logging.String("failure_kind", string(outcome.FailureKind)),
			logging.Error(err))
		return outcome
	}
	outcome.Title = artifact.Title

	transcript, err := p.transcriber.Transcribe(ctx, artifact.AudioPath)
	if err != nil {
		outcome.Err = err
		outcome.FailureKind = services.Classify(err)
		logger.Warn("transcription failed",
			logging.String("failure_kind", string(outcome.FailureKind)),
			logging.Error(err))
		return outcome
	}

	outcome.Transcript = transcript.Transcript
	outcome.CharCount = transcript.CharCount
	logger.Info("video transcribed",
		logging.String("title", outcome.Title),
		logging.Int("chars", outcome.CharCount))
	return outcome
}

func (p *Processor) aggregate(batchID string, started time.Time, outcomes []ItemOutcome) *Result {
	succeeded := 0
	for _, outcome := range outcomes {
		if !outcome.Failed() {
			succeeded++
		}
	}
	return &Result{
		BatchID:   batchID,
		Success:   succeeded > 0,
		Message:   fmt.Sprintf("Processed %d of %d videos", succeeded, len(outcomes)),
		Succeeded: succeeded,
		Failed:    len(outcomes) - succeeded,
		Outcomes:  outcomes,
		Started:   started,
		Finished:  time.Now(),
	}
}

func (p *Processor) finish(ctx context.Context, result *Result) {
	p.logger.Info("batch finished",
		logging.String(logging.FieldBatchID, result.BatchID),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Duration("duration", result.Finished.Sub(result.Started)))

	// Recording and notification run on a fresh context so a batch that hit
	// its deadline still gets persisted.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if p.history != nil && p.cfg.History.Enabled {
		record := history.BatchRecord{
			ID:         result.BatchID,
			CreatedAt:  result.Started,
			FinishedAt: result.Finished,
			Message:    result.Message,
			Items:      make([]history.ItemRecord, len(result.Outcomes)),
		}
		for i, outcome := range result.Outcomes {
			item := history.ItemRecord{
				Index:     outcome.Index,
				VideoURL:  outcome.Ref,
				Title:     outcome.Title,
				Status:    history.StatusCompleted,
				CharCount: outcome.CharCount,
				Duration:  outcome.Duration,
			}
			if outcome.Failed() {
				item.Status = history.StatusFailed
				item.FailureKind = outcome.FailureKind
			}
			record.Items[i] = item
		}
		if err := p.history.RecordBatch(finishCtx, record); err != nil {
			p.logger.Warn("history record failed", logging.Error(err))
		}
	}

	duration := result.Finished.Sub(result.Started)
	if err := p.notifier.NotifyBatchCompleted(finishCtx, result.BatchID, result.Succeeded, result.Failed, duration); err != nil {
		p.logger.Warn("batch completion notification failed", logging.Error(err))
	}
}

func mustBatchID(ctx context.Context) string {
	id, _ := services.BatchIDFromContext(ctx)
	return id
}
