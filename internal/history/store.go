package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tubescribe/internal/config"
	"tubescribe/internal/services"
)

// Item statuses recorded per batch position.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ItemRecord is one position in a recorded batch.
type ItemRecord struct {
	Index       int                  `json:"index"`
	VideoURL    string               `json:"video_url"`
	Title       string               `json:"title,omitempty"`
	Status      string               `json:"status"`
	FailureKind services.FailureKind `json:"failure_kind,omitempty"`
	CharCount   int                  `json:"char_count"`
	Duration    time.Duration        `json:"duration_ms"`
}

// BatchRecord is a completed batch with its per-item outcomes.
type BatchRecord struct {
	ID         string
	CreatedAt  time.Time
	FinishedAt time.Time
	Message    string
	Items      []ItemRecord
}

// BatchSummary is the list view of a recorded batch.
type BatchSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	ItemCount  int       `json:"item_count"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Message    string    `json:"message,omitempty"`
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// RecordBatch inserts a batch and its item outcomes in one transaction.
func (s *Store) RecordBatch(ctx context.Context, record BatchRecord) error {
	if record.ID == "" {
		return fmt.Errorf("record batch: id required")
	}

	var succeeded, failed int
	for _, item := range record.Items {
		if item.Status == StatusCompleted {
			succeeded++
		} else {
			failed++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var finishedAt any
	if !record.FinishedAt.IsZero() {
		finishedAt = record.FinishedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, created_at, finished_at, item_count, succeeded, failed, message)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		finishedAt,
		len(record.Items),
		succeeded,
		failed,
		nullableString(record.Message),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, item := range record.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO batch_items (batch_id, item_index, video_url, title, status, failure_kind, char_count, duration_ms)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			item.Index,
			item.VideoURL,
			nullableString(item.Title),
			item.Status,
			nullableString(string(item.FailureKind)),
			item.CharCount,
			item.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert batch item %d: %w", item.Index, err)
		}
	}

	return tx.Commit()
}

// RecentBatches lists recorded batches, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, finished_at, item_count, succeeded, failed, message
         FROM batches ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var summaries []BatchSummary
	for rows.Next() {
		var summary BatchSummary
		var createdAt string
		var finishedAt, message sql.NullString
		if err := rows.Scan(&summary.ID, &createdAt, &finishedAt, &summary.ItemCount, &summary.Succeeded, &summary.Failed, &message); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if finishedAt.Valid {
			summary.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt.String)
		}
		summary.Message = message.String
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// BatchItems returns the per-item outcomes for a batch, ordered by position.
func (s *Store) BatchItems(ctx context.Context, batchID string) ([]ItemRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT item_index, video_url, title, status, failure_kind, char_count, duration_ms
         FROM batch_items WHERE batch_id = ? ORDER BY item_index ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var item ItemRecord
		var title, failureKind sql.NullString
		var durationMillis int64
		if err := rows.Scan(&item.Index, &item.VideoURL, &title, &item.Status, &failureKind, &item.CharCount, &durationMillis); err != nil {
			return nil, fmt.Errorf("scan batch item: %w", err)
		}
		item.Title = title.String
		item.FailureKind = services.FailureKind(failureKind.String)
		item.Duration = time.Duration(durationMillis) * time.Millisecond
		items = append(items, item)
	}
	return items, rows.Err()
}

// Prune removes batches older than retentionDays. A value of 0 disables
// pruning.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune batches: %w", err)
	}
	return res.RowsAffected()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
