// Package cache is the offline inbox cache: the last thread snapshot,
// per-thread read markers, and unsent composer drafts survive restarts so
// the console renders immediately while the gateway reconnects.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harborops/harbordesk/internal/models"
)

const (
	retryAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("cache: not found")

// Cache is a sqlite-backed local store. Safe for concurrent use; the
// driver serializes writers and busy errors are retried.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at path, applying the WAL
// and busy-timeout pragmas and migrating the schema.
func Open(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *Cache) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			last_message_at TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS read_markers (
			thread_id TEXT PRIMARY KEY,
			read_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			thread_id TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS threads_recency_idx ON threads(last_message_at)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize cache schema: %w", err)
		}
	}
	return nil
}

// SaveThreads replaces the cached snapshot with the given threads.
func (c *Cache) SaveThreads(ctx context.Context, threads []models.Thread) error {
	return c.transactionWithRetry(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM threads`); err != nil {
			return fmt.Errorf("failed to clear thread snapshot: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO threads (id, payload, last_message_at, updated_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare thread insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC().Format(time.RFC3339Nano)
		for i := range threads {
			payload, err := json.Marshal(threads[i])
			if err != nil {
				return fmt.Errorf("failed to encode thread %s: %w", threads[i].ID, err)
			}
			var lastAt string
			if threads[i].LastMessageAt != nil {
				lastAt = threads[i].LastMessageAt.UTC().Format(time.RFC3339Nano)
			}
			if _, err := stmt.ExecContext(ctx, threads[i].ID, string(payload), lastAt, now); err != nil {
				return fmt.Errorf("failed to store thread %s: %w", threads[i].ID, err)
			}
		}
		return nil
	})
}

// LoadThreads returns the cached snapshot, most recent activity first.
func (c *Cache) LoadThreads(ctx context.Context) ([]models.Thread, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT payload FROM threads
		ORDER BY last_message_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread snapshot: %w", err)
	}
	defer rows.Close()

	var threads []models.Thread
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		var thread models.Thread
		if err := json.Unmarshal([]byte(payload), &thread); err != nil {
			// A single corrupt row should not hide the rest of the inbox.
			continue
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// SaveReadMarker records the actor's read position for a thread.
func (c *Cache) SaveReadMarker(ctx context.Context, threadID string, readAt time.Time) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO read_markers (thread_id, read_at) VALUES (?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET read_at = excluded.read_at
	`, threadID, readAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store read marker: %w", err)
	}
	return nil
}

// ReadMarker returns the stored read position, or ErrNotFound.
func (c *Cache) ReadMarker(ctx context.Context, threadID string) (time.Time, error) {
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT read_at FROM read_markers WHERE thread_id = ?`, threadID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load read marker: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse read marker: %w", err)
	}
	return at, nil
}

// SaveDraft stores an unsent composer draft; an empty body deletes it.
func (c *Cache) SaveDraft(ctx context.Context, threadID, body string) error {
	if strings.TrimSpace(body) == "" {
		return c.DeleteDraft(ctx, threadID)
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO drafts (thread_id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`, threadID, body, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Draft returns the stored draft for a thread, or ErrNotFound.
func (c *Cache) Draft(ctx context.Context, threadID string) (string, error) {
	var body string
	err := c.db.QueryRowContext(ctx,
		`SELECT body FROM drafts WHERE thread_id = ?`, threadID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load draft: %w", err)
	}
	return body, nil
}

// DeleteDraft removes a stored draft, if any.
func (c *Cache) DeleteDraft(ctx context.Context, threadID string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM drafts WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}

// transactionWithRetry runs fn inside a transaction, retrying busy
// database errors with exponential backoff.
func (c *Cache) transactionWithRetry(ctx context.Context, fn func(*sql.Tx) error) error {
	backoff := retryBackoff
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.transaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !isBusyError(err) || attempt >= retryAttempts {
			return err
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

func (c *Cache) transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
