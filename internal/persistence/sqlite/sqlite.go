// Package sqlite stores the booking queue and attempt history in a SQLite file
// using the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/class-booker/internal/calendar"
	"github.com/example/class-booker/internal/persistence"
	"github.com/example/class-booker/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage implements persistence.QueueRepository and persistence.AttemptRepository.
type Storage struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	logger *slog.Logger
}

var (
	_ persistence.QueueRepository   = (*Storage)(nil)
	_ persistence.AttemptRepository = (*Storage)(nil)
)

// Open opens the database at dsn with the default configuration and applies
// pending migrations.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	return OpenWithConfig(ctx, migration.DefaultSQLiteConfig(dsn), logger)
}

// OpenWithConfig opens the database described by config and applies pending migrations.
func OpenWithConfig(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}

	migrations, err := migration.ScanMigrations(migrationFiles, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	manager := migration.NewManager(migrations, migration.NewSQLiteExecutor(pool.DB()), logger)
	if err := manager.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate %s: %w", config.DSN, err)
	}

	return &Storage{
		pool:   pool,
		retry:  NewRetryHelper(DefaultRetryConfig()),
		logger: logger.With("component", "sqlite"),
	}, nil
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

// LoadQueue returns the queued entries in position order.
func (s *Storage) LoadQueue(ctx context.Context) ([]persistence.QueueEntry, error) {
	var entries []persistence.QueueEntry
	err := s.retry.WithRetry(ctx, func() error {
		entries = entries[:0]
		rows, err := s.pool.DB().QueryContext(ctx, `SELECT date, time FROM queue_entries ORDER BY position ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var date, clock string
			if err := rows.Scan(&date, &clock); err != nil {
				return err
			}
			parsed, err := calendar.ParseDate(date)
			if err != nil {
				return fmt.Errorf("%w: queue entry date %q", persistence.ErrCorrupt, date)
			}
			entries = append(entries, persistence.QueueEntry{Date: parsed, Time: clock})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	return entries, nil
}

// SaveQueue replaces the stored queue in one transaction.
func (s *Storage) SaveQueue(ctx context.Context, entries []persistence.QueueEntry) error {
	err := s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM queue_entries`); err != nil {
				return err
			}
			for i, entry := range entries {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO queue_entries (position, date, time) VALUES (?, ?, ?)`,
					i, entry.Date.String(), entry.Time,
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("save queue: %w", err)
	}
	return nil
}

// RecordAttempt appends one attempt to the history.
func (s *Storage) RecordAttempt(ctx context.Context, attempt persistence.Attempt) error {
	if attempt.AttemptedAt.IsZero() {
		attempt.AttemptedAt = time.Now()
	}
	err := s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().ExecContext(ctx, `
			INSERT INTO booking_attempts (id, run_id, source, action, date, time, outcome, message, attempted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			attempt.ID,
			attempt.RunID,
			attempt.Source,
			attempt.Action,
			attempt.Date.String(),
			attempt.Time,
			attempt.Outcome,
			attempt.Message,
			attempt.AttemptedAt.UTC().Format(time.RFC3339Nano),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// ListAttempts returns up to limit attempts, newest first. A non-positive limit returns all.
func (s *Storage) ListAttempts(ctx context.Context, limit int) ([]persistence.Attempt, error) {
	if limit <= 0 {
		limit = -1
	}
	var attempts []persistence.Attempt
	err := s.retry.WithRetry(ctx, func() error {
		attempts = attempts[:0]
		rows, err := s.pool.DB().QueryContext(ctx, `
			SELECT id, run_id, source, action, date, time, outcome, message, attempted_at
			FROM booking_attempts
			ORDER BY attempted_at DESC, rowid DESC
			LIMIT ?
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a persistence.Attempt
			var date, attemptedAt string
			if err := rows.Scan(&a.ID, &a.RunID, &a.Source, &a.Action, &date, &a.Time, &a.Outcome, &a.Message, &attemptedAt); err != nil {
				return err
			}
			if a.Date, err = calendar.ParseDate(date); err != nil {
				return fmt.Errorf("%w: attempt date %q", persistence.ErrCorrupt, date)
			}
			if a.AttemptedAt, err = time.Parse(time.RFC3339Nano, attemptedAt); err != nil {
				return fmt.Errorf("%w: attempt time %q", persistence.ErrCorrupt, attemptedAt)
			}
			attempts = append(attempts, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, nil
}
