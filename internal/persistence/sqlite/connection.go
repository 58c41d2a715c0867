package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/example/class-booker/internal/persistence/sqlite/migration"
	"github.com/example/class-booker/internal/wait"
)

// ConnectionPool manages SQLite database connections with transaction support
type ConnectionPool struct {
	db     *sql.DB
	config migration.SQLiteConfig
}

// NewConnectionPool creates a new SQLite connection pool
func NewConnectionPool(config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.Open(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	return &ConnectionPool{db: db, config: config}, nil
}

// DB returns the underlying database connection
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close closes the connection pool
func (cp *ConnectionPool) Close() error {
	if cp.db != nil {
		return cp.db.Close()
	}
	return nil
}

// TransactionFunc represents a function that executes within a transaction
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a database transaction. The transaction
// is rolled back when fn returns an error or panics, and committed otherwise.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ErrDatabaseLocked marks transient lock contention.
var ErrDatabaseLocked = errors.New("sqlite: database locked")

// MapError marks SQLITE_BUSY and SQLITE_LOCKED results, including their
// extended codes, as ErrDatabaseLocked.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var driverErr *driver.Error
	if errors.As(err, &driverErr) {
		switch driverErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrDatabaseLocked, err)
		}
		return err
	}
	if strings.Contains(err.Error(), "database is locked") {
		return fmt.Errorf("%w: %w", ErrDatabaseLocked, err)
	}
	return err
}

// RetryConfig bounds how often a locked operation is retried.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig retries three times starting at 100ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryHelper reruns operations that failed on lock contention.
type RetryHelper struct {
	config RetryConfig
}

// NewRetryHelper returns a helper for config.
func NewRetryHelper(config RetryConfig) *RetryHelper {
	return &RetryHelper{config: config}
}

// RetryableFunc is one attempt of a storage operation.
type RetryableFunc func() error

// WithRetry runs fn, sleeping with exponential backoff between attempts that
// failed with ErrDatabaseLocked. Other errors are returned immediately.
func (rh *RetryHelper) WithRetry(ctx context.Context, fn RetryableFunc) error {
	delay := rh.config.InitialDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = MapError(fn()); !errors.Is(err, ErrDatabaseLocked) {
			return err
		}
		if attempt == rh.config.MaxRetries {
			return fmt.Errorf("still locked after %d retries: %w", rh.config.MaxRetries, err)
		}
		if sleepErr := wait.Sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay = min(time.Duration(float64(delay)*rh.config.BackoffFactor), rh.config.MaxDelay)
	}
}
