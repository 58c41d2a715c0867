package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager applies pending migrations in version order.
type Manager struct {
	migrations []Migration
	executor   Executor
	logger     *slog.Logger
}

// NewManager constructs a manager over already scanned migrations.
func NewManager(migrations []Migration, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{migrations: migrations, executor: executor, logger: logger.With("component", "migration")}
}

// RunMigrations executes all pending migrations in sequential order. An applied
// migration whose file content changed fails the run.
func (m *Manager) RunMigrations(ctx context.Context) error {
	startTime := time.Now()
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return fmt.Errorf("failed to initialize version table: %w", err)
	}

	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Debug("schema up to date", "migrations", len(m.migrations))
		return nil
	}

	for i, migration := range pending {
		migrationStart := time.Now()
		m.logger.Info("applying migration",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(pending)),
		)
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.Error("migration failed", "version", migration.Version, "error", err)
			return NewMigrationError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
		if err := m.executor.RecordMigration(ctx, migration, time.Since(migrationStart)); err != nil {
			return NewMigrationError(migration.Version, migration.FilePath,
				"record migration", fmt.Errorf("failed to record migration: %w", err))
		}
	}

	m.logger.Info("migrations applied", "count", len(pending), "elapsed", time.Since(startTime).String())
	return nil
}

// Pending returns the migrations that have not been recorded yet.
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}
	sums := make(map[string]string, len(applied))
	for _, a := range applied {
		sums[a.Version] = a.Checksum
	}

	var pending []Migration
	for _, migration := range m.migrations {
		sum, ok := sums[migration.Version]
		if !ok {
			pending = append(pending, migration)
			continue
		}
		if sum != "" && sum != migration.Checksum {
			return nil, NewMigrationError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return pending, nil
}
