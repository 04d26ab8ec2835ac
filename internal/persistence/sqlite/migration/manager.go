package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager orchestrates scanning, verification and execution of migrations.
type Manager struct {
	source   Source
	executor Executor
	logger   *slog.Logger
}

// NewManager constructs a Manager. A nil logger falls back to slog.Default.
func NewManager(source Source, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{source: source, executor: executor, logger: logger.With("component", "migration")}
}

// Run applies every pending migration in version order and returns how many ran.
func (m *Manager) Run(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	m.logger.InfoContext(ctx, "schema status",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		logger := m.logger.With(
			"version", migration.Version,
			"description", migration.Description,
			"file", migration.FileName,
		)
		logger.InfoContext(ctx, "applying migration", "position", i+1, "total", len(status.Pending))

		elapsed, err := m.executor.Apply(ctx, migration)
		if err != nil {
			logger.ErrorContext(ctx, "migration failed", "error", err)
			return i, newError(migration.Version, migration.FileName, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		logger.InfoContext(ctx, "migration applied", "duration", elapsed)
	}

	if len(status.Pending) > 0 {
		m.logger.InfoContext(ctx, "schema up to date",
			"current_version", status.Pending[len(status.Pending)-1].Version,
			"applied", len(status.Pending),
		)
	}
	return len(status.Pending), nil
}

// Status compares the available files with the recorded migrations.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.source.Scan()
	if err != nil {
		return Status{}, err
	}

	applied, err := m.executor.Applied(ctx)
	if err != nil {
		return Status{}, err
	}

	if err := verifySequence(available, applied); err != nil {
		return Status{}, err
	}

	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	status := Status{Applied: applied}
	for _, am := range applied {
		appliedByVersion[am.Version] = am
		if am.Version > status.CurrentVersion {
			status.CurrentVersion = am.Version
		}
	}

	for _, migration := range available {
		am, ok := appliedByVersion[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if am.Checksum != migration.Checksum {
			return Status{}, newError(migration.Version, migration.FileName, "verify checksum", ErrChecksumMismatch)
		}
	}

	return status, nil
}

// verifySequence rejects gaps in the available versions and applied versions
// that no longer have a file.
func verifySequence(available []Migration, applied []AppliedMigration) error {
	known := make(map[int]bool, len(available))
	for i, migration := range available {
		known[migration.Version] = true
		if i > 0 && migration.Version != available[i-1].Version+1 {
			return fmt.Errorf("%w: missing migration version %03d", ErrVersionConflict, available[i-1].Version+1)
		}
	}
	for _, am := range applied {
		if !known[am.Version] {
			return fmt.Errorf("%w: applied migration %03d has no file", ErrVersionConflict, am.Version)
		}
	}
	return nil
}
