package migration

import (
	"context"
	"time"
)

// Migration is a single versioned schema change.
type Migration struct {
	Version     int
	Description string
	SQL         string
	FileName    string
	Checksum    string
}

// Source lists the migrations available to apply.
type Source interface {
	Scan() ([]Migration, error)
}

// Executor applies migrations and tracks which ones ran.
type Executor interface {
	// InitializeVersionTable creates schema_migrations if it does not exist.
	InitializeVersionTable(ctx context.Context) error
	// Apply runs the migration and records it in a single transaction.
	Apply(ctx context.Context, migration Migration) (time.Duration, error)
	// Applied returns the recorded migrations ordered by version.
	Applied(ctx context.Context) ([]AppliedMigration, error)
}

// Status summarises the state of the schema.
type Status struct {
	CurrentVersion int
	Applied        []AppliedMigration
	Pending        []Migration
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       int
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}
