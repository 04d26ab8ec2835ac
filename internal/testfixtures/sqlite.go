package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/taskflow/internal/persistence/sqlite"
	"github.com/example/taskflow/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a migrated temporary
// SQLite database for integration-style tests.
type SQLiteHarness struct {
	Pool        *sqlite.ConnectionPool
	Users       *sqlite.UserRepository
	Sessions    *sqlite.SessionRepository
	Workspaces  *sqlite.WorkspaceRepository
	Projects    *sqlite.ProjectRepository
	Memberships *sqlite.MembershipRepository
	Tasks       *sqlite.TaskRepository
	Comments    *sqlite.CommentRepository
	TimeEntries *sqlite.TimeEntryRepository
	Timers      *sqlite.TimerRepository
	Meetings    *sqlite.MeetingRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a temporary database file and applies every
// migration. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "taskflow.db")

	pool, err := sqlite.NewConnectionPool(ctx, migration.TestSQLiteConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := pool.Migrate(ctx, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:        pool,
		Users:       sqlite.NewUserRepository(pool),
		Sessions:    sqlite.NewSessionRepository(pool),
		Workspaces:  sqlite.NewWorkspaceRepository(pool),
		Projects:    sqlite.NewProjectRepository(pool),
		Memberships: sqlite.NewMembershipRepository(pool),
		Tasks:       sqlite.NewTaskRepository(pool),
		Comments:    sqlite.NewCommentRepository(pool),
		TimeEntries: sqlite.NewTimeEntryRepository(pool),
		Timers:      sqlite.NewTimerRepository(pool),
		Meetings:    sqlite.NewMeetingRepository(pool),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
