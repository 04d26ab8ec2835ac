package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/taskflow/internal/persistence"
	"github.com/example/taskflow/internal/persistence/sqlite/migration"
)

var testEpoch = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func newTestPool(t *testing.T) *ConnectionPool {
	t.Helper()

	ctx := context.Background()
	pool, err := NewConnectionPool(ctx, migration.TestSQLiteConfig(filepath.Join(t.TempDir(), "taskflow.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	_, err = pool.Migrate(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return pool
}

// seeder inserts related rows with sequential identifiers and timestamps.
type seeder struct {
	t    *testing.T
	pool *ConnectionPool
	n    int
}

func newSeeder(t *testing.T) *seeder {
	return &seeder{t: t, pool: newTestPool(t)}
}

func (s *seeder) next(prefix string) (string, time.Time) {
	s.n++
	return fmt.Sprintf("%s-%d", prefix, s.n), testEpoch.Add(time.Duration(s.n) * time.Minute)
}

func (s *seeder) user(name string) persistence.User {
	s.t.Helper()
	id, at := s.next("user")
	user := persistence.User{
		ID:           id,
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
		Role:         "MEMBER",
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	require.NoError(s.t, NewUserRepository(s.pool).RegisterUser(context.Background(), user, persistence.Workspace{}, persistence.WorkspaceMember{}))
	return user
}

func (s *seeder) workspace(ownerID string) persistence.Workspace {
	s.t.Helper()
	id, at := s.next("ws")
	memberID, _ := s.next("wm")
	ws := persistence.Workspace{ID: id, Name: "Workspace " + id, Color: "#7B68EE", CreatedAt: at, UpdatedAt: at}
	owner := persistence.WorkspaceMember{ID: memberID, UserID: ownerID, Role: persistence.RoleOwner, JoinedAt: at}
	require.NoError(s.t, NewWorkspaceRepository(s.pool).CreateWorkspace(context.Background(), ws, owner))
	return ws
}

func (s *seeder) joinWorkspace(workspaceID, userID string, role persistence.Role) {
	s.t.Helper()
	id, at := s.next("wm")
	err := s.pool.WithTransaction(context.Background(), func(tx *sql.Tx) error {
		return insertWorkspaceMember(context.Background(), tx, persistence.WorkspaceMember{
			ID: id, WorkspaceID: workspaceID, UserID: userID, Role: role, JoinedAt: at,
		}, false)
	})
	require.NoError(s.t, err)
}

func (s *seeder) project(workspaceID, ownerID string) persistence.Project {
	s.t.Helper()
	id, at := s.next("proj")
	memberID, _ := s.next("pm")
	project := persistence.Project{
		ID: id, WorkspaceID: workspaceID, Name: "Project " + id, Color: "#123456",
		Status: persistence.ProjectStatusActive, CreatedAt: at, UpdatedAt: at,
	}
	owner := persistence.ProjectMember{ID: memberID, UserID: ownerID, Role: persistence.RoleOwner, JoinedAt: at}
	require.NoError(s.t, NewProjectRepository(s.pool).CreateProject(context.Background(), project, owner))
	return project
}

func (s *seeder) task(projectID, creatorID string, mutate ...func(*persistence.Task)) persistence.Task {
	s.t.Helper()
	id, at := s.next("task")
	task := persistence.Task{
		ID: id, ProjectID: projectID, Title: "Task " + id,
		Status: persistence.TaskStatusTodo, Priority: persistence.TaskPriorityMedium,
		CreatedByID: creatorID, CreatedAt: at, UpdatedAt: at,
	}
	for _, fn := range mutate {
		fn(&task)
	}
	require.NoError(s.t, NewTaskRepository(s.pool).CreateTask(context.Background(), task))
	return task
}
