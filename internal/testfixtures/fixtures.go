package testfixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

var (
	userCounter    uint64
	projectCounter uint64
	taskCounter    uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	user := persistence.User{
		ID:           id,
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Role:         "MEMBER",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) {
		u.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(u *persistence.User) {
		u.Email = email
	}
}

// WithUserName overrides the generated display name.
func WithUserName(name string) UserOption {
	return func(u *persistence.User) {
		u.Name = name
	}
}

// ---------------------------- Project fixtures ---------------------------

// ProjectOption configures a generated project.
type ProjectOption func(*persistence.Project)

// NewProjectFixture returns a deterministic ACTIVE project in workspaceID.
func NewProjectFixture(workspaceID string, opts ...ProjectOption) persistence.Project {
	idx := atomic.AddUint64(&projectCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	project := persistence.Project{
		ID:          fmt.Sprintf("project-%03d", idx),
		WorkspaceID: workspaceID,
		Name:        fmt.Sprintf("Project %03d", idx),
		Color:       "#7B68EE",
		Status:      persistence.ProjectStatusActive,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&project)
	}
	return project
}

// WithProjectName overrides the generated project name.
func WithProjectName(name string) ProjectOption {
	return func(p *persistence.Project) {
		p.Name = name
	}
}

// WithProjectStatus overrides the ACTIVE default.
func WithProjectStatus(status persistence.ProjectStatus) ProjectOption {
	return func(p *persistence.Project) {
		p.Status = status
	}
}

// ------------------------------ Task fixtures ----------------------------

// TaskOption configures a generated task.
type TaskOption func(*persistence.Task)

// NewTaskFixture returns a deterministic TODO/MEDIUM task.
func NewTaskFixture(projectID, creatorID string, opts ...TaskOption) persistence.Task {
	idx := atomic.AddUint64(&taskCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	task := persistence.Task{
		ID:          fmt.Sprintf("task-%03d", idx),
		ProjectID:   projectID,
		Title:       fmt.Sprintf("Task %03d", idx),
		Status:      persistence.TaskStatusTodo,
		Priority:    persistence.TaskPriorityMedium,
		CreatedByID: creatorID,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&task)
	}
	return task
}

// WithTaskStatus overrides the TODO default.
func WithTaskStatus(status persistence.TaskStatus) TaskOption {
	return func(t *persistence.Task) {
		t.Status = status
	}
}

// WithTaskAssignee assigns the task.
func WithTaskAssignee(userID string) TaskOption {
	return func(t *persistence.Task) {
		t.AssigneeID = &userID
	}
}

// -------------------------------- Seeding --------------------------------

// Seeder writes fixtures through the harness repositories, failing the test
// on any storage error.
type Seeder struct {
	tb      testing.TB
	harness *SQLiteHarness
	ids     *IDGenerator
}

// NewSeeder returns a seeder whose membership rows use a dedicated ID sequence.
func NewSeeder(tb testing.TB, harness *SQLiteHarness) *Seeder {
	return &Seeder{tb: tb, harness: harness, ids: NewIDGenerator("seed")}
}

// User stores a user together with a personal workspace they own and
// returns both.
func (s *Seeder) User(opts ...UserOption) (persistence.User, persistence.Workspace) {
	s.tb.Helper()
	user := NewUserFixture(opts...)
	workspace := persistence.Workspace{
		ID:        "ws-" + user.ID,
		Name:      "Workspace de " + user.Name,
		Color:     "#7B68EE",
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.CreatedAt,
	}
	owner := persistence.WorkspaceMember{ID: s.ids.Next(), UserID: user.ID, Role: persistence.RoleOwner, JoinedAt: user.CreatedAt}
	if err := s.harness.Users.RegisterUser(context.Background(), user, workspace, owner); err != nil {
		s.tb.Fatalf("failed to seed user %s: %v", user.ID, err)
	}
	return user, workspace
}

// Project stores a project owned by ownerID.
func (s *Seeder) Project(workspaceID, ownerID string, opts ...ProjectOption) persistence.Project {
	s.tb.Helper()
	project := NewProjectFixture(workspaceID, opts...)
	owner := persistence.ProjectMember{ID: s.ids.Next(), UserID: ownerID, Role: persistence.RoleOwner, JoinedAt: project.CreatedAt}
	if err := s.harness.Projects.CreateProject(context.Background(), project, owner); err != nil {
		s.tb.Fatalf("failed to seed project %s: %v", project.ID, err)
	}
	return project
}

// JoinProject adds userID to the project and, if needed, to its workspace.
func (s *Seeder) JoinProject(project persistence.Project, userID string, role persistence.Role) {
	s.tb.Helper()
	member := persistence.ProjectMember{ID: s.ids.Next(), ProjectID: project.ID, UserID: userID, Role: role, JoinedAt: referenceTime}
	workspaceMember := persistence.WorkspaceMember{ID: s.ids.Next(), WorkspaceID: project.WorkspaceID, UserID: userID, Role: persistence.RoleMember, JoinedAt: referenceTime}
	if err := s.harness.Projects.AddProjectMember(context.Background(), member, &workspaceMember); err != nil {
		s.tb.Fatalf("failed to add %s to project %s: %v", userID, project.ID, err)
	}
}

// Task stores a task.
func (s *Seeder) Task(projectID, creatorID string, opts ...TaskOption) persistence.Task {
	s.tb.Helper()
	task := NewTaskFixture(projectID, creatorID, opts...)
	if err := s.harness.Tasks.CreateTask(context.Background(), task); err != nil {
		s.tb.Fatalf("failed to seed task %s: %v", task.ID, err)
	}
	return task
}
