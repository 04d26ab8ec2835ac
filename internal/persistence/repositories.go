package persistence

import (
	"context"
	"errors"
	"time"
)

// Repository errors. Implementations wrap driver errors with these so
// services never inspect driver types.
var (
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate covers unique constraints, including one running timer per user.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation covers missing required fields and broken foreign keys.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)

// ResourceKind names a resource type whose ownership chain can be resolved.
type ResourceKind string

const (
	KindWorkspace ResourceKind = "workspace"
	KindProject   ResourceKind = "project"
	KindTask      ResourceKind = "task"
	KindComment   ResourceKind = "comment"
	KindTimeEntry ResourceKind = "time_entry"
	KindMeeting   ResourceKind = "meeting"
)

// UserRepository stores accounts.
type UserRepository interface {
	// RegisterUser inserts the user together with a personal workspace owned by them.
	RegisterUser(ctx context.Context, user User, workspace Workspace, owner WorkspaceMember) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}

// WorkspaceRepository stores workspaces and their members.
type WorkspaceRepository interface {
	// CreateWorkspace inserts the workspace and its first owner atomically.
	CreateWorkspace(ctx context.Context, workspace Workspace, owner WorkspaceMember) error
	GetWorkspace(ctx context.Context, id string) (Workspace, error)
	GetWorkspaceSummary(ctx context.Context, id string) (WorkspaceSummary, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]WorkspaceSummary, error)
	FirstWorkspaceForUser(ctx context.Context, userID string) (Workspace, error)
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]WorkspaceMember, error)
}

// ProjectRepository stores projects and their members.
type ProjectRepository interface {
	// CreateProject inserts the project and its owner membership atomically.
	CreateProject(ctx context.Context, project Project, owner ProjectMember) error
	GetProjectSummary(ctx context.Context, id, userID string) (ProjectSummary, error)
	// ListProjectsForUser returns projects the user is a member of, newest first.
	// An empty workspaceID lists across all workspaces.
	ListProjectsForUser(ctx context.Context, userID, workspaceID string) ([]ProjectSummary, error)
	// ListWorkspaceProjectsForUser returns every project in the user's workspaces, newest first.
	ListWorkspaceProjectsForUser(ctx context.Context, userID string) ([]ProjectSummary, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjectMembers(ctx context.Context, projectID string) ([]ProjectMember, error)
	GetProjectMember(ctx context.Context, projectID, userID string) (ProjectMember, error)
	// AddProjectMember inserts the member. When workspaceMember is non-nil it is
	// inserted in the same transaction unless the user already belongs to the workspace.
	AddProjectMember(ctx context.Context, member ProjectMember, workspaceMember *WorkspaceMember) error
	RemoveProjectMember(ctx context.Context, projectID, userID string) error
}

// Snapshotter runs fn against one consistent view of the store. Reads made
// through repositories with the context passed to fn share that view.
type Snapshotter interface {
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}

// TaskRepository stores tasks.
type TaskRepository interface {
	CreateTask(ctx context.Context, task Task) error
	GetTaskView(ctx context.Context, id string) (TaskView, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]TaskView, error)
	// UpdateTask writes only the columns named by changes, so concurrent
	// updates to different fields never undo each other.
	UpdateTask(ctx context.Context, id string, changes TaskChanges) error
	DeleteTask(ctx context.Context, id string) error
}

// CommentRepository stores task comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment Comment) error
	GetComment(ctx context.Context, id string) (Comment, error)
	ListComments(ctx context.Context, taskID string) ([]Comment, error)
	DeleteComment(ctx context.Context, id string) error
}

// TimeEntryRepository stores time entries.
type TimeEntryRepository interface {
	CreateTimeEntry(ctx context.Context, entry TimeEntry) error
	GetTimeEntry(ctx context.Context, id string) (TimeEntry, error)
	ListTimeEntries(ctx context.Context, taskID string) ([]TimeEntry, error)
	// ListUserTimeEntries returns the user's entries whose start time falls in
	// [from, to). An empty taskID matches every task.
	ListUserTimeEntries(ctx context.Context, userID, taskID string, from, to time.Time) ([]TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id string) error
}

// TimerRepository stores the active stopwatch of each user.
type TimerRepository interface {
	GetTimer(ctx context.Context, userID string) (ActiveTimer, error)
	// StartTimer inserts the timer; ErrDuplicate when the user already has one.
	StartTimer(ctx context.Context, timer ActiveTimer) error
	// StopTimer removes the user's timer and stores entry in the same transaction.
	StopTimer(ctx context.Context, userID string, entry TimeEntry) error
	DeleteTimer(ctx context.Context, userID string) error
}

// MeetingRepository stores meetings and attendees.
type MeetingRepository interface {
	// CreateMeeting inserts the meeting and one attendee row per user atomically.
	CreateMeeting(ctx context.Context, meeting Meeting, attendeeIDs []string) error
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetingsForProjects(ctx context.Context, projectIDs []string) ([]Meeting, error)
}

// MembershipRepository answers the questions needed for authorization.
type MembershipRepository interface {
	WorkspaceRole(ctx context.Context, workspaceID, userID string) (Role, error)
	ProjectRole(ctx context.Context, projectID, userID string) (Role, error)
	Locate(ctx context.Context, kind ResourceKind, id string) (Ownership, error)
}
