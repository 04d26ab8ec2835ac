package persistence

import "time"

// Role is the membership role held in a workspace or project.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// TaskStatus enumerates task lifecycle states.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// TaskPriority enumerates task priorities.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// ProjectStatus enumerates project states.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusOnHold    ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Avatar       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef is the public projection of a user embedded in other records.
type UserRef struct {
	ID     string
	Name   string
	Email  string
	Avatar *string
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// Workspace is the top-level tenant grouping projects and members.
type Workspace struct {
	ID          string
	Name        string
	Description *string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceSummary decorates a workspace with aggregate counts.
type WorkspaceSummary struct {
	Workspace
	MemberCount  int
	ProjectCount int
}

// WorkspaceMember links a user to a workspace.
type WorkspaceMember struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        Role
	JoinedAt    time.Time
	User        UserRef
}

// Project groups tasks and meetings inside a workspace.
type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Description *string
	Color       string
	Status      ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectSummary decorates a project with the caller's role and task counts.
type ProjectSummary struct {
	Project
	WorkspaceName      string
	UserRole           Role
	TaskCount          int
	CompletedTaskCount int
}

// ProjectRef is the short projection of a project embedded in other records.
type ProjectRef struct {
	ID    string
	Name  string
	Color string
}

// ProjectMember links a user to a project.
type ProjectMember struct {
	ID        string
	ProjectID string
	UserID    string
	Role      Role
	InvitedBy *string
	JoinedAt  time.Time
	User      UserRef
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description *string
	Status      TaskStatus
	Priority    TaskPriority
	StartDate   *time.Time
	DueDate     *time.Time
	CreatedByID string
	AssigneeID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Nullable assigns a nullable column. Set with a nil Value writes NULL.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// TaskChanges names the columns a partial task update writes. Nil pointers
// and unset Nullables keep the stored value; UpdatedAt is always written.
type TaskChanges struct {
	Title       *string
	Description Nullable[string]
	Status      *TaskStatus
	Priority    *TaskPriority
	StartDate   Nullable[time.Time]
	DueDate     Nullable[time.Time]
	AssigneeID  Nullable[string]
	UpdatedAt   time.Time
}

// TaskView is a task joined with its project, workspace, people and counts.
type TaskView struct {
	Task
	Project        ProjectRef
	WorkspaceID    string
	WorkspaceName  string
	CreatedBy      UserRef
	Assignee       *UserRef
	CommentCount   int
	TimeEntryCount int
}

// TaskFilter narrows task listings. UserID is mandatory and restricts the
// result to tasks inside workspaces the user belongs to.
type TaskFilter struct {
	UserID     string
	ProjectID  string
	Status     TaskStatus
	AssigneeID string
	// Involving keeps only tasks created by or assigned to UserID.
	Involving bool
	// Limit caps the result size when positive.
	Limit int
	// OrderByUpdated sorts by updated_at instead of created_at, newest first.
	OrderByUpdated bool
}

// Comment is a note left on a task.
type Comment struct {
	ID        string
	TaskID    string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
	Author    UserRef
}

// TimeEntry records time spent on a task. Duration is in seconds.
type TimeEntry struct {
	ID          string
	TaskID      string
	UserID      string
	Description *string
	Duration    int64
	StartTime   *time.Time
	EndTime     *time.Time
	IsManual    bool
	CreatedAt   time.Time
	User        UserRef
}

// ActiveTimer is the single in-flight stopwatch of a user.
type ActiveTimer struct {
	UserID      string
	TaskID      string
	Description *string
	StartedAt   time.Time
}

// Meeting is a scheduled gathering attached to a project. Duration is in minutes.
type Meeting struct {
	ID          string
	ProjectID   string
	CreatedByID string
	Name        string
	Description *string
	Date        time.Time
	Duration    int
	Type        string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Project     ProjectRef
	CreatedBy   UserRef
	Attendees   []UserRef
}

// Ownership is the resolved chain from a resource up to its workspace.
type Ownership struct {
	WorkspaceID string
	ProjectID   string
	// OwnerID is the author of a comment or the user of a time entry.
	OwnerID string
}
