package application

import (
	"time"

	"github.com/example/taskflow/internal/persistence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID string
	Name   string
	Email  string
}

// Patch carries an optional field update. Set with a nil Value clears the field.
type Patch[T any] struct {
	Set   bool
	Value *T
}

func (p Patch[T]) column() persistence.Nullable[T] {
	return persistence.Nullable[T]{Set: p.Set, Value: p.Value}
}

// RegisterInput captures the sign-up form.
type RegisterInput struct {
	Name            string `validate:"min=2"`
	Email           string `validate:"required,email"`
	Password        string `validate:"min=6"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    persistence.User
	Session persistence.Session
}

// WorkspaceInput captures caller provided workspace fields.
type WorkspaceInput struct {
	Name        string `validate:"required,max=100"`
	Description *string
	Color       string `validate:"omitempty,color"`
}

// EnsureWorkspaceResult reports the caller's personal workspace.
type EnsureWorkspaceResult struct {
	Workspace persistence.Workspace
	Created   bool
}

// ProjectInput captures caller provided project fields.
type ProjectInput struct {
	Name        string `validate:"required,max=100"`
	Description *string
	Color       string `validate:"omitempty,color"`
	WorkspaceID string `validate:"required"`
	StartDate   *time.Time
	EndDate     *time.Time
}

// AddMemberInput invites an existing user to a project by email.
type AddMemberInput struct {
	ProjectID string
	Email     string           `validate:"required,email"`
	Role      persistence.Role `validate:"omitempty,oneof=OWNER ADMIN MEMBER"`
}

// TaskInput captures the fields of a new task.
type TaskInput struct {
	Title       string `validate:"required,max=200"`
	Description *string
	ProjectID   string                   `validate:"required"`
	AssigneeID  *string                  `validate:"omitnil,min=1"`
	Priority    persistence.TaskPriority `validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status      persistence.TaskStatus   `validate:"omitempty,oneof=TODO IN_PROGRESS IN_REVIEW DONE CANCELLED"`
	StartDate   *time.Time
	DueDate     *time.Time
}

// TaskUpdate carries a partial task update; nil pointers and unset patches leave fields untouched.
type TaskUpdate struct {
	Title       *string                   `validate:"omitnil,min=1,max=200"`
	Description Patch[string]             `validate:"-"`
	AssigneeID  Patch[string]             `validate:"-"`
	Priority    *persistence.TaskPriority `validate:"omitnil,oneof=LOW MEDIUM HIGH URGENT"`
	Status      *persistence.TaskStatus   `validate:"omitnil,oneof=TODO IN_PROGRESS IN_REVIEW DONE CANCELLED"`
	StartDate   Patch[time.Time]          `validate:"-"`
	DueDate     Patch[time.Time]          `validate:"-"`
}

// TaskListParams narrows task listings.
type TaskListParams struct {
	ProjectID  string
	Status     persistence.TaskStatus `validate:"omitempty,oneof=TODO IN_PROGRESS IN_REVIEW DONE CANCELLED"`
	AssigneeID string
}

// TaskDetail is a task with its comments, time entries and tracked total.
type TaskDetail struct {
	persistence.TaskView
	Comments     []persistence.Comment
	TimeEntries  []persistence.TimeEntry
	TotalSeconds int64
}

// CommentInput captures a new comment.
type CommentInput struct {
	TaskID  string
	Content string `validate:"min=1,max=1000"`
}

// TimeEntryInput captures a new time entry. Duration is in seconds.
// Stopwatch entries (IsManual false) need StartTime; EndTime defaults to now.
type TimeEntryInput struct {
	TaskID      string
	Description *string
	Duration    *int64     `validate:"required,gte=0"`
	StartTime   *time.Time `validate:"required_without=IsManual"`
	EndTime     *time.Time
	IsManual    bool
}

// TimerStartInput starts the caller's stopwatch on a task.
type TimerStartInput struct {
	TaskID      string `validate:"required"`
	Description *string
}

// TimerState is the caller's stopwatch as seen at request time.
type TimerState struct {
	Timer          *persistence.ActiveTimer
	ElapsedSeconds int64
	// TodaySeconds sums the caller's entries for the timer's task since local midnight.
	TodaySeconds int64
}

// MeetingInput captures a new meeting. Duration is in minutes.
type MeetingInput struct {
	Name        string `validate:"required,max=200"`
	Description *string
	Date        time.Time `validate:"required"`
	Duration    int       `validate:"min=1"`
	Type        string    `validate:"required,oneof=COMPANY TEAM TUTORING OTHER"`
	Location    string    `validate:"required,oneof=REMOTE IN_PERSON"`
	ProjectID   string    `validate:"required"`
	AttendeeIDs []string  `validate:"dive,required"`
}

// ProjectMeetings groups the meetings of one project.
type ProjectMeetings struct {
	Project  persistence.ProjectRef
	Meetings []persistence.Meeting
}

// MeetingList is either the meetings of one project or every project of the caller.
type MeetingList struct {
	Meetings []persistence.Meeting
	Projects []ProjectMeetings
}

// ProjectProgress is a project with its completion ratio.
type ProjectProgress struct {
	ID             string
	Name           string
	Color          string
	Status         persistence.ProjectStatus
	TotalTasks     int
	CompletedTasks int
	// Progress is the rounded percentage of DONE tasks, 0 for empty projects.
	Progress int
}

// DashboardStats summarises the caller's work. IN_REVIEW and CANCELLED tasks
// count only toward TotalTasks.
type DashboardStats struct {
	TotalTasks      int
	TodoTasks       int
	InProgressTasks int
	CompletedTasks  int
	TodaySeconds    int64
	// TodayHours is TodaySeconds in hours rounded to one decimal.
	TodayHours     float64
	TotalProjects  int
	ActiveProjects int
	RecentTasks    []persistence.TaskView
	Projects       []ProjectProgress
}

// Notification is a message addressed to the caller.
type Notification struct {
	ID        string
	Message   string
	CreatedAt time.Time
	Read      bool
}
