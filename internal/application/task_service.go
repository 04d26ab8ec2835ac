package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// TaskServiceDeps captures dependencies for constructing a task service.
type TaskServiceDeps struct {
	Tasks       persistence.TaskRepository
	Comments    persistence.CommentRepository
	TimeEntries persistence.TimeEntryRepository
	Memberships persistence.MembershipRepository
	Authz       Authorizer
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// TaskService manages tasks. Visibility follows workspace membership.
type TaskService struct {
	tasks       persistence.TaskRepository
	comments    persistence.CommentRepository
	entries     persistence.TimeEntryRepository
	memberships persistence.MembershipRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTaskService constructs a TaskService with the provided dependencies.
func NewTaskService(deps TaskServiceDeps) *TaskService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &TaskService{
		tasks:       deps.Tasks,
		comments:    deps.Comments,
		entries:     deps.TimeEntries,
		memberships: deps.Memberships,
		authz:       deps.Authz,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *TaskService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TaskService", operation, attrs...)
}

func (s *TaskService) ready() error {
	if s == nil || s.tasks == nil || s.memberships == nil || s.authz == nil {
		return fmt.Errorf("task service not configured")
	}
	return nil
}

// visible grants access to a task through membership of its workspace.
// Tasks outside the caller's workspaces are reported as not found.
func (s *TaskService) visible(ctx context.Context, principal Principal, taskID string) (access.Grant, error) {
	grant, err := s.authz.Check(ctx, principal.UserID, access.Task(taskID), access.WorkspaceMember)
	if err != nil {
		return access.Grant{}, fromAccess(err, ErrNotFound)
	}
	return grant, nil
}

// checkAssignee requires the assignee to belong to the task's workspace.
func (s *TaskService) checkAssignee(ctx context.Context, workspaceID, assigneeID string) error {
	if _, err := s.memberships.WorkspaceRole(ctx, workspaceID, assigneeID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return fieldError("assigneeId", "must be a member of the workspace")
		}
		return err
	}
	return nil
}

// Create stores a task in a project whose workspace the caller belongs to.
func (s *TaskService) Create(ctx context.Context, principal Principal, input TaskInput) (task persistence.TaskView, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input.Title = strings.TrimSpace(input.Title)
	input.AssigneeID = normalizeOptionalString(input.AssigneeID)
	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "project_id", input.ProjectID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create task", err)
			return
		}
		logger.With("task_id", task.ID).InfoContext(ctx, "task created")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var grant access.Grant
	grant, err = s.authz.Check(ctx, principal.UserID, access.Project(input.ProjectID), access.WorkspaceMember)
	if err != nil {
		err = fromAccess(err, ErrForbidden)
		return
	}

	if input.AssigneeID != nil {
		if err = s.checkAssignee(ctx, grant.WorkspaceID, *input.AssigneeID); err != nil {
			return
		}
	}

	now := s.now()
	record := persistence.Task{
		ID:          s.idGenerator(),
		ProjectID:   input.ProjectID,
		Title:       input.Title,
		Description: normalizeOptionalString(input.Description),
		Status:      lo.Ternary(input.Status == "", persistence.TaskStatusTodo, input.Status),
		Priority:    lo.Ternary(input.Priority == "", persistence.TaskPriorityMedium, input.Priority),
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		CreatedByID: principal.UserID,
		AssigneeID:  input.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err = s.tasks.CreateTask(ctx, record); err != nil {
		err = fromRepo(err)
		return
	}

	task, err = s.tasks.GetTaskView(ctx, record.ID)
	return
}

// List returns tasks in the caller's workspaces, newest first.
func (s *TaskService) List(ctx context.Context, principal Principal, params TaskListParams) ([]persistence.TaskView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if vErr := validateStruct(params); vErr.HasErrors() {
		return nil, vErr
	}
	tasks, err := s.tasks.ListTasks(ctx, persistence.TaskFilter{
		UserID:     principal.UserID,
		ProjectID:  strings.TrimSpace(params.ProjectID),
		Status:     params.Status,
		AssigneeID: strings.TrimSpace(params.AssigneeID),
	})
	if err != nil {
		logFailure(ctx, s.loggerWith(ctx, "List", "principal_id", principal.UserID), "failed to list tasks", err)
		return nil, err
	}
	return tasks, nil
}

// Get returns the task with its comments, time entries and tracked total.
func (s *TaskService) Get(ctx context.Context, principal Principal, taskID string) (detail TaskDetail, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if s.comments == nil || s.entries == nil {
		err = fmt.Errorf("task detail repositories not configured")
		return
	}
	if _, err = s.visible(ctx, principal, taskID); err != nil {
		return
	}

	if detail.TaskView, err = s.tasks.GetTaskView(ctx, taskID); err != nil {
		err = fromRepo(err)
		return
	}
	if detail.Comments, err = s.comments.ListComments(ctx, taskID); err != nil {
		return
	}
	if detail.TimeEntries, err = s.entries.ListTimeEntries(ctx, taskID); err != nil {
		return
	}
	detail.TotalSeconds = lo.SumBy(detail.TimeEntries, func(entry persistence.TimeEntry) int64 {
		return entry.Duration
	})
	return
}

// Update applies a partial update. Only provided fields are written, and
// concurrent writes to the same field are last write wins.
func (s *TaskService) Update(ctx context.Context, principal Principal, taskID string, update TaskUpdate) (task persistence.TaskView, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Update", "principal_id", principal.UserID, "task_id", taskID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to update task", err)
			return
		}
		logger.InfoContext(ctx, "task updated")
	}()

	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		update.Title = &trimmed
	}
	if vErr := validateStruct(update); vErr.HasErrors() {
		err = vErr
		return
	}

	var grant access.Grant
	if grant, err = s.visible(ctx, principal, taskID); err != nil {
		return
	}

	changes := persistence.TaskChanges{
		Title:       update.Title,
		Description: update.Description.column(),
		Status:      update.Status,
		Priority:    update.Priority,
		StartDate:   update.StartDate.column(),
		DueDate:     update.DueDate.column(),
		AssigneeID:  update.AssigneeID.column(),
		UpdatedAt:   s.now(),
	}
	if changes.Description.Set {
		changes.Description.Value = normalizeOptionalString(changes.Description.Value)
	}
	if changes.AssigneeID.Set {
		changes.AssigneeID.Value = normalizeOptionalString(changes.AssigneeID.Value)
		if assignee := changes.AssigneeID.Value; assignee != nil {
			if err = s.checkAssignee(ctx, grant.WorkspaceID, *assignee); err != nil {
				return
			}
		}
	}

	if err = s.tasks.UpdateTask(ctx, taskID, changes); err != nil {
		err = fromRepo(err)
		return
	}

	task, err = s.tasks.GetTaskView(ctx, taskID)
	return
}

// Delete removes a visible task with its comments and time entries.
func (s *TaskService) Delete(ctx context.Context, principal Principal, taskID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "task_id", taskID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete task", err)
			return
		}
		logger.InfoContext(ctx, "task deleted")
	}()

	if _, err = s.visible(ctx, principal, taskID); err != nil {
		return
	}
	err = fromRepo(s.tasks.DeleteTask(ctx, taskID))
	return
}
