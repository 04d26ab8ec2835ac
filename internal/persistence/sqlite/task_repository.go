package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/example/taskflow/internal/persistence"
)

// TaskRepository implements persistence.TaskRepository using SQLite.
type TaskRepository struct {
	pool *ConnectionPool
}

// NewTaskRepository creates a new SQLite task repository.
func NewTaskRepository(pool *ConnectionPool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

// CreateTask inserts a task.
func (r *TaskRepository) CreateTask(ctx context.Context, task persistence.Task) error {
	if task.ID == "" || task.ProjectID == "" || task.CreatedByID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, title, description, status, priority, start_date, due_date,
			created_by_id, assignee_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID,
		task.ProjectID,
		task.Title,
		nullString(task.Description),
		string(task.Status),
		string(task.Priority),
		formatTimePtr(task.StartDate),
		formatTimePtr(task.DueDate),
		task.CreatedByID,
		nullString(task.AssigneeID),
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	return mapError(err)
}

const taskColumns = `
	t.id, t.project_id, t.title, t.description, t.status, t.priority, t.start_date, t.due_date,
	t.created_by_id, t.assignee_id, t.created_at, t.updated_at
`

func scanTaskInto(task *persistence.Task, ts *timeScanner, description, assignee *sql.NullString, status, priority *string) []any {
	return []any{
		&task.ID,
		&task.ProjectID,
		&task.Title,
		description,
		status,
		priority,
		ts.nullable(&task.StartDate),
		ts.nullable(&task.DueDate),
		&task.CreatedByID,
		assignee,
		ts.at(&task.CreatedAt),
		ts.at(&task.UpdatedAt),
	}
}

func finishTask(task *persistence.Task, description, assignee sql.NullString, status, priority string) {
	task.Description = stringPtr(description)
	task.AssigneeID = stringPtr(assignee)
	task.Status = persistence.TaskStatus(status)
	task.Priority = persistence.TaskPriority(priority)
}

const taskViewSelect = `
	SELECT ` + taskColumns + `,
		p.name, p.color, p.workspace_id, w.name,
		c.name, c.email, c.avatar,
		a.name, a.email, a.avatar,
		(SELECT COUNT(*) FROM comments cm WHERE cm.task_id = t.id),
		(SELECT COUNT(*) FROM time_entries te WHERE te.task_id = t.id)
	FROM tasks t
	JOIN projects p ON p.id = t.project_id
	JOIN workspaces w ON w.id = p.workspace_id
	JOIN users c ON c.id = t.created_by_id
	LEFT JOIN users a ON a.id = t.assignee_id
`

func scanTaskView(scan func(dest ...any) error) (persistence.TaskView, error) {
	var (
		view                                    persistence.TaskView
		ts                                      timeScanner
		description, assignee                   sql.NullString
		status, priority                        string
		creatorName, creatorEmail               string
		creatorAvatar                           sql.NullString
		assigneeName, assigneeEmail, assigneeAv sql.NullString
	)
	dest := scanTaskInto(&view.Task, &ts, &description, &assignee, &status, &priority)
	dest = append(dest,
		&view.Project.Name,
		&view.Project.Color,
		&view.WorkspaceID,
		&view.WorkspaceName,
		&creatorName,
		&creatorEmail,
		&creatorAvatar,
		&assigneeName,
		&assigneeEmail,
		&assigneeAv,
		&view.CommentCount,
		&view.TimeEntryCount,
	)
	if err := scan(dest...); err != nil {
		return persistence.TaskView{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.TaskView{}, err
	}
	finishTask(&view.Task, description, assignee, status, priority)

	view.Project.ID = view.ProjectID
	view.CreatedBy = userRefFrom(view.CreatedByID, creatorName, creatorEmail, creatorAvatar)
	if view.AssigneeID != nil && assigneeName.Valid {
		ref := userRefFrom(*view.AssigneeID, assigneeName.String, assigneeEmail.String, assigneeAv)
		view.Assignee = &ref
	}
	return view, nil
}

// GetTaskView retrieves a task with its project, workspace, people and counts.
func (r *TaskRepository) GetTaskView(ctx context.Context, id string) (persistence.TaskView, error) {
	row := r.pool.conn(ctx).QueryRowContext(ctx, taskViewSelect+` WHERE t.id = ?`, id)
	return scanTaskView(row.Scan)
}

// ListTasks returns task views visible to filter.UserID, newest first.
func (r *TaskRepository) ListTasks(ctx context.Context, filter persistence.TaskFilter) ([]persistence.TaskView, error) {
	if filter.UserID == "" {
		return nil, persistence.ErrConstraintViolation
	}

	var (
		where = []string{`p.workspace_id IN (SELECT workspace_id FROM workspace_members WHERE user_id = ?)`}
		args  = []any{filter.UserID}
	)
	if filter.ProjectID != "" {
		where = append(where, `t.project_id = ?`)
		args = append(args, filter.ProjectID)
	}
	if filter.Status != "" {
		where = append(where, `t.status = ?`)
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != "" {
		where = append(where, `t.assignee_id = ?`)
		args = append(args, filter.AssigneeID)
	}
	if filter.Involving {
		where = append(where, `(t.created_by_id = ? OR t.assignee_id = ?)`)
		args = append(args, filter.UserID, filter.UserID)
	}

	order := ` ORDER BY t.created_at DESC, t.id DESC`
	if filter.OrderByUpdated {
		order = ` ORDER BY t.updated_at DESC, t.id DESC`
	}
	query := taskViewSelect + ` WHERE ` + strings.Join(where, " AND ") + order
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var tasks []persistence.TaskView
	for rows.Next() {
		view, err := scanTaskView(rows.Scan)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, view)
	}
	return tasks, mapError(rows.Err())
}

// UpdateTask writes the columns named by changes and updated_at.
func (r *TaskRepository) UpdateTask(ctx context.Context, id string, changes persistence.TaskChanges) error {
	var (
		set  []string
		args []any
	)
	assign := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}

	if changes.Title != nil {
		assign("title", *changes.Title)
	}
	if changes.Description.Set {
		assign("description", nullString(changes.Description.Value))
	}
	if changes.Status != nil {
		assign("status", string(*changes.Status))
	}
	if changes.Priority != nil {
		assign("priority", string(*changes.Priority))
	}
	if changes.StartDate.Set {
		assign("start_date", formatTimePtr(changes.StartDate.Value))
	}
	if changes.DueDate.Set {
		assign("due_date", formatTimePtr(changes.DueDate.Value))
	}
	if changes.AssigneeID.Set {
		assign("assignee_id", nullString(changes.AssigneeID.Value))
	}
	assign("updated_at", formatTime(changes.UpdatedAt))
	args = append(args, id)

	result, err := r.pool.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

// DeleteTask removes a task; comments, time entries and timers cascade.
func (r *TaskRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}
