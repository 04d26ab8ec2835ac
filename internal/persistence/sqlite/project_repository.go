package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/taskflow/internal/persistence"
)

// ProjectRepository implements persistence.ProjectRepository using SQLite.
type ProjectRepository struct {
	pool *ConnectionPool
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(pool *ConnectionPool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// CreateProject inserts the project and its owner membership atomically.
func (r *ProjectRepository) CreateProject(ctx context.Context, project persistence.Project, owner persistence.ProjectMember) error {
	if project.ID == "" || project.WorkspaceID == "" || owner.ID == "" || owner.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, workspace_id, name, description, color, status, start_date, end_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			project.ID,
			project.WorkspaceID,
			project.Name,
			nullString(project.Description),
			project.Color,
			string(project.Status),
			formatTimePtr(project.StartDate),
			formatTimePtr(project.EndDate),
			formatTime(project.CreatedAt),
			formatTime(project.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		owner.ProjectID = project.ID
		return insertProjectMember(ctx, tx, owner)
	})
}

func insertProjectMember(ctx context.Context, tx *sql.Tx, member persistence.ProjectMember) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO project_members (id, project_id, user_id, role, invited_by, joined_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		member.ID,
		member.ProjectID,
		member.UserID,
		string(member.Role),
		nullString(member.InvitedBy),
		formatTime(member.JoinedAt),
	)
	return mapError(err)
}

// projectSummarySelect expects the viewer's user id as its first argument.
const projectSummarySelect = `
	SELECT p.id, p.workspace_id, p.name, p.description, p.color, p.status,
		p.start_date, p.end_date, p.created_at, p.updated_at,
		w.name,
		COALESCE((SELECT pm.role FROM project_members pm WHERE pm.project_id = p.id AND pm.user_id = ?), ''),
		(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id),
		(SELECT COUNT(*) FROM tasks t WHERE t.project_id = p.id AND t.status = 'DONE')
	FROM projects p
	JOIN workspaces w ON w.id = p.workspace_id
`

func scanProjectSummary(scan func(dest ...any) error) (persistence.ProjectSummary, error) {
	var (
		p           persistence.ProjectSummary
		description sql.NullString
		status      string
		role        string
		ts          timeScanner
	)
	if err := scan(
		&p.ID,
		&p.WorkspaceID,
		&p.Name,
		&description,
		&p.Color,
		&status,
		ts.nullable(&p.StartDate),
		ts.nullable(&p.EndDate),
		ts.at(&p.CreatedAt),
		ts.at(&p.UpdatedAt),
		&p.WorkspaceName,
		&role,
		&p.TaskCount,
		&p.CompletedTaskCount,
	); err != nil {
		return persistence.ProjectSummary{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.ProjectSummary{}, err
	}
	p.Description = stringPtr(description)
	p.Status = persistence.ProjectStatus(status)
	p.UserRole = persistence.Role(role)
	return p, nil
}

func (r *ProjectRepository) listSummaries(ctx context.Context, query string, args ...any) ([]persistence.ProjectSummary, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var projects []persistence.ProjectSummary
	for rows.Next() {
		p, err := scanProjectSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, mapError(rows.Err())
}

// GetProjectSummary returns a project decorated for the given viewer.
func (r *ProjectRepository) GetProjectSummary(ctx context.Context, id, userID string) (persistence.ProjectSummary, error) {
	row := r.pool.conn(ctx).QueryRowContext(ctx, projectSummarySelect+` WHERE p.id = ?`, userID, id)
	return scanProjectSummary(row.Scan)
}

// ListProjectsForUser returns the projects the user is a member of, newest first.
func (r *ProjectRepository) ListProjectsForUser(ctx context.Context, userID, workspaceID string) ([]persistence.ProjectSummary, error) {
	query := projectSummarySelect + `
		JOIN project_members me ON me.project_id = p.id AND me.user_id = ?
		WHERE (? = '' OR p.workspace_id = ?)
		ORDER BY p.created_at DESC, p.id DESC
	`
	return r.listSummaries(ctx, query, userID, userID, workspaceID, workspaceID)
}

// ListWorkspaceProjectsForUser returns every project in the user's workspaces, newest first.
func (r *ProjectRepository) ListWorkspaceProjectsForUser(ctx context.Context, userID string) ([]persistence.ProjectSummary, error) {
	query := projectSummarySelect + `
		JOIN workspace_members wm ON wm.workspace_id = p.workspace_id AND wm.user_id = ?
		ORDER BY p.created_at DESC, p.id DESC
	`
	return r.listSummaries(ctx, query, userID, userID)
}

// DeleteProject removes a project; tasks, meetings and members cascade.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

const projectMemberSelect = `
	SELECT m.id, m.project_id, m.user_id, m.role, m.invited_by, m.joined_at, u.name, u.email, u.avatar
	FROM project_members m
	JOIN users u ON u.id = m.user_id
`

func scanProjectMember(scan func(dest ...any) error) (persistence.ProjectMember, error) {
	var (
		member    persistence.ProjectMember
		role      string
		invitedBy sql.NullString
		name      string
		email     string
		avatar    sql.NullString
		ts        timeScanner
	)
	if err := scan(&member.ID, &member.ProjectID, &member.UserID, &role, &invitedBy, ts.at(&member.JoinedAt), &name, &email, &avatar); err != nil {
		return persistence.ProjectMember{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.ProjectMember{}, err
	}
	member.Role = persistence.Role(role)
	member.InvitedBy = stringPtr(invitedBy)
	member.User = userRefFrom(member.UserID, name, email, avatar)
	return member, nil
}

// ListProjectMembers returns members in the order they joined.
func (r *ProjectRepository) ListProjectMembers(ctx context.Context, projectID string) ([]persistence.ProjectMember, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, projectMemberSelect+` WHERE m.project_id = ? ORDER BY m.joined_at ASC, m.id ASC`, projectID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var members []persistence.ProjectMember
	for rows.Next() {
		member, err := scanProjectMember(rows.Scan)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, mapError(rows.Err())
}

// GetProjectMember returns a single membership.
func (r *ProjectRepository) GetProjectMember(ctx context.Context, projectID, userID string) (persistence.ProjectMember, error) {
	row := r.pool.conn(ctx).QueryRowContext(ctx, projectMemberSelect+` WHERE m.project_id = ? AND m.user_id = ?`, projectID, userID)
	return scanProjectMember(row.Scan)
}

// AddProjectMember inserts the membership and, when provided, the matching
// workspace membership if the user does not hold one yet.
func (r *ProjectRepository) AddProjectMember(ctx context.Context, member persistence.ProjectMember, workspaceMember *persistence.WorkspaceMember) error {
	if member.ID == "" || member.ProjectID == "" || member.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insertProjectMember(ctx, tx, member); err != nil {
			return err
		}
		if workspaceMember == nil {
			return nil
		}
		return insertWorkspaceMember(ctx, tx, *workspaceMember, true)
	})
}

// RemoveProjectMember deletes a membership.
func (r *ProjectRepository) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
