package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/taskflow/internal/persistence"
)

// WorkspaceRepository implements persistence.WorkspaceRepository using SQLite.
type WorkspaceRepository struct {
	pool *ConnectionPool
}

// NewWorkspaceRepository creates a new SQLite workspace repository.
func NewWorkspaceRepository(pool *ConnectionPool) *WorkspaceRepository {
	return &WorkspaceRepository{pool: pool}
}

// CreateWorkspace inserts the workspace and its owner membership atomically.
func (r *WorkspaceRepository) CreateWorkspace(ctx context.Context, workspace persistence.Workspace, owner persistence.WorkspaceMember) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return insertWorkspace(ctx, tx, workspace, owner)
	})
}

func insertWorkspace(ctx context.Context, tx *sql.Tx, workspace persistence.Workspace, owner persistence.WorkspaceMember) error {
	if workspace.ID == "" || owner.ID == "" || owner.UserID == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, name, description, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		workspace.ID,
		workspace.Name,
		nullString(workspace.Description),
		workspace.Color,
		formatTime(workspace.CreatedAt),
		formatTime(workspace.UpdatedAt),
	)
	if err != nil {
		return mapError(err)
	}

	owner.WorkspaceID = workspace.ID
	return insertWorkspaceMember(ctx, tx, owner, false)
}

func insertWorkspaceMember(ctx context.Context, tx *sql.Tx, member persistence.WorkspaceMember, ignoreExisting bool) error {
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	_, err := tx.ExecContext(ctx, verb+` INTO workspace_members (id, workspace_id, user_id, role, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		member.ID,
		member.WorkspaceID,
		member.UserID,
		string(member.Role),
		formatTime(member.JoinedAt),
	)
	return mapError(err)
}

const workspaceSummaryColumns = `
	w.id, w.name, w.description, w.color, w.created_at, w.updated_at,
	(SELECT COUNT(*) FROM workspace_members m WHERE m.workspace_id = w.id),
	(SELECT COUNT(*) FROM projects p WHERE p.workspace_id = w.id)
`

func scanWorkspaceSummary(scan func(dest ...any) error) (persistence.WorkspaceSummary, error) {
	var (
		ws          persistence.WorkspaceSummary
		description sql.NullString
		ts          timeScanner
	)
	if err := scan(
		&ws.ID,
		&ws.Name,
		&description,
		&ws.Color,
		ts.at(&ws.CreatedAt),
		ts.at(&ws.UpdatedAt),
		&ws.MemberCount,
		&ws.ProjectCount,
	); err != nil {
		return persistence.WorkspaceSummary{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.WorkspaceSummary{}, err
	}
	ws.Description = stringPtr(description)
	return ws, nil
}

// GetWorkspace retrieves a workspace by identifier.
func (r *WorkspaceRepository) GetWorkspace(ctx context.Context, id string) (persistence.Workspace, error) {
	summary, err := r.GetWorkspaceSummary(ctx, id)
	if err != nil {
		return persistence.Workspace{}, err
	}
	return summary.Workspace, nil
}

// GetWorkspaceSummary retrieves a workspace with its member and project counts.
func (r *WorkspaceRepository) GetWorkspaceSummary(ctx context.Context, id string) (persistence.WorkspaceSummary, error) {
	row := r.pool.conn(ctx).QueryRowContext(ctx, `SELECT `+workspaceSummaryColumns+` FROM workspaces w WHERE w.id = ?`, id)
	return scanWorkspaceSummary(row.Scan)
}

// ListWorkspacesForUser returns the workspaces the user belongs to, newest first.
func (r *WorkspaceRepository) ListWorkspacesForUser(ctx context.Context, userID string) ([]persistence.WorkspaceSummary, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, `
		SELECT `+workspaceSummaryColumns+`
		FROM workspaces w
		JOIN workspace_members me ON me.workspace_id = w.id AND me.user_id = ?
		ORDER BY w.created_at DESC, w.id DESC
	`, userID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var workspaces []persistence.WorkspaceSummary
	for rows.Next() {
		ws, err := scanWorkspaceSummary(rows.Scan)
		if err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, mapError(rows.Err())
}

// FirstWorkspaceForUser returns the earliest workspace the user joined.
func (r *WorkspaceRepository) FirstWorkspaceForUser(ctx context.Context, userID string) (persistence.Workspace, error) {
	row := r.pool.conn(ctx).QueryRowContext(ctx, `
		SELECT `+workspaceSummaryColumns+`
		FROM workspaces w
		JOIN workspace_members me ON me.workspace_id = w.id AND me.user_id = ?
		ORDER BY me.joined_at ASC, w.id ASC
		LIMIT 1
	`, userID)
	summary, err := scanWorkspaceSummary(row.Scan)
	if err != nil {
		return persistence.Workspace{}, err
	}
	return summary.Workspace, nil
}

// ListWorkspaceMembers returns members ordered OWNER, ADMIN, MEMBER.
func (r *WorkspaceRepository) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]persistence.WorkspaceMember, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, `
		SELECT m.id, m.workspace_id, m.user_id, m.role, m.joined_at, u.name, u.email, u.avatar
		FROM workspace_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.workspace_id = ?
		ORDER BY CASE m.role WHEN 'OWNER' THEN 0 WHEN 'ADMIN' THEN 1 ELSE 2 END, m.joined_at ASC
	`, workspaceID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var members []persistence.WorkspaceMember
	for rows.Next() {
		var (
			member persistence.WorkspaceMember
			role   string
			name   string
			email  string
			avatar sql.NullString
			ts     timeScanner
		)
		if err := rows.Scan(&member.ID, &member.WorkspaceID, &member.UserID, &role, ts.at(&member.JoinedAt), &name, &email, &avatar); err != nil {
			return nil, mapError(err)
		}
		if err := ts.parse(); err != nil {
			return nil, err
		}
		member.Role = persistence.Role(role)
		member.User = userRefFrom(member.UserID, name, email, avatar)
		members = append(members, member)
	}
	return members, mapError(rows.Err())
}
