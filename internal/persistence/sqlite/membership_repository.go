package sqlite

import (
	"context"
	"fmt"

	"github.com/example/taskflow/internal/persistence"
)

// MembershipRepository implements persistence.MembershipRepository using SQLite.
type MembershipRepository struct {
	pool *ConnectionPool
}

// NewMembershipRepository creates a new SQLite membership repository.
func NewMembershipRepository(pool *ConnectionPool) *MembershipRepository {
	return &MembershipRepository{pool: pool}
}

// WorkspaceRole returns the user's role in the workspace or ErrNotFound.
func (r *MembershipRepository) WorkspaceRole(ctx context.Context, workspaceID, userID string) (persistence.Role, error) {
	var role string
	err := r.pool.conn(ctx).QueryRowContext(ctx, `
		SELECT role FROM workspace_members WHERE workspace_id = ? AND user_id = ?
	`, workspaceID, userID).Scan(&role)
	if err != nil {
		return "", mapError(err)
	}
	return persistence.Role(role), nil
}

// ProjectRole returns the user's role in the project or ErrNotFound.
func (r *MembershipRepository) ProjectRole(ctx context.Context, projectID, userID string) (persistence.Role, error) {
	var role string
	err := r.pool.conn(ctx).QueryRowContext(ctx, `
		SELECT role FROM project_members WHERE project_id = ? AND user_id = ?
	`, projectID, userID).Scan(&role)
	if err != nil {
		return "", mapError(err)
	}
	return persistence.Role(role), nil
}

// ownershipQueries resolve each resource kind to (workspace, project, owner).
var ownershipQueries = map[persistence.ResourceKind]string{
	persistence.KindWorkspace: `SELECT w.id, '', '' FROM workspaces w WHERE w.id = ?`,
	persistence.KindProject:   `SELECT p.workspace_id, p.id, '' FROM projects p WHERE p.id = ?`,
	persistence.KindTask: `
		SELECT p.workspace_id, p.id, t.created_by_id
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.id = ?`,
	persistence.KindComment: `
		SELECT p.workspace_id, p.id, c.author_id
		FROM comments c
		JOIN tasks t ON t.id = c.task_id
		JOIN projects p ON p.id = t.project_id
		WHERE c.id = ?`,
	persistence.KindTimeEntry: `
		SELECT p.workspace_id, p.id, e.user_id
		FROM time_entries e
		JOIN tasks t ON t.id = e.task_id
		JOIN projects p ON p.id = t.project_id
		WHERE e.id = ?`,
	persistence.KindMeeting: `
		SELECT p.workspace_id, p.id, m.created_by_id
		FROM meetings m JOIN projects p ON p.id = m.project_id
		WHERE m.id = ?`,
}

// Locate walks a resource up to its project and workspace.
func (r *MembershipRepository) Locate(ctx context.Context, kind persistence.ResourceKind, id string) (persistence.Ownership, error) {
	query, ok := ownershipQueries[kind]
	if !ok {
		return persistence.Ownership{}, fmt.Errorf("unknown resource kind %q", kind)
	}

	var owner persistence.Ownership
	if err := r.pool.conn(ctx).QueryRowContext(ctx, query, id).Scan(&owner.WorkspaceID, &owner.ProjectID, &owner.OwnerID); err != nil {
		return persistence.Ownership{}, mapError(err)
	}
	return owner, nil
}
