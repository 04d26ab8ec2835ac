package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// WorkspaceService manages workspaces and their member listings.
type WorkspaceService struct {
	workspaces  persistence.WorkspaceRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewWorkspaceService constructs a workspace service with the provided dependencies.
func NewWorkspaceService(workspaces persistence.WorkspaceRepository, authz Authorizer, idGenerator func() string, now func() time.Time) *WorkspaceService {
	return NewWorkspaceServiceWithLogger(workspaces, authz, idGenerator, now, nil)
}

// NewWorkspaceServiceWithLogger constructs a workspace service with a specified logger.
func NewWorkspaceServiceWithLogger(workspaces persistence.WorkspaceRepository, authz Authorizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *WorkspaceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WorkspaceService{workspaces: workspaces, authz: authz, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *WorkspaceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WorkspaceService", operation, attrs...)
}

// Create stores a workspace with the caller as its OWNER.
func (s *WorkspaceService) Create(ctx context.Context, principal Principal, input WorkspaceInput) (summary persistence.WorkspaceSummary, err error) {
	if s == nil || s.workspaces == nil {
		err = fmt.Errorf("workspace repository not configured")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create workspace", err)
			return
		}
		logger.With("workspace_id", summary.ID).InfoContext(ctx, "workspace created")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	workspace := persistence.Workspace{
		ID:          s.idGenerator(),
		Name:        input.Name,
		Description: normalizeOptionalString(input.Description),
		Color:       colorOrDefault(input.Color),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := persistence.WorkspaceMember{
		ID:          s.idGenerator(),
		WorkspaceID: workspace.ID,
		UserID:      principal.UserID,
		Role:        persistence.RoleOwner,
		JoinedAt:    now,
	}

	if err = s.workspaces.CreateWorkspace(ctx, workspace, owner); err != nil {
		err = fromRepo(err)
		return
	}

	summary = persistence.WorkspaceSummary{Workspace: workspace, MemberCount: 1}
	return
}

// List returns the workspaces the caller belongs to, newest first.
func (s *WorkspaceService) List(ctx context.Context, principal Principal) ([]persistence.WorkspaceSummary, error) {
	if s == nil || s.workspaces == nil {
		return nil, fmt.Errorf("workspace repository not configured")
	}
	workspaces, err := s.workspaces.ListWorkspacesForUser(ctx, principal.UserID)
	if err != nil {
		logFailure(ctx, s.loggerWith(ctx, "List", "principal_id", principal.UserID), "failed to list workspaces", err)
		return nil, err
	}
	return workspaces, nil
}

// ListMembers returns the members of a workspace the caller belongs to.
// Workspaces the caller cannot see are reported as not found.
func (s *WorkspaceService) ListMembers(ctx context.Context, principal Principal, workspaceID string) (members []persistence.WorkspaceMember, err error) {
	if s == nil || s.workspaces == nil || s.authz == nil {
		err = fmt.Errorf("workspace service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListMembers", "principal_id", principal.UserID, "workspace_id", workspaceID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list workspace members", err)
		}
	}()

	if _, err = s.authz.Check(ctx, principal.UserID, access.Workspace(workspaceID), access.WorkspaceMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}

	members, err = s.workspaces.ListWorkspaceMembers(ctx, workspaceID)
	return
}

// EnsurePersonal returns the caller's first workspace, creating a personal one when none exists.
func (s *WorkspaceService) EnsurePersonal(ctx context.Context, principal Principal) (result EnsureWorkspaceResult, err error) {
	if s == nil || s.workspaces == nil {
		err = fmt.Errorf("workspace repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EnsurePersonal", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to ensure workspace", err)
			return
		}
		logger.With("workspace_id", result.Workspace.ID, "created", result.Created).InfoContext(ctx, "workspace ensured")
	}()

	existing, lookupErr := s.workspaces.FirstWorkspaceForUser(ctx, principal.UserID)
	switch {
	case lookupErr == nil:
		result = EnsureWorkspaceResult{Workspace: existing}
		return
	case !errors.Is(lookupErr, persistence.ErrNotFound):
		err = lookupErr
		return
	}

	workspace, owner := newPersonalWorkspace(s.idGenerator, principal.UserID, principal.Name, principal.Email, s.now())
	if err = s.workspaces.CreateWorkspace(ctx, workspace, owner); err != nil {
		err = fromRepo(err)
		return
	}
	result = EnsureWorkspaceResult{Workspace: workspace, Created: true}
	return
}
