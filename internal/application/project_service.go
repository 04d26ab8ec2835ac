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

// ProjectService manages projects and project membership.
type ProjectService struct {
	projects    persistence.ProjectRepository
	users       persistence.UserRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewProjectService constructs a project service with the provided dependencies.
func NewProjectService(projects persistence.ProjectRepository, users persistence.UserRepository, authz Authorizer, idGenerator func() string, now func() time.Time) *ProjectService {
	return NewProjectServiceWithLogger(projects, users, authz, idGenerator, now, nil)
}

// NewProjectServiceWithLogger constructs a project service with a specified logger.
func NewProjectServiceWithLogger(projects persistence.ProjectRepository, users persistence.UserRepository, authz Authorizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ProjectService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ProjectService{
		projects:    projects,
		users:       users,
		authz:       authz,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ProjectService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProjectService", operation, attrs...)
}

func (s *ProjectService) ready() error {
	if s == nil || s.projects == nil || s.authz == nil {
		return fmt.Errorf("project service not configured")
	}
	return nil
}

// Create stores an ACTIVE project in a workspace the caller belongs to, with the caller as OWNER.
func (s *ProjectService) Create(ctx context.Context, principal Principal, input ProjectInput) (project persistence.ProjectSummary, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "workspace_id", input.WorkspaceID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create project", err)
			return
		}
		logger.With("project_id", project.ID).InfoContext(ctx, "project created")
	}()

	vErr := validateStruct(input)
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		vErr.add("endDate", "must be after startDate")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.authz.Check(ctx, principal.UserID, access.Workspace(input.WorkspaceID), access.WorkspaceMember); err != nil {
		if errors.Is(err, access.ErrNotFound) {
			err = ErrForbidden
			return
		}
		err = fromAccess(err, ErrForbidden)
		return
	}

	now := s.now()
	record := persistence.Project{
		ID:          s.idGenerator(),
		WorkspaceID: input.WorkspaceID,
		Name:        input.Name,
		Description: normalizeOptionalString(input.Description),
		Color:       colorOrDefault(input.Color),
		Status:      persistence.ProjectStatusActive,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := persistence.ProjectMember{
		ID:        s.idGenerator(),
		ProjectID: record.ID,
		UserID:    principal.UserID,
		Role:      persistence.RoleOwner,
		JoinedAt:  now,
	}

	if err = s.projects.CreateProject(ctx, record, owner); err != nil {
		err = fromRepo(err)
		return
	}

	project, err = s.projects.GetProjectSummary(ctx, record.ID, principal.UserID)
	return
}

// List returns the projects the caller is a member of, newest first. An empty
// workspaceID lists across all of the caller's workspaces.
func (s *ProjectService) List(ctx context.Context, principal Principal, workspaceID string) ([]persistence.ProjectSummary, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	projects, err := s.projects.ListProjectsForUser(ctx, principal.UserID, strings.TrimSpace(workspaceID))
	if err != nil {
		logFailure(ctx, s.loggerWith(ctx, "List", "principal_id", principal.UserID), "failed to list projects", err)
		return nil, err
	}
	return projects, nil
}

// Get returns a project the caller is a member of.
func (s *ProjectService) Get(ctx context.Context, principal Principal, projectID string) (project persistence.ProjectSummary, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if _, err = s.authz.Check(ctx, principal.UserID, access.Project(projectID), access.ProjectMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}
	project, err = s.projects.GetProjectSummary(ctx, projectID, principal.UserID)
	err = fromRepo(err)
	return
}

// Delete removes a project and everything beneath it. Any project member may
// delete; the project is hidden from everyone else.
func (s *ProjectService) Delete(ctx context.Context, principal Principal, projectID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "project_id", projectID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete project", err)
			return
		}
		logger.InfoContext(ctx, "project deleted")
	}()

	if _, err = s.authz.Check(ctx, principal.UserID, access.Project(projectID), access.ProjectMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}
	err = fromRepo(s.projects.DeleteProject(ctx, projectID))
	return
}

// AddMember invites an existing user, found by email, into the project and its workspace.
func (s *ProjectService) AddMember(ctx context.Context, principal Principal, input AddMemberInput) (member persistence.ProjectMember, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	logger := s.loggerWith(ctx, "AddMember", "principal_id", principal.UserID, "project_id", input.ProjectID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to add project member", err)
			return
		}
		logger.With("user_id", member.UserID, "role", member.Role).InfoContext(ctx, "project member added")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var grant access.Grant
	grant, err = s.authz.Check(ctx, principal.UserID, access.Project(input.ProjectID), access.ProjectAdmin)
	if err != nil {
		err = fromAccess(err, ErrForbidden)
		return
	}

	var invitee persistence.User
	invitee, err = s.users.GetUserByEmail(ctx, input.Email)
	if err != nil {
		err = fromRepo(err)
		return
	}

	if _, lookupErr := s.projects.GetProjectMember(ctx, input.ProjectID, invitee.ID); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(lookupErr, persistence.ErrNotFound) {
		err = lookupErr
		return
	}

	role := input.Role
	if role == "" {
		role = persistence.RoleMember
	}
	now := s.now()
	inviter := principal.UserID
	record := persistence.ProjectMember{
		ID:        s.idGenerator(),
		ProjectID: input.ProjectID,
		UserID:    invitee.ID,
		Role:      role,
		InvitedBy: &inviter,
		JoinedAt:  now,
	}
	workspaceMember := &persistence.WorkspaceMember{
		ID:          s.idGenerator(),
		WorkspaceID: grant.WorkspaceID,
		UserID:      invitee.ID,
		Role:        persistence.RoleMember,
		JoinedAt:    now,
	}

	if err = s.projects.AddProjectMember(ctx, record, workspaceMember); err != nil {
		err = fromRepo(err)
		return
	}

	member, err = s.projects.GetProjectMember(ctx, input.ProjectID, invitee.ID)
	return
}

// ListMembers returns the project's members by join time. Non-members are forbidden.
func (s *ProjectService) ListMembers(ctx context.Context, principal Principal, projectID string) ([]persistence.ProjectMember, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.authz.Check(ctx, principal.UserID, access.Project(projectID), access.ProjectMember); err != nil {
		return nil, fromAccess(err, ErrForbidden)
	}
	return s.projects.ListProjectMembers(ctx, projectID)
}

// RemoveMember removes a non-owner member from the project.
func (s *ProjectService) RemoveMember(ctx context.Context, principal Principal, projectID, userID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	userID = strings.TrimSpace(userID)
	logger := s.loggerWith(ctx, "RemoveMember", "principal_id", principal.UserID, "project_id", projectID, "user_id", userID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to remove project member", err)
			return
		}
		logger.InfoContext(ctx, "project member removed")
	}()

	if userID == "" {
		err = fieldError("userId", "is required")
		return
	}

	if _, err = s.authz.Check(ctx, principal.UserID, access.Project(projectID), access.ProjectAdmin); err != nil {
		err = fromAccess(err, ErrForbidden)
		return
	}

	var target persistence.ProjectMember
	target, err = s.projects.GetProjectMember(ctx, projectID, userID)
	if err != nil {
		err = fromRepo(err)
		return
	}
	if target.Role == persistence.RoleOwner {
		err = ruleViolation("cannot remove the project owner")
		return
	}

	err = fromRepo(s.projects.RemoveProjectMember(ctx, projectID, userID))
	return
}
