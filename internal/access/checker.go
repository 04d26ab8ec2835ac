// Package access answers "may user U act on resource R" for every handler by
// walking the resource up to its project and workspace and comparing the
// caller's membership role against a requirement.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/taskflow/internal/persistence"
)

var (
	// ErrNotFound is returned when the resource does not exist.
	ErrNotFound = errors.New("access: resource not found")
	// ErrNotMember is returned when the caller holds no membership in the required scope.
	ErrNotMember = errors.New("access: not a member")
	// ErrInsufficientRole is returned when the caller's role ranks below the requirement.
	ErrInsufficientRole = errors.New("access: insufficient role")
)

// Scope selects which membership a requirement is checked against.
type Scope int

const (
	ScopeWorkspace Scope = iota
	ScopeProject
)

func (s Scope) String() string {
	if s == ScopeProject {
		return "project"
	}
	return "workspace"
}

// Resource identifies the target of an operation.
type Resource struct {
	Kind persistence.ResourceKind
	ID   string
}

// Workspace, Project, Task, Comment, TimeEntry and Meeting build resources.
func Workspace(id string) Resource { return Resource{Kind: persistence.KindWorkspace, ID: id} }
func Project(id string) Resource   { return Resource{Kind: persistence.KindProject, ID: id} }
func Task(id string) Resource      { return Resource{Kind: persistence.KindTask, ID: id} }
func Comment(id string) Resource   { return Resource{Kind: persistence.KindComment, ID: id} }
func TimeEntry(id string) Resource { return Resource{Kind: persistence.KindTimeEntry, ID: id} }
func Meeting(id string) Resource   { return Resource{Kind: persistence.KindMeeting, ID: id} }

// Requirement describes what the caller must hold. An empty MinRole accepts
// any member. With AllowAuthor the resource's author passes without a role check.
type Requirement struct {
	Scope       Scope
	MinRole     persistence.Role
	AllowAuthor bool
}

// Common requirements.
var (
	WorkspaceMember        = Requirement{Scope: ScopeWorkspace}
	WorkspaceAdmin         = Requirement{Scope: ScopeWorkspace, MinRole: persistence.RoleAdmin}
	ProjectMember          = Requirement{Scope: ScopeProject}
	ProjectAdmin           = Requirement{Scope: ScopeProject, MinRole: persistence.RoleAdmin}
	AuthorOrWorkspaceAdmin = Requirement{Scope: ScopeWorkspace, MinRole: persistence.RoleAdmin, AllowAuthor: true}
)

// Grant is the outcome of a successful check.
type Grant struct {
	persistence.Ownership
	// Role is the caller's role in the checked scope; empty when only authorship granted access.
	Role   persistence.Role
	Author bool
}

// Checker performs authorization checks against stored memberships.
type Checker struct {
	memberships persistence.MembershipRepository
}

// NewChecker constructs a checker backed by the membership repository.
func NewChecker(memberships persistence.MembershipRepository) *Checker {
	return &Checker{memberships: memberships}
}

// Check resolves resource and verifies userID satisfies req.
func (c *Checker) Check(ctx context.Context, userID string, resource Resource, req Requirement) (Grant, error) {
	if c == nil || c.memberships == nil {
		return Grant{}, fmt.Errorf("access checker not configured")
	}
	if userID == "" {
		return Grant{}, ErrNotMember
	}
	if resource.ID == "" {
		return Grant{}, ErrNotFound
	}

	owner, err := c.memberships.Locate(ctx, resource.Kind, resource.ID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Grant{}, ErrNotFound
		}
		return Grant{}, fmt.Errorf("locate %s %s: %w", resource.Kind, resource.ID, err)
	}

	grant := Grant{Ownership: owner}
	if req.AllowAuthor && owner.OwnerID != "" && owner.OwnerID == userID {
		grant.Author = true
	}

	role, err := c.role(ctx, owner, userID, req.Scope)
	if err != nil {
		if grant.Author && errors.Is(err, ErrNotMember) {
			return grant, nil
		}
		return Grant{}, err
	}
	grant.Role = role

	if grant.Author || Satisfies(role, req.MinRole) {
		return grant, nil
	}
	return Grant{}, ErrInsufficientRole
}

func (c *Checker) role(ctx context.Context, owner persistence.Ownership, userID string, scope Scope) (persistence.Role, error) {
	var (
		role persistence.Role
		err  error
	)
	switch scope {
	case ScopeProject:
		if owner.ProjectID == "" {
			return "", fmt.Errorf("resource has no project scope")
		}
		role, err = c.memberships.ProjectRole(ctx, owner.ProjectID, userID)
	default:
		role, err = c.memberships.WorkspaceRole(ctx, owner.WorkspaceID, userID)
	}
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("lookup %s role: %w", scope, err)
	}
	return role, nil
}

// Rank orders roles; higher is more privileged. Unknown roles rank zero.
func Rank(role persistence.Role) int {
	switch role {
	case persistence.RoleOwner:
		return 3
	case persistence.RoleAdmin:
		return 2
	case persistence.RoleMember:
		return 1
	}
	return 0
}

// Satisfies reports whether role meets minRole. An empty minRole accepts any known role.
func Satisfies(role, minRole persistence.Role) bool {
	if Rank(role) == 0 {
		return false
	}
	return minRole == "" || Rank(role) >= Rank(minRole)
}

// Denied reports whether err is one of the authorization failures.
func Denied(err error) bool {
	return errors.Is(err, ErrNotMember) || errors.Is(err, ErrInsufficientRole)
}
