package access

import (
	"context"
	"errors"
	"testing"

	"github.com/example/taskflow/internal/persistence"
)

type membershipStub struct {
	owners     map[string]persistence.Ownership
	workspace  map[string]persistence.Role
	project    map[string]persistence.Role
	locateErr  error
	locateHits int
}

func (m *membershipStub) WorkspaceRole(_ context.Context, workspaceID, userID string) (persistence.Role, error) {
	role, ok := m.workspace[workspaceID+"/"+userID]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return role, nil
}

func (m *membershipStub) ProjectRole(_ context.Context, projectID, userID string) (persistence.Role, error) {
	role, ok := m.project[projectID+"/"+userID]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return role, nil
}

func (m *membershipStub) Locate(_ context.Context, kind persistence.ResourceKind, id string) (persistence.Ownership, error) {
	m.locateHits++
	if m.locateErr != nil {
		return persistence.Ownership{}, m.locateErr
	}
	owner, ok := m.owners[string(kind)+"/"+id]
	if !ok {
		return persistence.Ownership{}, persistence.ErrNotFound
	}
	return owner, nil
}

func newStub() *membershipStub {
	return &membershipStub{
		owners: map[string]persistence.Ownership{
			"workspace/ws":   {WorkspaceID: "ws"},
			"project/p":      {WorkspaceID: "ws", ProjectID: "p"},
			"task/t":         {WorkspaceID: "ws", ProjectID: "p", OwnerID: "owner"},
			"comment/c":      {WorkspaceID: "ws", ProjectID: "p", OwnerID: "author"},
			"time_entry/e":   {WorkspaceID: "ws", ProjectID: "p", OwnerID: "former"},
			"meeting/m":      {WorkspaceID: "ws", ProjectID: "p", OwnerID: "owner"},
			"project/orphan": {WorkspaceID: "ws2", ProjectID: "orphan"},
		},
		workspace: map[string]persistence.Role{
			"ws/owner":  persistence.RoleOwner,
			"ws/admin":  persistence.RoleAdmin,
			"ws/member": persistence.RoleMember,
			"ws/author": persistence.RoleMember,
		},
		project: map[string]persistence.Role{
			"p/owner":  persistence.RoleOwner,
			"p/member": persistence.RoleMember,
		},
	}
}

func TestChecker_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		user     string
		resource Resource
		req      Requirement
		wantErr  error
		wantRole persistence.Role
		author   bool
	}{
		{name: "workspace member reads task", user: "member", resource: Task("t"), req: WorkspaceMember, wantRole: persistence.RoleMember},
		{name: "outsider is not a member", user: "stranger", resource: Task("t"), req: WorkspaceMember, wantErr: ErrNotMember},
		{name: "missing resource", user: "owner", resource: Task("nope"), req: WorkspaceMember, wantErr: ErrNotFound},
		{name: "empty id", user: "owner", resource: Task(""), req: WorkspaceMember, wantErr: ErrNotFound},
		{name: "project member without admin", user: "member", resource: Project("p"), req: ProjectAdmin, wantErr: ErrInsufficientRole},
		{name: "project owner passes admin", user: "owner", resource: Project("p"), req: ProjectAdmin, wantRole: persistence.RoleOwner},
		{name: "workspace admin not in project", user: "admin", resource: Project("p"), req: ProjectMember, wantErr: ErrNotMember},
		{name: "author deletes own comment", user: "author", resource: Comment("c"), req: AuthorOrWorkspaceAdmin, wantRole: persistence.RoleMember, author: true},
		{name: "member cannot delete others comment", user: "member", resource: Comment("c"), req: AuthorOrWorkspaceAdmin, wantErr: ErrInsufficientRole},
		{name: "admin deletes others comment", user: "admin", resource: Comment("c"), req: AuthorOrWorkspaceAdmin, wantRole: persistence.RoleAdmin},
		{name: "author outside workspace still passes", user: "former", resource: TimeEntry("e"), req: AuthorOrWorkspaceAdmin, author: true},
		{name: "workspace scope", user: "owner", resource: Workspace("ws"), req: WorkspaceAdmin, wantRole: persistence.RoleOwner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checker := NewChecker(newStub())
			grant, err := checker.Check(context.Background(), tt.user, tt.resource, tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Check returned error: %v", err)
			}
			if grant.Role != tt.wantRole {
				t.Fatalf("expected role %q, got %q", tt.wantRole, grant.Role)
			}
			if grant.Author != tt.author {
				t.Fatalf("expected author=%v, got %v", tt.author, grant.Author)
			}
			if grant.WorkspaceID != "ws" {
				t.Fatalf("expected ownership to be returned, got %+v", grant.Ownership)
			}
		})
	}
}

func TestChecker_PropagatesLookupFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	stub := newStub()
	stub.locateErr = boom

	_, err := NewChecker(stub).Check(context.Background(), "owner", Task("t"), WorkspaceMember)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
	if Denied(err) {
		t.Fatalf("lookup failure must not read as a denial")
	}
}

func TestSatisfies(t *testing.T) {
	t.Parallel()

	cases := []struct {
		role, min persistence.Role
		want      bool
	}{
		{persistence.RoleOwner, persistence.RoleAdmin, true},
		{persistence.RoleAdmin, persistence.RoleAdmin, true},
		{persistence.RoleMember, persistence.RoleAdmin, false},
		{persistence.RoleMember, "", true},
		{"", "", false},
		{"GUEST", persistence.RoleMember, false},
	}
	for _, c := range cases {
		if got := Satisfies(c.role, c.min); got != c.want {
			t.Errorf("Satisfies(%q, %q) = %v, want %v", c.role, c.min, got, c.want)
		}
	}
}
