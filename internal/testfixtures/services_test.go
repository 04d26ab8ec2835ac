package testfixtures

import (
	"context"
	"testing"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

func TestServiceFactoryNewServices(t *testing.T) {
	harness := NewSQLiteHarness(t)
	factory := NewServiceFactory()
	services := factory.NewServices(harness)
	ctx := context.Background()

	user, err := services.Auth.Register(ctx, application.RegisterInput{
		Name:            "Ana",
		Email:           "ana@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", user.ID)
	}
	if !user.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), user.CreatedAt)
	}

	workspaces, err := services.Workspaces.List(ctx, application.Principal{UserID: user.ID})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].MemberCount != 1 {
		t.Fatalf("expected the personal workspace, got %#v", workspaces)
	}
}

func TestSeeder(t *testing.T) {
	harness := NewSQLiteHarness(t)
	seed := NewSeeder(t, harness)
	ctx := context.Background()

	owner, workspace := seed.User()
	guest, _ := seed.User()
	project := seed.Project(workspace.ID, owner.ID)
	seed.JoinProject(project, guest.ID, persistence.RoleMember)
	task := seed.Task(project.ID, owner.ID, WithTaskAssignee(guest.ID))

	role, err := harness.Memberships.WorkspaceRole(ctx, workspace.ID, guest.ID)
	if err != nil || role != persistence.RoleMember {
		t.Fatalf("expected guest to join the workspace as MEMBER, got %q (%v)", role, err)
	}
	view, err := harness.Tasks.GetTaskView(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTaskView returned error: %v", err)
	}
	if view.Assignee == nil || view.Assignee.ID != guest.ID {
		t.Fatalf("unexpected assignee: %#v", view.Assignee)
	}
}
