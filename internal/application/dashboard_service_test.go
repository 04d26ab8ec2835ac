package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

func TestDashboardService_Stats(t *testing.T) {
	t.Parallel()

	tasks := newTaskRepositoryStub()
	for i, status := range []persistence.TaskStatus{
		persistence.TaskStatusTodo,
		persistence.TaskStatusInProgress,
		persistence.TaskStatusInReview,
		persistence.TaskStatusDone,
		persistence.TaskStatusCancelled,
		persistence.TaskStatusTodo,
	} {
		tasks.views = append(tasks.views, persistence.TaskView{Task: persistence.Task{ID: fmt.Sprintf("t-%d", i), Status: status}})
	}

	projects := newProjectRepositoryStub()
	for i := range 5 {
		status := persistence.ProjectStatusActive
		if i == 4 {
			status = persistence.ProjectStatusArchived
		}
		id := fmt.Sprintf("p-%d", i)
		projects.seedProject(
			persistence.Project{ID: id, Status: status, CreatedAt: refTime.Add(-time.Duration(i) * time.Hour)},
			persistence.ProjectMember{ProjectID: id, UserID: "ana"},
		)
	}
	summary := projects.projects["p-0"]
	summary.TaskCount, summary.CompletedTaskCount = 3, 1
	projects.projects["p-0"] = summary

	today := refTime.Add(-time.Hour)
	yesterday := refTime.Add(-24 * time.Hour)
	entries := newTimeEntryRepositoryStub(
		persistence.TimeEntry{ID: "e-1", UserID: "ana", TaskID: "t-0", Duration: 3600, StartTime: &today},
		persistence.TimeEntry{ID: "e-2", UserID: "ana", TaskID: "t-1", Duration: 1800, StartTime: &today},
		persistence.TimeEntry{ID: "e-3", UserID: "ana", TaskID: "t-1", Duration: 7200, StartTime: &yesterday},
	)

	svc := NewDashboardService(DashboardServiceDeps{
		Tasks:       tasks,
		Projects:    projects,
		TimeEntries: entries,
		Now:         fixedNow,
		Logger:      quietLogger(),
	})

	stats, err := svc.Stats(context.Background(), Principal{UserID: "ana"})
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.TotalTasks != 6 || stats.TodoTasks != 2 || stats.InProgressTasks != 1 || stats.CompletedTasks != 1 {
		t.Fatalf("unexpected task buckets: %#v", stats)
	}
	if stats.TodaySeconds != 5400 || stats.TodayHours != 1.5 {
		t.Fatalf("expected 5400 seconds and 1.5 hours today, got %d and %v", stats.TodaySeconds, stats.TodayHours)
	}
	if stats.TotalProjects != 5 || stats.ActiveProjects != 4 {
		t.Fatalf("unexpected project counts: total %d active %d", stats.TotalProjects, stats.ActiveProjects)
	}
	if len(stats.Projects) != 4 || stats.Projects[0].ID != "p-0" || stats.Projects[0].Progress != 33 {
		t.Fatalf("unexpected project progress: %#v", stats.Projects)
	}
	if len(stats.RecentTasks) != 5 {
		t.Fatalf("expected five recent tasks, got %d", len(stats.RecentTasks))
	}

	recent := tasks.filters[1]
	if !recent.Involving || !recent.OrderByUpdated || recent.Limit != 5 {
		t.Fatalf("unexpected recent task filter: %#v", recent)
	}
}

// snapshotStub runs fn directly and reports how many task reads it saw.
type snapshotStub struct {
	calls       int
	err         error
	tasks       *taskRepositoryStub
	readsInside int
}

func (s *snapshotStub) ReadSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	before := len(s.tasks.filters)
	err := fn(ctx)
	s.readsInside = len(s.tasks.filters) - before
	return err
}

func TestDashboardService_StatsReadsOneSnapshot(t *testing.T) {
	t.Parallel()

	newService := func(snapshots *snapshotStub) *DashboardService {
		return NewDashboardService(DashboardServiceDeps{
			Tasks:       snapshots.tasks,
			Projects:    newProjectRepositoryStub(),
			TimeEntries: newTimeEntryRepositoryStub(),
			Snapshots:   snapshots,
			Now:         fixedNow,
			Logger:      quietLogger(),
		})
	}

	t.Run("all reads share the snapshot", func(t *testing.T) {
		t.Parallel()

		snapshots := &snapshotStub{tasks: newTaskRepositoryStub()}
		if _, err := newService(snapshots).Stats(context.Background(), Principal{UserID: "ana"}); err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if snapshots.calls != 1 || snapshots.readsInside != 2 {
			t.Fatalf("expected one snapshot covering both task reads, got %d calls and %d reads", snapshots.calls, snapshots.readsInside)
		}
	})

	t.Run("snapshot failures surface", func(t *testing.T) {
		t.Parallel()

		snapshots := &snapshotStub{tasks: newTaskRepositoryStub(), err: errors.New("database is locked")}
		if _, err := newService(snapshots).Stats(context.Background(), Principal{UserID: "ana"}); err == nil {
			t.Fatalf("expected the snapshot error to be returned")
		}
		if len(snapshots.tasks.filters) != 0 {
			t.Fatalf("expected no reads outside the snapshot, got %d", len(snapshots.tasks.filters))
		}
	})
}

func TestRoundHours(t *testing.T) {
	t.Parallel()

	tests := map[int64]float64{0: 0, 1800: 0.5, 3599: 1, 5400: 1.5, 4000: 1.1}
	for seconds, want := range tests {
		if got := roundHours(seconds); got != want {
			t.Errorf("roundHours(%d) = %v, want %v", seconds, got, want)
		}
	}
}
