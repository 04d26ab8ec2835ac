package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/persistence"
)

const (
	recentTaskLimit     = 5
	dashboardProjectCap = 4
)

// DashboardServiceDeps captures dependencies for constructing a dashboard service.
type DashboardServiceDeps struct {
	Tasks       persistence.TaskRepository
	Projects    persistence.ProjectRepository
	TimeEntries persistence.TimeEntryRepository
	// Snapshots groups the reads of one Stats call. Optional.
	Snapshots persistence.Snapshotter
	Now       func() time.Time
	// Location sets the day boundary for today's totals. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// DashboardService summarises the caller's tasks, projects and tracked time.
type DashboardService struct {
	tasks     persistence.TaskRepository
	projects  persistence.ProjectRepository
	entries   persistence.TimeEntryRepository
	snapshots persistence.Snapshotter
	now       func() time.Time
	location  *time.Location
	logger    *slog.Logger
}

// NewDashboardService constructs a DashboardService with the provided dependencies.
func NewDashboardService(deps DashboardServiceDeps) *DashboardService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &DashboardService{
		tasks:     deps.Tasks,
		projects:  deps.Projects,
		entries:   deps.TimeEntries,
		snapshots: deps.Snapshots,
		now:       deps.Now,
		location:  deps.Location,
		logger:    defaultLogger(deps.Logger),
	}
}

func (s *DashboardService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DashboardService", operation, attrs...)
}

// Stats loads the caller's rows, inside one read snapshot when configured,
// and reduces them in memory. Tasks count when the caller created or is
// assigned to them inside one of their workspaces.
func (s *DashboardService) Stats(ctx context.Context, principal Principal) (stats DashboardStats, err error) {
	if s == nil || s.tasks == nil || s.projects == nil || s.entries == nil {
		err = fmt.Errorf("dashboard service not configured")
		return
	}

	logger := s.loggerWith(ctx, "Stats", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to compute dashboard", err)
		}
	}()

	var rows dashboardRows
	if s.snapshots == nil {
		rows, err = s.load(ctx, principal.UserID)
	} else {
		err = s.snapshots.ReadSnapshot(ctx, func(ctx context.Context) (err error) {
			rows, err = s.load(ctx, principal.UserID)
			return
		})
	}
	if err != nil {
		return
	}
	tasks, recent, projects, entries := rows.tasks, rows.recent, rows.projects, rows.entries

	byStatus := lo.CountValuesBy(tasks, func(t persistence.TaskView) persistence.TaskStatus { return t.Status })
	todaySeconds := lo.SumBy(entries, func(e persistence.TimeEntry) int64 { return e.Duration })

	activeProjects := lo.CountBy(projects, func(p persistence.ProjectSummary) bool {
		return p.Status == persistence.ProjectStatusActive
	})

	stats = DashboardStats{
		TotalTasks:      len(tasks),
		TodoTasks:       byStatus[persistence.TaskStatusTodo],
		InProgressTasks: byStatus[persistence.TaskStatusInProgress],
		CompletedTasks:  byStatus[persistence.TaskStatusDone],
		TodaySeconds:    todaySeconds,
		TodayHours:      roundHours(todaySeconds),
		TotalProjects:   len(projects),
		ActiveProjects:  activeProjects,
		RecentTasks:     recent,
		Projects:        lo.Map(lo.Subset(projects, 0, dashboardProjectCap), projectProgress),
	}
	if stats.RecentTasks == nil {
		stats.RecentTasks = []persistence.TaskView{}
	}
	return
}

type dashboardRows struct {
	tasks    []persistence.TaskView
	recent   []persistence.TaskView
	projects []persistence.ProjectSummary
	entries  []persistence.TimeEntry
}

func (s *DashboardService) load(ctx context.Context, userID string) (rows dashboardRows, err error) {
	if rows.tasks, err = s.tasks.ListTasks(ctx, persistence.TaskFilter{UserID: userID, Involving: true}); err != nil {
		return
	}
	rows.recent, err = s.tasks.ListTasks(ctx, persistence.TaskFilter{
		UserID:         userID,
		Involving:      true,
		OrderByUpdated: true,
		Limit:          recentTaskLimit,
	})
	if err != nil {
		return
	}
	if rows.projects, err = s.projects.ListWorkspaceProjectsForUser(ctx, userID); err != nil {
		return
	}

	local := s.now().In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	rows.entries, err = s.entries.ListUserTimeEntries(ctx, userID, "", midnight, midnight.AddDate(0, 0, 1))
	return
}

func projectProgress(p persistence.ProjectSummary, _ int) ProjectProgress {
	progress := 0
	if p.TaskCount > 0 {
		progress = int(math.Round(float64(p.CompletedTaskCount) / float64(p.TaskCount) * 100))
	}
	return ProjectProgress{
		ID:             p.ID,
		Name:           p.Name,
		Color:          p.Color,
		Status:         p.Status,
		TotalTasks:     p.TaskCount,
		CompletedTasks: p.CompletedTaskCount,
		Progress:       progress,
	}
}

// roundHours converts seconds to hours with one decimal.
func roundHours(seconds int64) float64 {
	return math.Round(float64(seconds)/3600*10) / 10
}
