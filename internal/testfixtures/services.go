package testfixtures

import (
	"io"
	"log/slog"
	"time"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Logger      *slog.Logger
	// Location sets the day boundary for timer and dashboard totals.
	Location *time.Location
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLogger overrides the discard logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// WithLocation overrides the day boundary zone.
func WithLocation(location *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = location
	}
}

// Services bundles every application service wired to one storage harness.
type Services struct {
	Auth          *application.AuthService
	Workspaces    *application.WorkspaceService
	Projects      *application.ProjectService
	Tasks         *application.TaskService
	Comments      *application.CommentService
	TimeEntries   *application.TimeEntryService
	Timer         *application.TimerService
	Meetings      *application.MeetingService
	Dashboard     *application.DashboardService
	Notifications *application.NotificationService
}

// NewServices wires every service to the harness repositories through a
// shared access checker.
func (f *ServiceFactory) NewServices(h *SQLiteHarness) Services {
	ids := f.IDGenerator.NextFunc()
	now := f.Clock.NowFunc()
	checker := access.NewChecker(h.Memberships)

	return Services{
		Auth: application.NewAuthService(application.AuthServiceDeps{
			Users:       h.Users,
			Sessions:    h.Sessions,
			IDGenerator: ids,
			Now:         now,
			Logger:      f.Logger,
		}),
		Workspaces:  application.NewWorkspaceServiceWithLogger(h.Workspaces, checker, ids, now, f.Logger),
		Projects:    application.NewProjectServiceWithLogger(h.Projects, h.Users, checker, ids, now, f.Logger),
		Comments:    application.NewCommentServiceWithLogger(h.Comments, checker, ids, now, f.Logger),
		TimeEntries: application.NewTimeEntryServiceWithLogger(h.TimeEntries, checker, ids, now, f.Logger),
		Meetings:    application.NewMeetingServiceWithLogger(h.Meetings, h.Projects, checker, ids, now, f.Logger),
		Tasks: application.NewTaskService(application.TaskServiceDeps{
			Tasks:       h.Tasks,
			Comments:    h.Comments,
			TimeEntries: h.TimeEntries,
			Memberships: h.Memberships,
			Authz:       checker,
			IDGenerator: ids,
			Now:         now,
			Logger:      f.Logger,
		}),
		Timer: application.NewTimerService(application.TimerServiceDeps{
			Timers:      h.Timers,
			TimeEntries: h.TimeEntries,
			Authz:       checker,
			IDGenerator: ids,
			Now:         now,
			Location:    f.Location,
			Logger:      f.Logger,
		}),
		Dashboard: application.NewDashboardService(application.DashboardServiceDeps{
			Tasks:       h.Tasks,
			Projects:    h.Projects,
			TimeEntries: h.TimeEntries,
			Snapshots:   h.Pool,
			Now:         now,
			Location:    f.Location,
			Logger:      f.Logger,
		}),
		Notifications: application.NewNotificationService(f.Logger),
	}
}
