package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/config"
	httptransport "github.com/example/taskflow/internal/http"
	"github.com/example/taskflow/internal/logging"
	"github.com/example/taskflow/internal/persistence/sqlite"
	"github.com/example/taskflow/internal/persistence/sqlite/migration"
	"github.com/example/taskflow/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "taskflow:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("taskflow", pflag.ContinueOnError)
	config.RegisterFlags(flags)
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.LoadOptions{EnvFile: ".env", Flags: flags})
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, stdout)
	if err != nil {
		return err
	}

	pool, err := sqlite.NewConnectionPool(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	applied, err := pool.Migrate(ctx, logger)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info("database ready", "migrations_applied", applied)
	if *migrateOnly {
		return nil
	}

	app, err := newApp(cfg, pool, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	jobs := scheduler.New(logger, scheduler.WithLocation(cfg.Location))
	if _, err := jobs.AddSessionPurge(cfg.SessionPurgeSchedule, app.auth); err != nil {
		return err
	}
	jobs.Start()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("taskflow API listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Error("failed to shutdown server", "error", serr)
	}
	if serr := jobs.Stop(shutdownCtx); serr != nil {
		logger.Error("failed to stop scheduler", "error", serr)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type app struct {
	handler http.Handler
	auth    *application.AuthService
}

// newApp wires repositories, services and handlers over pool. Metrics are
// registered on reg and served from /metrics when enabled.
func newApp(cfg config.Config, pool *sqlite.ConnectionPool, logger *slog.Logger, reg *prometheus.Registry) (*app, error) {
	users := sqlite.NewUserRepository(pool)
	sessions := sqlite.NewSessionRepository(pool)
	workspaces := sqlite.NewWorkspaceRepository(pool)
	projects := sqlite.NewProjectRepository(pool)
	memberships := sqlite.NewMembershipRepository(pool)
	tasks := sqlite.NewTaskRepository(pool)
	comments := sqlite.NewCommentRepository(pool)
	timeEntries := sqlite.NewTimeEntryRepository(pool)
	timers := sqlite.NewTimerRepository(pool)
	meetings := sqlite.NewMeetingRepository(pool)

	checker := access.NewChecker(memberships)
	ids := uuid.NewString
	now := time.Now

	authService := application.NewAuthService(application.AuthServiceDeps{
		Users:       users,
		Sessions:    sessions,
		IDGenerator: ids,
		Now:         now,
		SessionTTL:  cfg.SessionTTL,
		Logger:      logger,
	})
	workspaceService := application.NewWorkspaceServiceWithLogger(workspaces, checker, ids, now, logger)
	projectService := application.NewProjectServiceWithLogger(projects, users, checker, ids, now, logger)
	commentService := application.NewCommentServiceWithLogger(comments, checker, ids, now, logger)
	timeEntryService := application.NewTimeEntryServiceWithLogger(timeEntries, checker, ids, now, logger)
	meetingService := application.NewMeetingServiceWithLogger(meetings, projects, checker, ids, now, logger)
	taskService := application.NewTaskService(application.TaskServiceDeps{
		Tasks:       tasks,
		Comments:    comments,
		TimeEntries: timeEntries,
		Memberships: memberships,
		Authz:       checker,
		IDGenerator: ids,
		Now:         now,
		Logger:      logger,
	})
	timerService := application.NewTimerService(application.TimerServiceDeps{
		Timers:      timers,
		TimeEntries: timeEntries,
		Authz:       checker,
		IDGenerator: ids,
		Now:         now,
		Location:    cfg.Location,
		Logger:      logger,
	})
	dashboardService := application.NewDashboardService(application.DashboardServiceDeps{
		Tasks:       tasks,
		Projects:    projects,
		TimeEntries: timeEntries,
		Snapshots:   pool,
		Now:         now,
		Location:    cfg.Location,
		Logger:      logger,
	})

	routerCfg := httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, workspaceService, cfg.CookieSecure, logger),
		Workspaces: httptransport.NewWorkspaceHandler(workspaceService, logger),
		Projects:   httptransport.NewProjectHandler(projectService, logger),
		Tasks:      httptransport.NewTaskHandler(taskService, commentService, timeEntryService, logger),
		Timer:      httptransport.NewTimerHandler(timerService, logger),
		Meetings:   httptransport.NewMeetingHandler(meetingService, logger),
		Dashboard:  httptransport.NewDashboardHandler(dashboardService, application.NewNotificationService(logger), logger),
		Session:    httptransport.RequireSession(authService, logger),
		Health:     pool.Ping,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	}

	if cfg.MetricsEnabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := httptransport.NewMetrics(reg)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		routerCfg.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
		routerCfg.Middleware = append(routerCfg.Middleware, metrics.Middleware)
	}

	return &app{handler: httptransport.NewRouter(routerCfg), auth: authService}, nil
}
