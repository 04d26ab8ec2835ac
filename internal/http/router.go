package http

import (
	"context"
	"net/http"
)

type RouterConfig struct {
	Auth       *AuthHandler
	Workspaces *WorkspaceHandler
	Projects   *ProjectHandler
	Tasks      *TaskHandler
	Timer      *TimerHandler
	Meetings   *MeetingHandler
	Dashboard  *DashboardHandler
	// Session guards every route except register, login, logout, health and metrics.
	Session func(http.Handler) http.Handler
	// Health reports storage readiness for /healthz; nil means always healthy.
	Health  func(ctx context.Context) error
	Metrics http.Handler
	// Middleware wraps the whole mux, outermost first.
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	protect := func(h http.HandlerFunc) http.Handler {
		if cfg.Session == nil {
			return h
		}
		return cfg.Session(h)
	}
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	if cfg.Auth != nil {
		mux.HandleFunc("POST /api/auth/register", cfg.Auth.Register)
		mux.HandleFunc("POST /api/auth/login", cfg.Auth.Login)
		mux.HandleFunc("POST /api/auth/logout", cfg.Auth.Logout)
		route("GET /api/auth/session", cfg.Auth.Session)
		route("POST /api/user/ensure-workspace", cfg.Auth.EnsureWorkspace)
	}

	if cfg.Workspaces != nil {
		route("GET /api/workspaces", cfg.Workspaces.List)
		route("POST /api/workspaces", cfg.Workspaces.Create)
		route("GET /api/workspaces/{id}/members", cfg.Workspaces.ListMembers)
	}

	if cfg.Projects != nil {
		route("GET /api/projects", cfg.Projects.List)
		route("POST /api/projects", cfg.Projects.Create)
		route("GET /api/projects/{id}", cfg.Projects.Get)
		route("DELETE /api/projects/{id}", cfg.Projects.Delete)
		route("GET /api/projects/{id}/members", cfg.Projects.ListMembers)
		route("POST /api/projects/{id}/members", cfg.Projects.AddMember)
		route("DELETE /api/projects/{id}/members", cfg.Projects.RemoveMember)
	}

	if cfg.Tasks != nil {
		route("GET /api/tasks", cfg.Tasks.List)
		route("POST /api/tasks", cfg.Tasks.Create)
		route("GET /api/tasks/{id}", cfg.Tasks.Get)
		route("PATCH /api/tasks/{id}", cfg.Tasks.Update)
		route("DELETE /api/tasks/{id}", cfg.Tasks.Delete)
		route("GET /api/tasks/{id}/comments", cfg.Tasks.ListComments)
		route("POST /api/tasks/{id}/comments", cfg.Tasks.CreateComment)
		route("DELETE /api/comments/{id}", cfg.Tasks.DeleteComment)
		route("GET /api/tasks/{id}/time-entries", cfg.Tasks.ListTimeEntries)
		route("POST /api/tasks/{id}/time-entries", cfg.Tasks.CreateTimeEntry)
		route("POST /api/tasks/{id}/time", cfg.Tasks.LogTime)
		route("DELETE /api/time-entries/{id}", cfg.Tasks.DeleteTimeEntry)
	}

	if cfg.Timer != nil {
		route("GET /api/timer", cfg.Timer.Current)
		route("POST /api/timer", cfg.Timer.Start)
		route("POST /api/timer/stop", cfg.Timer.Stop)
		route("DELETE /api/timer", cfg.Timer.Cancel)
	}

	if cfg.Meetings != nil {
		route("GET /api/meetings", cfg.Meetings.List)
		route("POST /api/meetings", cfg.Meetings.Create)
	}

	if cfg.Dashboard != nil {
		route("GET /api/dashboard/stats", cfg.Dashboard.Stats)
		route("GET /api/notifications", cfg.Dashboard.Notifications)
	}

	mux.HandleFunc("GET /healthz", healthz(cfg.Health))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	responder := newResponder(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				handlerLogger(r.Context(), nil, "healthz", "").ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

type healthResponse struct {
	Status string `json:"status"`
}
