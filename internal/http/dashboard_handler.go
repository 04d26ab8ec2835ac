package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/application"
)

type dashboardService interface {
	Stats(ctx context.Context, principal application.Principal) (application.DashboardStats, error)
}

type notificationService interface {
	List(ctx context.Context, principal application.Principal) ([]application.Notification, error)
}

// DashboardHandler serves the caller's summary and notification feed.
type DashboardHandler struct {
	stats         dashboardService
	notifications notificationService
	responder     responder
}

func NewDashboardHandler(stats dashboardService, notifications notificationService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		stats:         stats,
		notifications: notifications,
		responder:     newResponder(defaultLogger(logger)),
	}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	stats, err := h.stats.Stats(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toDashboardStatsDTO(stats))
}

func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	notifications, err := h.notifications.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(notifications, toNotificationDTO))
}
