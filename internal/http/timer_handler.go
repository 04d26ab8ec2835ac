package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

type timerService interface {
	Start(ctx context.Context, principal application.Principal, input application.TimerStartInput) (application.TimerState, error)
	Current(ctx context.Context, principal application.Principal) (application.TimerState, error)
	Stop(ctx context.Context, principal application.Principal, description *string) (persistence.TimeEntry, error)
	Cancel(ctx context.Context, principal application.Principal) error
}

// TimerHandler exposes the caller's server-side stopwatch.
type TimerHandler struct {
	service   timerService
	responder responder
	logger    *slog.Logger
}

func NewTimerHandler(service timerService, logger *slog.Logger) *TimerHandler {
	base := defaultLogger(logger)
	return &TimerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TimerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TimerHandler", operation, attrs...)
}

func (h *TimerHandler) Current(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	state, err := h.service.Current(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimerStateDTO(state))
}

// Start returns the running timer when it already tracks the requested task.
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req startTimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Start", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode timer", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	state, err := h.service.Start(r.Context(), principal, application.TimerStartInput{
		TaskID:      req.TaskID,
		Description: req.Description,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTimerStateDTO(state))
}

// Stop converts the running timer into a time entry.
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req stopTimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Stop", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode timer stop", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	entry, err := h.service.Stop(r.Context(), principal, req.Description)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTimeEntryDTO(entry, 0))
}

func (h *TimerHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Cancel(r.Context(), principal); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type startTimerRequest struct {
	TaskID      string  `json:"taskId"`
	Description *string `json:"description"`
}

type stopTimerRequest struct {
	Description *string `json:"description"`
}
