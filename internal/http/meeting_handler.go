package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

type meetingService interface {
	Create(ctx context.Context, principal application.Principal, input application.MeetingInput) (persistence.Meeting, error)
	List(ctx context.Context, principal application.Principal, projectID string) (application.MeetingList, error)
}

type MeetingHandler struct {
	service   meetingService
	responder responder
	logger    *slog.Logger
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	base := defaultLogger(logger)
	return &MeetingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *MeetingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MeetingHandler", operation, attrs...)
}

// List returns a flat meeting array when projectId is given, otherwise every
// project of the caller with its meetings nested.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	projectID := strings.TrimSpace(r.URL.Query().Get("projectId"))

	list, err := h.service.List(r.Context(), principal, projectID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if projectID != "" {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(list.Meetings, toMeetingDTO))
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(list.Projects, toProjectMeetingsDTO))
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req meetingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode meeting", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	var times timeFields
	input := application.MeetingInput{
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		Type:        req.Type,
		Location:    req.Location,
		ProjectID:   req.ProjectID,
		AttendeeIDs: req.AttendeeIDs,
	}
	if date := times.parse("date", req.Date); date != nil {
		input.Date = *date
	}
	if err := times.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	meeting, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Create", "meeting_id", meeting.ID, "attendees", len(meeting.Attendees)).InfoContext(r.Context(), "meeting created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toMeetingDTO(meeting, 0))
}

// meetingRequest carries Duration in minutes.
type meetingRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Date        *string  `json:"date"`
	Duration    int      `json:"duration"`
	Type        string   `json:"type"`
	Location    string   `json:"location"`
	ProjectID   string   `json:"projectId"`
	AttendeeIDs []string `json:"attendeeIds"`
}
