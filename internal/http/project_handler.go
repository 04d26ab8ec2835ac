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

type projectService interface {
	Create(ctx context.Context, principal application.Principal, input application.ProjectInput) (persistence.ProjectSummary, error)
	List(ctx context.Context, principal application.Principal, workspaceID string) ([]persistence.ProjectSummary, error)
	Get(ctx context.Context, principal application.Principal, projectID string) (persistence.ProjectSummary, error)
	Delete(ctx context.Context, principal application.Principal, projectID string) error
	AddMember(ctx context.Context, principal application.Principal, input application.AddMemberInput) (persistence.ProjectMember, error)
	ListMembers(ctx context.Context, principal application.Principal, projectID string) ([]persistence.ProjectMember, error)
	RemoveMember(ctx context.Context, principal application.Principal, projectID, userID string) error
}

type ProjectHandler struct {
	service   projectService
	responder responder
	logger    *slog.Logger
}

func NewProjectHandler(service projectService, logger *slog.Logger) *ProjectHandler {
	base := defaultLogger(logger)
	return &ProjectHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ProjectHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ProjectHandler", operation, attrs...)
}

// List accepts an optional workspaceId query parameter.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	projects, err := h.service.List(r.Context(), principal, strings.TrimSpace(r.URL.Query().Get("workspaceId")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(projects, toProjectDTO))
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req projectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode project", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	var times timeFields
	input := application.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		WorkspaceID: req.WorkspaceID,
		StartDate:   times.parse("startDate", req.StartDate),
		EndDate:     times.parse("endDate", req.EndDate),
	}
	if err := times.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	project, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProjectDTO(project, 0))
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	project, err := h.service.Get(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toProjectDTO(project, 0))
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, "Proyecto eliminado exitosamente")
}

func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	members, err := h.service.ListMembers(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(members, toProjectMemberDTO))
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "AddMember", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode member", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	member, err := h.service.AddMember(r.Context(), principal, application.AddMemberInput{
		ProjectID: r.PathValue("id"),
		Email:     req.Email,
		Role:      persistence.Role(strings.ToUpper(strings.TrimSpace(req.Role))),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toProjectMemberDTO(member, 0))
}

// RemoveMember takes the member's user id from the userId query parameter.
func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if err := h.service.RemoveMember(r.Context(), principal, r.PathValue("id"), userID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, "Miembro eliminado exitosamente")
}

type projectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
	WorkspaceID string  `json:"workspaceId"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

type addMemberRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
