package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

type workspaceService interface {
	Create(ctx context.Context, principal application.Principal, input application.WorkspaceInput) (persistence.WorkspaceSummary, error)
	List(ctx context.Context, principal application.Principal) ([]persistence.WorkspaceSummary, error)
	ListMembers(ctx context.Context, principal application.Principal, workspaceID string) ([]persistence.WorkspaceMember, error)
}

type WorkspaceHandler struct {
	service   workspaceService
	responder responder
	logger    *slog.Logger
}

func NewWorkspaceHandler(service workspaceService, logger *slog.Logger) *WorkspaceHandler {
	base := defaultLogger(logger)
	return &WorkspaceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WorkspaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "WorkspaceHandler", operation, attrs...)
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	workspaces, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(workspaces, toWorkspaceSummaryDTO))
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req workspaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode workspace", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
		return
	}

	workspace, err := h.service.Create(r.Context(), principal, application.WorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toWorkspaceSummaryDTO(workspace, 0))
}

func (h *WorkspaceHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	members, err := h.service.ListMembers(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(members, toWorkspaceMemberDTO))
}

type workspaceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       string  `json:"color"`
}
