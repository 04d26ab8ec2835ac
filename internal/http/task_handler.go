package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

type taskService interface {
	Create(ctx context.Context, principal application.Principal, input application.TaskInput) (persistence.TaskView, error)
	List(ctx context.Context, principal application.Principal, params application.TaskListParams) ([]persistence.TaskView, error)
	Get(ctx context.Context, principal application.Principal, taskID string) (application.TaskDetail, error)
	Update(ctx context.Context, principal application.Principal, taskID string, update application.TaskUpdate) (persistence.TaskView, error)
	Delete(ctx context.Context, principal application.Principal, taskID string) error
}

type commentService interface {
	Create(ctx context.Context, principal application.Principal, input application.CommentInput) (persistence.Comment, error)
	List(ctx context.Context, principal application.Principal, taskID string) ([]persistence.Comment, error)
	Delete(ctx context.Context, principal application.Principal, commentID string) error
}

type timeEntryService interface {
	Create(ctx context.Context, principal application.Principal, input application.TimeEntryInput) (persistence.TimeEntry, error)
	CreateManual(ctx context.Context, principal application.Principal, input application.TimeEntryInput) (persistence.TimeEntry, error)
	List(ctx context.Context, principal application.Principal, taskID string) ([]persistence.TimeEntry, error)
	Delete(ctx context.Context, principal application.Principal, entryID string) error
}

// TaskHandler serves tasks together with their comments and time entries.
type TaskHandler struct {
	tasks     taskService
	comments  commentService
	entries   timeEntryService
	responder responder
	logger    *slog.Logger
}

func NewTaskHandler(tasks taskService, comments commentService, entries timeEntryService, logger *slog.Logger) *TaskHandler {
	base := defaultLogger(logger)
	return &TaskHandler{
		tasks:     tasks,
		comments:  comments,
		entries:   entries,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *TaskHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TaskHandler", operation, attrs...)
}

func (h *TaskHandler) badBody(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode request body", "error", err)
	h.responder.writeError(r.Context(), w, http.StatusBadRequest, "bad_request", errBadRequestBody)
}

// List accepts projectId, status and assigneeId query filters.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()
	tasks, err := h.tasks.List(r.Context(), principal, application.TaskListParams{
		ProjectID:  query.Get("projectId"),
		Status:     persistence.TaskStatus(strings.TrimSpace(query.Get("status"))),
		AssigneeID: strings.TrimSpace(query.Get("assigneeId")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(tasks, toTaskDTO))
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, r, "Create", err)
		return
	}

	var times timeFields
	input := application.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		Priority:    persistence.TaskPriority(req.Priority),
		Status:      persistence.TaskStatus(req.Status),
		StartDate:   times.parse("startDate", req.StartDate),
		DueDate:     times.parse("dueDate", req.DueDate),
	}
	if err := times.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), principal, input)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Create", "task_id", task.ID).InfoContext(r.Context(), "task created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTaskDTO(task, 0))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	detail, err := h.tasks.Get(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDetailDTO(detail))
}

// Update applies a partial update. Absent keys are left untouched; an
// explicit null clears description, assigneeId, startDate or dueDate.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var fields map[string]json.RawMessage
	if err := decodeJSON(w, r, &fields); err != nil {
		h.badBody(w, r, "Update", err)
		return
	}
	update, err := parseTaskUpdate(fields)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), principal, r.PathValue("id"), update)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTaskDTO(task, 0))
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.tasks.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, "Tarea eliminada exitosamente")
}

func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	comments, err := h.comments.List(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(comments, toCommentDTO))
}

func (h *TaskHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, r, "CreateComment", err)
		return
	}

	comment, err := h.comments.Create(r.Context(), principal, application.CommentInput{
		TaskID:  r.PathValue("id"),
		Content: req.Content,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCommentDTO(comment, 0))
}

func (h *TaskHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.comments.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, "Comentario eliminado exitosamente")
}

func (h *TaskHandler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	entries, err := h.entries.List(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lo.Map(entries, toTimeEntryDTO))
}

// CreateTimeEntry records a stopwatch entry, or a manual one when isManual is set.
func (h *TaskHandler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	h.createTimeEntry(w, r, "CreateTimeEntry", false)
}

// LogTime always records a manual entry.
func (h *TaskHandler) LogTime(w http.ResponseWriter, r *http.Request) {
	h.createTimeEntry(w, r, "LogTime", true)
}

func (h *TaskHandler) createTimeEntry(w http.ResponseWriter, r *http.Request, operation string, manual bool) {
	principal, _ := PrincipalFromContext(r.Context())

	var req timeEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badBody(w, r, operation, err)
		return
	}

	var times timeFields
	input := application.TimeEntryInput{
		TaskID:      r.PathValue("id"),
		Description: req.Description,
		Duration:    req.Duration,
		StartTime:   times.parse("startTime", req.StartTime),
		EndTime:     times.parse("endTime", req.EndTime),
		IsManual:    req.IsManual,
	}
	if err := times.err(); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var (
		entry persistence.TimeEntry
		err   error
	)
	if manual {
		entry, err = h.entries.CreateManual(r.Context(), principal, input)
	} else {
		entry, err = h.entries.Create(r.Context(), principal, input)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), operation, "entry_id", entry.ID, "duration_seconds", entry.Duration).InfoContext(r.Context(), "time entry recorded")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTimeEntryDTO(entry, 0))
}

func (h *TaskHandler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.entries.Delete(r.Context(), principal, r.PathValue("id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeMessage(r.Context(), w, "Registro de tiempo eliminado exitosamente")
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ProjectID   string  `json:"projectId"`
	AssigneeID  *string `json:"assigneeId"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	StartDate   *string `json:"startDate"`
	DueDate     *string `json:"dueDate"`
}

type commentRequest struct {
	Content string `json:"content"`
}

// timeEntryRequest carries Duration in seconds.
type timeEntryRequest struct {
	Description *string `json:"description"`
	Duration    *int64  `json:"duration"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	IsManual    bool    `json:"isManual"`
}

func parseTaskUpdate(fields map[string]json.RawMessage) (application.TaskUpdate, error) {
	var (
		update application.TaskUpdate
		times  timeFields
		errs   = map[string]string{}
	)

	decode := func(key string, dst any) bool {
		raw, ok := fields[key]
		if !ok || isNull(raw) {
			return false
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			errs[key] = "has the wrong type"
			return false
		}
		return true
	}

	var title string
	if decode("title", &title) {
		update.Title = &title
	}
	var status persistence.TaskStatus
	if decode("status", &status) {
		update.Status = &status
	}
	var priority persistence.TaskPriority
	if decode("priority", &priority) {
		update.Priority = &priority
	}

	if _, ok := fields["description"]; ok {
		update.Description.Set = true
		var description string
		if decode("description", &description) {
			update.Description.Value = &description
		}
	}
	if _, ok := fields["assigneeId"]; ok {
		update.AssigneeID.Set = true
		var assignee string
		if decode("assigneeId", &assignee) && strings.TrimSpace(assignee) != "" {
			update.AssigneeID.Value = &assignee
		}
	}
	update.StartDate = parseTimePatch(fields, "startDate", &times, errs)
	update.DueDate = parseTimePatch(fields, "dueDate", &times, errs)

	for field, msg := range times.errs {
		errs[field] = msg
	}
	if len(errs) > 0 {
		return application.TaskUpdate{}, &application.ValidationError{Message: "invalid task update", FieldErrors: errs}
	}
	return update, nil
}

func parseTimePatch(fields map[string]json.RawMessage, key string, times *timeFields, errs map[string]string) application.Patch[time.Time] {
	raw, ok := fields[key]
	if !ok {
		return application.Patch[time.Time]{}
	}
	patch := application.Patch[time.Time]{Set: true}
	if isNull(raw) {
		return patch
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		errs[key] = "has the wrong type"
		return patch
	}
	patch.Value = times.parse(key, &value)
	return patch
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
