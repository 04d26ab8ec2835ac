package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/taskflow/internal/application"
)

const maxBodyBytes = 1 << 20

var (
	errBadRequestBody      = errors.New("Cuerpo de la solicitud inválido")
	errMissingSessionToken = errors.New("No autorizado")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: message, Code: code})
}

func (r responder) writeMessage(ctx context.Context, w http.ResponseWriter, message string) {
	r.writeJSON(ctx, w, http.StatusOK, messageResponse{Message: message})
}

// handleServiceError maps application errors onto status codes. Anything
// unrecognised is logged and reported as a generic internal error.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var (
		vErr *application.ValidationError
		rule *application.RuleViolation
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			Error:   "Datos inválidos",
			Code:    "validation_failed",
			Details: vErr.FieldErrors,
		})
	case errors.As(err, &rule):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: rule.Message, Code: "rule_violation"})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, "invalid_credentials", errors.New("Credenciales inválidas"))
	case errors.Is(err, application.ErrSessionExpired):
		r.writeError(ctx, w, http.StatusUnauthorized, "session_expired", errors.New("La sesión ha expirado"))
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeError(ctx, w, http.StatusUnauthorized, "session_revoked", errors.New("La sesión ha sido cerrada"))
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, application.ErrForbidden):
		r.writeError(ctx, w, http.StatusForbidden, "forbidden", nil)
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, application.ErrTimerRunning):
		r.writeError(ctx, w, http.StatusConflict, "timer_running", errors.New("Ya hay un temporizador activo para otra tarea"))
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeError(ctx, w, http.StatusConflict, "already_exists", nil)
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unhandled service error", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return handlerLogger(ctx, r.logger, "responder", "")
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Solicitud inválida"
	case http.StatusUnauthorized:
		return "No autorizado"
	case http.StatusForbidden:
		return "No tienes permisos para realizar esta acción"
	case http.StatusNotFound:
		return "Recurso no encontrado"
	case http.StatusConflict:
		return "El recurso ya existe"
	default:
		return "Error interno del servidor"
	}
}

type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decodeJSON reads a single JSON document into dst. An empty body decodes as
// an empty object so optional payloads may be omitted.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON document")
	}
	return nil
}

// timeFields parses optional client timestamps, accepting RFC 3339 or plain
// dates. Bad values are collected under their JSON field names.
type timeFields struct {
	errs map[string]string
}

func (f *timeFields) parse(field string, raw *string) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	value := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if parsed, err := time.Parse(layout, value); err == nil {
			parsed = parsed.UTC()
			return &parsed
		}
	}
	if f.errs == nil {
		f.errs = make(map[string]string)
	}
	f.errs[field] = fmt.Sprintf("must be an RFC 3339 timestamp or a YYYY-MM-DD date, got %q", value)
	return nil
}

func (f *timeFields) err() error {
	if len(f.errs) == 0 {
		return nil
	}
	return &application.ValidationError{Message: "invalid timestamps", FieldErrors: f.errs}
}
