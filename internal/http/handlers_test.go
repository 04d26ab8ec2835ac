package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{err: &application.ValidationError{FieldErrors: map[string]string{"name": "is required"}}, wantStatus: http.StatusBadRequest, wantCode: "validation_failed"},
		{err: &application.RuleViolation{Message: "cannot remove the project owner"}, wantStatus: http.StatusBadRequest, wantCode: "rule_violation"},
		{err: application.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "invalid_credentials"},
		{err: application.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{err: fmt.Errorf("wrapped: %w", application.ErrForbidden), wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{err: application.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{err: application.ErrAlreadyExists, wantStatus: http.StatusConflict, wantCode: "already_exists"},
		{err: application.ErrTimerRunning, wantStatus: http.StatusConflict, wantCode: "timer_running"},
		{err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tc := range tests {
		t.Run(tc.wantCode, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			newResponder(quietLogger()).handleServiceError(context.Background(), rec, tc.err)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			body := decodeError(t, rec.Body)
			if body.Code != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, body.Code)
			}
			if strings.Contains(body.Error, "boom") {
				t.Fatalf("internal error details leaked: %q", body.Error)
			}
		})
	}

	t.Run("validation details are keyed by field", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		newResponder(quietLogger()).handleServiceError(context.Background(), rec, &application.ValidationError{
			FieldErrors: map[string]string{"email": "must be a valid email"},
		})
		if got := decodeError(t, rec.Body).Details["email"]; got != "must be a valid email" {
			t.Fatalf("unexpected details: %q", got)
		}
	})
}

func TestParseTaskUpdate(t *testing.T) {
	t.Parallel()

	parse := func(t *testing.T, body string) (application.TaskUpdate, error) {
		t.Helper()
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(body), &fields); err != nil {
			t.Fatalf("bad test body: %v", err)
		}
		return parseTaskUpdate(fields)
	}

	t.Run("absent keys stay untouched", func(t *testing.T) {
		t.Parallel()

		update, err := parse(t, `{"status":"DONE"}`)
		if err != nil {
			t.Fatalf("parseTaskUpdate returned error: %v", err)
		}
		if update.Status == nil || *update.Status != persistence.TaskStatusDone {
			t.Fatalf("expected status DONE, got %v", update.Status)
		}
		if update.Title != nil || update.AssigneeID.Set || update.Description.Set || update.DueDate.Set {
			t.Fatalf("expected other fields unset: %#v", update)
		}
	})

	t.Run("null clears nullable fields", func(t *testing.T) {
		t.Parallel()

		update, err := parse(t, `{"assigneeId":null,"description":null,"dueDate":null}`)
		if err != nil {
			t.Fatalf("parseTaskUpdate returned error: %v", err)
		}
		for name, patchSet := range map[string]bool{
			"assigneeId":  update.AssigneeID.Set && update.AssigneeID.Value == nil,
			"description": update.Description.Set && update.Description.Value == nil,
			"dueDate":     update.DueDate.Set && update.DueDate.Value == nil,
		} {
			if !patchSet {
				t.Errorf("expected %s to be cleared", name)
			}
		}
	})

	t.Run("values are carried through", func(t *testing.T) {
		t.Parallel()

		update, err := parse(t, `{"assigneeId":"user-2","startDate":"2024-05-06","title":"New"}`)
		if err != nil {
			t.Fatalf("parseTaskUpdate returned error: %v", err)
		}
		if update.AssigneeID.Value == nil || *update.AssigneeID.Value != "user-2" {
			t.Fatalf("unexpected assignee: %#v", update.AssigneeID)
		}
		want := time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC)
		if update.StartDate.Value == nil || !update.StartDate.Value.Equal(want) {
			t.Fatalf("unexpected start date: %#v", update.StartDate)
		}
		if update.Title == nil || *update.Title != "New" {
			t.Fatalf("unexpected title: %v", update.Title)
		}
	})

	t.Run("bad values are reported per field", func(t *testing.T) {
		t.Parallel()

		_, err := parse(t, `{"title":5,"dueDate":"tomorrow"}`)
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.FieldErrors["title"] == "" || vErr.FieldErrors["dueDate"] == "" {
			t.Fatalf("expected title and dueDate errors, got %#v", vErr.FieldErrors)
		}
	})
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	var dst loginRequest
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := decodeJSON(httptest.NewRecorder(), empty, &dst); err != nil {
		t.Fatalf("expected empty body to decode, got %v", err)
	}

	trailing := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a"} {"email":"b"}`))
	if err := decodeJSON(httptest.NewRecorder(), trailing, &dst); err == nil {
		t.Fatalf("expected trailing data to be rejected")
	}
}
