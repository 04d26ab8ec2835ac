package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/logging"
)

type fakeSessionValidator struct {
	principal application.Principal
	err       error
	tokens    []string
}

func (f *fakeSessionValidator) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	f.tokens = append(f.tokens, token)
	return f.principal, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, body *bytes.Buffer) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not an error document: %v (%q)", err, body.String())
	}
	return resp
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without valid session tokens", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name       string
			cookie     *http.Cookie
			header     string
			err        error
			wantStatus int
			wantCode   string
		}{
			{name: "missing credentials", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
			{name: "non bearer header", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
			{name: "unknown token", header: "Bearer nope", err: application.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
			{name: "revoked session", cookie: &http.Cookie{Name: sessionCookieName, Value: "revoked"}, err: application.ErrSessionRevoked, wantStatus: http.StatusUnauthorized, wantCode: "session_revoked"},
			{name: "expired session", header: "Bearer old", err: application.ErrSessionExpired, wantStatus: http.StatusUnauthorized, wantCode: "session_expired"},
			{name: "storage failure", header: "Bearer tok", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				req := httptest.NewRequest(http.MethodGet, "/protected", nil)
				if tc.cookie != nil {
					req.AddCookie(tc.cookie)
				}
				if tc.header != "" {
					req.Header.Set("Authorization", tc.header)
				}
				rec := httptest.NewRecorder()

				handler := RequireSession(&fakeSessionValidator{err: tc.err}, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					t.Fatal("next handler should not be called when authentication fails")
				}))
				handler.ServeHTTP(rec, req)

				if rec.Code != tc.wantStatus {
					t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
				}
				if got := decodeError(t, rec.Body); got.Code != tc.wantCode || got.Error == "" {
					t.Fatalf("unexpected error body: %#v", got)
				}
			})
		}
	})

	t.Run("attaches authenticated principal to request context", func(t *testing.T) {
		t.Parallel()

		want := application.Principal{UserID: "user-1", Email: "ana@example.com"}
		validator := &fakeSessionValidator{principal: want}

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})
		rec := httptest.NewRecorder()

		var got application.Principal
		handler := RequireSession(validator, quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				t.Fatal("expected principal in request context")
			}
			got = p
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || got != want {
			t.Fatalf("expected principal %#v with 200, got %#v with %d", want, got, rec.Code)
		}
		if len(validator.tokens) != 1 || validator.tokens[0] != "cookie-token" {
			t.Fatalf("expected cookie token to be validated, got %v", validator.tokens)
		}
	})

	t.Run("prefers the bearer header over the cookie", func(t *testing.T) {
		t.Parallel()

		validator := &fakeSessionValidator{principal: application.Principal{UserID: "user-1"}}
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "cookie-token"})

		RequireSession(validator, quietLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
			ServeHTTP(httptest.NewRecorder(), req)

		if len(validator.tokens) != 1 || validator.tokens[0] != "header-token" {
			t.Fatalf("expected header token, got %v", validator.tokens)
		}
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base, err := logging.New("info", "json", &buf)
	if err != nil {
		t.Fatalf("logging.New returned error: %v", err)
	}

	handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logging.FromContext(r.Context()) == nil {
			t.Fatal("expected request logger in context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected one completion line per request, got %d: %q", len(lines), buf.String())
	}
	var last map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &last); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if last["msg"] != "request.complete" || last["request_id"] != float64(2) || last["status"] != float64(http.StatusTeapot) {
		t.Fatalf("unexpected log entry: %#v", last)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics returned error: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := metrics.Middleware(mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/1", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/2", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "GET /api/tasks/{id}", "404")); got != 2 {
		t.Fatalf("expected 2 requests on the task route, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}

	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
