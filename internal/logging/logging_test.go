package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json handler filters below level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New("warn", "json", &buf)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}

		logger.Info("hidden")
		logger.Warn("shown", "task_id", "t-1")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("expected a single log line, got %d: %q", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
			t.Fatalf("log line is not JSON: %v", err)
		}
		if entry["msg"] != "shown" || entry["task_id"] != "t-1" {
			t.Fatalf("unexpected entry: %#v", entry)
		}
	})

	t.Run("text handler", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger, err := New("debug", "text", &buf)
		if err != nil {
			t.Fatalf("New returned error: %v", err)
		}
		logger.Debug("details")
		if !strings.Contains(buf.String(), "msg=details") {
			t.Fatalf("expected text output, got %q", buf.String())
		}
	})

	t.Run("rejects unknown values", func(t *testing.T) {
		t.Parallel()

		if _, err := New("loud", "json", nil); err == nil {
			t.Fatalf("expected error for unknown level")
		}
		if _, err := New("info", "xml", nil); err == nil {
			t.Fatalf("expected error for unknown format")
		}
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil logger for empty context")
	}

	logger, _ := New("info", "json", &bytes.Buffer{})
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected logger round trip through context")
	}
}
