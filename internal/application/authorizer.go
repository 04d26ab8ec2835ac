package application

import (
	"context"
	"strings"

	"github.com/example/taskflow/internal/access"
)

// Authorizer checks the caller's membership against a resource. *access.Checker satisfies it.
type Authorizer interface {
	Check(ctx context.Context, userID string, resource access.Resource, req access.Requirement) (access.Grant, error)
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func colorOrDefault(color string) string {
	if trimmed := strings.TrimSpace(color); trimmed != "" {
		return trimmed
	}
	return defaultColor
}
