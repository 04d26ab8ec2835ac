package application

import (
	"context"
	"log/slog"
)

// NotificationService lists notifications addressed to the caller. Nothing
// produces notifications yet, so every caller sees an empty list.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService constructs a notification service.
func NewNotificationService(logger *slog.Logger) *NotificationService {
	return &NotificationService{logger: defaultLogger(logger)}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, principal Principal) ([]Notification, error) {
	serviceLogger(ctx, s.logger, "NotificationService", "List", "principal_id", principal.UserID).
		DebugContext(ctx, "notifications listed", "count", 0)
	return []Notification{}, nil
}
