package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// TimeEntryService records time spent on tasks. Durations are in seconds.
type TimeEntryService struct {
	entries     persistence.TimeEntryRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTimeEntryService constructs a time entry service with the provided dependencies.
func NewTimeEntryService(entries persistence.TimeEntryRepository, authz Authorizer, idGenerator func() string, now func() time.Time) *TimeEntryService {
	return NewTimeEntryServiceWithLogger(entries, authz, idGenerator, now, nil)
}

// NewTimeEntryServiceWithLogger constructs a time entry service with a specified logger.
func NewTimeEntryServiceWithLogger(entries persistence.TimeEntryRepository, authz Authorizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TimeEntryService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TimeEntryService{entries: entries, authz: authz, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *TimeEntryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimeEntryService", operation, attrs...)
}

func (s *TimeEntryService) ready() error {
	if s == nil || s.entries == nil || s.authz == nil {
		return fmt.Errorf("time entry service not configured")
	}
	return nil
}

// Create records time on a visible task. Stopwatch entries need a start time
// and default their end time to now.
func (s *TimeEntryService) Create(ctx context.Context, principal Principal, input TimeEntryInput) (entry persistence.TimeEntry, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", principal.UserID,
		"task_id", input.TaskID,
		"manual", input.IsManual,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create time entry", err)
			return
		}
		logger.With("time_entry_id", entry.ID, "duration_seconds", entry.Duration).InfoContext(ctx, "time entry created")
	}()

	now := s.now()
	if !input.IsManual && input.EndTime == nil {
		input.EndTime = &now
	}

	vErr := validateStruct(input)
	if input.StartTime != nil && input.EndTime != nil && input.EndTime.Before(*input.StartTime) {
		vErr.add("endTime", "must be after startTime")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.authz.Check(ctx, principal.UserID, access.Task(input.TaskID), access.WorkspaceMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}

	record := persistence.TimeEntry{
		ID:          s.idGenerator(),
		TaskID:      input.TaskID,
		UserID:      principal.UserID,
		Description: normalizeOptionalString(input.Description),
		Duration:    *input.Duration,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		IsManual:    input.IsManual,
		CreatedAt:   now,
	}
	if err = s.entries.CreateTimeEntry(ctx, record); err != nil {
		err = fromRepo(err)
		return
	}

	entry, err = s.entries.GetTimeEntry(ctx, record.ID)
	return
}

// CreateManual records a manual entry regardless of the IsManual flag in input.
func (s *TimeEntryService) CreateManual(ctx context.Context, principal Principal, input TimeEntryInput) (persistence.TimeEntry, error) {
	input.IsManual = true
	return s.Create(ctx, principal, input)
}

// List returns a visible task's entries, latest start first.
func (s *TimeEntryService) List(ctx context.Context, principal Principal, taskID string) ([]persistence.TimeEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.authz.Check(ctx, principal.UserID, access.Task(taskID), access.WorkspaceMember); err != nil {
		return nil, fromAccess(err, ErrNotFound)
	}
	return s.entries.ListTimeEntries(ctx, taskID)
}

// Delete removes an entry owned by the caller, or any entry for a workspace ADMIN or OWNER.
func (s *TimeEntryService) Delete(ctx context.Context, principal Principal, entryID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "time_entry_id", entryID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete time entry", err)
			return
		}
		logger.InfoContext(ctx, "time entry deleted")
	}()

	if _, err = s.authz.Check(ctx, principal.UserID, access.TimeEntry(entryID), access.AuthorOrWorkspaceAdmin); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}
	err = fromRepo(s.entries.DeleteTimeEntry(ctx, entryID))
	return
}
