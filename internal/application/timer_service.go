package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// TimerServiceDeps captures dependencies for constructing a timer service.
type TimerServiceDeps struct {
	Timers      persistence.TimerRepository
	TimeEntries persistence.TimeEntryRepository
	Authz       Authorizer
	IDGenerator func() string
	Now         func() time.Time
	// Location sets the day boundary for today's totals. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
}

// TimerService runs one stopwatch per user. Starting while idle moves the
// user to running; stopping or cancelling returns them to idle.
type TimerService struct {
	timers      persistence.TimerRepository
	entries     persistence.TimeEntryRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewTimerService constructs a TimerService with the provided dependencies.
func NewTimerService(deps TimerServiceDeps) *TimerService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &TimerService{
		timers:      deps.Timers,
		entries:     deps.TimeEntries,
		authz:       deps.Authz,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		location:    deps.Location,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *TimerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimerService", operation, attrs...)
}

func (s *TimerService) ready() error {
	if s == nil || s.timers == nil || s.entries == nil || s.authz == nil {
		return fmt.Errorf("timer service not configured")
	}
	return nil
}

// Start begins timing a visible task. Starting the task that is already
// running returns the running timer; any other task fails with ErrTimerRunning.
func (s *TimerService) Start(ctx context.Context, principal Principal, input TimerStartInput) (state TimerState, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Start", "principal_id", principal.UserID, "task_id", input.TaskID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to start timer", err)
			return
		}
		logger.InfoContext(ctx, "timer running")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.authz.Check(ctx, principal.UserID, access.Task(input.TaskID), access.WorkspaceMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}

	timer := persistence.ActiveTimer{
		UserID:      principal.UserID,
		TaskID:      input.TaskID,
		Description: normalizeOptionalString(input.Description),
		StartedAt:   s.now(),
	}
	if startErr := s.timers.StartTimer(ctx, timer); startErr != nil {
		if !errors.Is(startErr, persistence.ErrDuplicate) {
			err = fromRepo(startErr)
			return
		}
		if timer, err = s.timers.GetTimer(ctx, principal.UserID); err != nil {
			err = fromRepo(err)
			return
		}
		if timer.TaskID != input.TaskID {
			err = ErrTimerRunning
			return
		}
	}

	state, err = s.state(ctx, timer)
	return
}

// Current reports the caller's running timer, or an idle state with a nil Timer.
func (s *TimerService) Current(ctx context.Context, principal Principal) (TimerState, error) {
	if err := s.ready(); err != nil {
		return TimerState{}, err
	}
	timer, err := s.timers.GetTimer(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return TimerState{}, nil
		}
		return TimerState{}, err
	}
	return s.state(ctx, timer)
}

// Stop turns the running timer into a stopwatch time entry. An explicit
// description replaces the one given at start.
func (s *TimerService) Stop(ctx context.Context, principal Principal, description *string) (entry persistence.TimeEntry, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Stop", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to stop timer", err)
			return
		}
		logger.With("time_entry_id", entry.ID, "duration_seconds", entry.Duration).InfoContext(ctx, "timer stopped")
	}()

	var timer persistence.ActiveTimer
	if timer, err = s.timers.GetTimer(ctx, principal.UserID); err != nil {
		err = fromRepo(err)
		return
	}

	now := s.now()
	start := timer.StartedAt
	note := normalizeOptionalString(description)
	if note == nil {
		note = timer.Description
	}
	record := persistence.TimeEntry{
		ID:          s.idGenerator(),
		TaskID:      timer.TaskID,
		UserID:      principal.UserID,
		Description: note,
		Duration:    elapsedSeconds(start, now),
		StartTime:   &start,
		EndTime:     &now,
		CreatedAt:   now,
	}
	if err = s.timers.StopTimer(ctx, principal.UserID, record); err != nil {
		err = fromRepo(err)
		return
	}

	entry, err = s.entries.GetTimeEntry(ctx, record.ID)
	return
}

// Cancel discards the running timer without recording time.
func (s *TimerService) Cancel(ctx context.Context, principal Principal) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.timers.DeleteTimer(ctx, principal.UserID); err != nil {
		err = fromRepo(err)
		logFailure(ctx, s.loggerWith(ctx, "Cancel", "principal_id", principal.UserID), "failed to cancel timer", err)
		return err
	}
	return nil
}

func (s *TimerService) state(ctx context.Context, timer persistence.ActiveTimer) (TimerState, error) {
	now := s.now()
	local := now.In(s.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)

	entries, err := s.entries.ListUserTimeEntries(ctx, timer.UserID, timer.TaskID, midnight, midnight.AddDate(0, 0, 1))
	if err != nil {
		return TimerState{}, err
	}

	return TimerState{
		Timer:          &timer,
		ElapsedSeconds: elapsedSeconds(timer.StartedAt, now),
		TodaySeconds: lo.SumBy(entries, func(entry persistence.TimeEntry) int64 {
			return entry.Duration
		}),
	}, nil
}

// elapsedSeconds truncates to whole seconds and never goes negative.
func elapsedSeconds(start, end time.Time) int64 {
	seconds := int64(end.Sub(start) / time.Second)
	if seconds < 0 {
		return 0
	}
	return seconds
}
