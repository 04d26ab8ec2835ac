package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/taskflow/internal/persistence"
)

// TimerRepository implements persistence.TimerRepository using SQLite.
type TimerRepository struct {
	pool *ConnectionPool
}

// NewTimerRepository creates a new SQLite timer repository.
func NewTimerRepository(pool *ConnectionPool) *TimerRepository {
	return &TimerRepository{pool: pool}
}

// GetTimer returns the user's running timer or ErrNotFound.
func (r *TimerRepository) GetTimer(ctx context.Context, userID string) (persistence.ActiveTimer, error) {
	var (
		timer       persistence.ActiveTimer
		description sql.NullString
		ts          timeScanner
	)
	err := r.pool.conn(ctx).QueryRowContext(ctx, `
		SELECT user_id, task_id, description, started_at FROM active_timers WHERE user_id = ?
	`, userID).Scan(&timer.UserID, &timer.TaskID, &description, ts.at(&timer.StartedAt))
	if err != nil {
		return persistence.ActiveTimer{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.ActiveTimer{}, err
	}
	timer.Description = stringPtr(description)
	return timer, nil
}

// StartTimer inserts the timer. The user_id primary key makes the first writer win.
func (r *TimerRepository) StartTimer(ctx context.Context, timer persistence.ActiveTimer) error {
	if timer.UserID == "" || timer.TaskID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO active_timers (user_id, task_id, description, started_at) VALUES (?, ?, ?, ?)
	`, timer.UserID, timer.TaskID, nullString(timer.Description), formatTime(timer.StartedAt))
	return mapError(err)
}

// StopTimer clears the user's timer and records entry in one transaction.
func (r *TimerRepository) StopTimer(ctx context.Context, userID string, entry persistence.TimeEntry) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM active_timers WHERE user_id = ?`, userID)
		if err != nil {
			return mapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		return insertTimeEntry(ctx, tx, entry)
	})
}

// DeleteTimer discards the user's timer.
func (r *TimerRepository) DeleteTimer(ctx context.Context, userID string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM active_timers WHERE user_id = ?`, userID)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}
