package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

// TimeEntryRepository implements persistence.TimeEntryRepository using SQLite.
type TimeEntryRepository struct {
	pool *ConnectionPool
}

// NewTimeEntryRepository creates a new SQLite time entry repository.
func NewTimeEntryRepository(pool *ConnectionPool) *TimeEntryRepository {
	return &TimeEntryRepository{pool: pool}
}

// CreateTimeEntry inserts a time entry.
func (r *TimeEntryRepository) CreateTimeEntry(ctx context.Context, entry persistence.TimeEntry) error {
	return insertTimeEntry(ctx, r.pool.db, entry)
}

func insertTimeEntry(ctx context.Context, q querier, entry persistence.TimeEntry) error {
	if entry.ID == "" || entry.TaskID == "" || entry.UserID == "" || entry.Duration < 0 {
		return persistence.ErrConstraintViolation
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO time_entries (id, task_id, user_id, description, duration, start_time, end_time, is_manual, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.ID,
		entry.TaskID,
		entry.UserID,
		nullString(entry.Description),
		entry.Duration,
		formatTimePtr(entry.StartTime),
		formatTimePtr(entry.EndTime),
		entry.IsManual,
		formatTime(entry.CreatedAt),
	)
	return mapError(err)
}

const timeEntrySelect = `
	SELECT e.id, e.task_id, e.user_id, e.description, e.duration, e.start_time, e.end_time, e.is_manual, e.created_at,
		u.name, u.email, u.avatar
	FROM time_entries e
	JOIN users u ON u.id = e.user_id
`

// Entries without a start time sort by creation time.
const timeEntryOrder = ` ORDER BY COALESCE(e.start_time, e.created_at) DESC, e.id DESC`

func scanTimeEntry(scan func(dest ...any) error) (persistence.TimeEntry, error) {
	var (
		entry       persistence.TimeEntry
		description sql.NullString
		name, email string
		avatar      sql.NullString
		ts          timeScanner
	)
	if err := scan(
		&entry.ID,
		&entry.TaskID,
		&entry.UserID,
		&description,
		&entry.Duration,
		ts.nullable(&entry.StartTime),
		ts.nullable(&entry.EndTime),
		&entry.IsManual,
		ts.at(&entry.CreatedAt),
		&name,
		&email,
		&avatar,
	); err != nil {
		return persistence.TimeEntry{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.TimeEntry{}, err
	}
	entry.Description = stringPtr(description)
	entry.User = userRefFrom(entry.UserID, name, email, avatar)
	return entry, nil
}

func (r *TimeEntryRepository) list(ctx context.Context, query string, args ...any) ([]persistence.TimeEntry, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.TimeEntry
	for rows.Next() {
		entry, err := scanTimeEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, mapError(rows.Err())
}

// GetTimeEntry retrieves a time entry with its user.
func (r *TimeEntryRepository) GetTimeEntry(ctx context.Context, id string) (persistence.TimeEntry, error) {
	return scanTimeEntry(r.pool.conn(ctx).QueryRowContext(ctx, timeEntrySelect+` WHERE e.id = ?`, id).Scan)
}

// ListTimeEntries returns a task's entries, latest start first.
func (r *TimeEntryRepository) ListTimeEntries(ctx context.Context, taskID string) ([]persistence.TimeEntry, error) {
	return r.list(ctx, timeEntrySelect+` WHERE e.task_id = ?`+timeEntryOrder, taskID)
}

// ListUserTimeEntries returns the user's entries started within [from, to).
func (r *TimeEntryRepository) ListUserTimeEntries(ctx context.Context, userID, taskID string, from, to time.Time) ([]persistence.TimeEntry, error) {
	return r.list(ctx, timeEntrySelect+`
		WHERE e.user_id = ?
			AND (? = '' OR e.task_id = ?)
			AND e.start_time >= ? AND e.start_time < ?
	`+timeEntryOrder, userID, taskID, taskID, formatTime(from), formatTime(to))
}

// DeleteTimeEntry removes a time entry.
func (r *TimeEntryRepository) DeleteTimeEntry(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}
