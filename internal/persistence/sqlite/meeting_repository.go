package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/taskflow/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite.
type MeetingRepository struct {
	pool *ConnectionPool
}

// NewMeetingRepository creates a new SQLite meeting repository.
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

// CreateMeeting inserts the meeting and its attendee rows atomically.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting, attendeeIDs []string) error {
	if meeting.ID == "" || meeting.ProjectID == "" || meeting.CreatedByID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO meetings (id, project_id, created_by_id, name, description, date, duration, type, location, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			meeting.ID,
			meeting.ProjectID,
			meeting.CreatedByID,
			meeting.Name,
			nullString(meeting.Description),
			formatTime(meeting.Date),
			meeting.Duration,
			meeting.Type,
			meeting.Location,
			formatTime(meeting.CreatedAt),
			formatTime(meeting.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if len(attendeeIDs) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO meeting_attendees (meeting_id, user_id) VALUES (?, ?)`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, userID := range attendeeIDs {
			if _, err := stmt.ExecContext(ctx, meeting.ID, userID); err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

const meetingSelect = `
	SELECT m.id, m.project_id, m.created_by_id, m.name, m.description, m.date, m.duration, m.type, m.location,
		m.created_at, m.updated_at,
		p.name, p.color,
		u.name, u.email, u.avatar
	FROM meetings m
	JOIN projects p ON p.id = m.project_id
	JOIN users u ON u.id = m.created_by_id
`

func scanMeeting(scan func(dest ...any) error) (persistence.Meeting, error) {
	var (
		meeting     persistence.Meeting
		description sql.NullString
		name, email string
		avatar      sql.NullString
		ts          timeScanner
	)
	if err := scan(
		&meeting.ID,
		&meeting.ProjectID,
		&meeting.CreatedByID,
		&meeting.Name,
		&description,
		ts.at(&meeting.Date),
		&meeting.Duration,
		&meeting.Type,
		&meeting.Location,
		ts.at(&meeting.CreatedAt),
		ts.at(&meeting.UpdatedAt),
		&meeting.Project.Name,
		&meeting.Project.Color,
		&name,
		&email,
		&avatar,
	); err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.Meeting{}, err
	}
	meeting.Description = stringPtr(description)
	meeting.Project.ID = meeting.ProjectID
	meeting.CreatedBy = userRefFrom(meeting.CreatedByID, name, email, avatar)
	return meeting, nil
}

// GetMeeting retrieves a meeting with its project, creator and attendees.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	meeting, err := scanMeeting(r.pool.conn(ctx).QueryRowContext(ctx, meetingSelect+` WHERE m.id = ?`, id).Scan)
	if err != nil {
		return persistence.Meeting{}, err
	}
	meetings := []persistence.Meeting{meeting}
	if err := r.attachAttendees(ctx, meetings); err != nil {
		return persistence.Meeting{}, err
	}
	return meetings[0], nil
}

// ListMeetingsForProjects returns the meetings of the given projects, latest date first.
func (r *MeetingRepository) ListMeetingsForProjects(ctx context.Context, projectIDs []string) ([]persistence.Meeting, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}

	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	rows, err := r.pool.conn(ctx).QueryContext(ctx, meetingSelect+`
		WHERE m.project_id IN (`+placeholders(len(projectIDs))+`)
		ORDER BY m.date DESC, m.id DESC
	`, args...)
	if err != nil {
		return nil, mapError(err)
	}

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, err
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err)
	}
	rows.Close()

	if err := r.attachAttendees(ctx, meetings); err != nil {
		return nil, err
	}
	return meetings, nil
}

func (r *MeetingRepository) attachAttendees(ctx context.Context, meetings []persistence.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}

	index := make(map[string]int, len(meetings))
	args := make([]any, len(meetings))
	for i, m := range meetings {
		index[m.ID] = i
		args[i] = m.ID
		meetings[i].Attendees = []persistence.UserRef{}
	}

	rows, err := r.pool.conn(ctx).QueryContext(ctx, `
		SELECT a.meeting_id, u.id, u.name, u.email, u.avatar
		FROM meeting_attendees a
		JOIN users u ON u.id = a.user_id
		WHERE a.meeting_id IN (`+placeholders(len(meetings))+`)
		ORDER BY u.name ASC, u.id ASC
	`, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			meetingID, userID, name, email string
			avatar                         sql.NullString
		)
		if err := rows.Scan(&meetingID, &userID, &name, &email, &avatar); err != nil {
			return mapError(err)
		}
		i := index[meetingID]
		meetings[i].Attendees = append(meetings[i].Attendees, userRefFrom(userID, name, email, avatar))
	}
	return mapError(rows.Err())
}
