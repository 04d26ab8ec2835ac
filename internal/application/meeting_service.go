package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// MeetingService schedules project meetings.
type MeetingService struct {
	meetings    persistence.MeetingRepository
	projects    persistence.ProjectRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a meeting service with the provided dependencies.
func NewMeetingService(meetings persistence.MeetingRepository, projects persistence.ProjectRepository, authz Authorizer, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, projects, authz, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger constructs a meeting service with a specified logger.
func NewMeetingServiceWithLogger(meetings persistence.MeetingRepository, projects persistence.ProjectRepository, authz Authorizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		projects:    projects,
		authz:       authz,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

func (s *MeetingService) ready() error {
	if s == nil || s.meetings == nil || s.projects == nil || s.authz == nil {
		return fmt.Errorf("meeting service not configured")
	}
	return nil
}

// Create schedules a meeting in a project the caller belongs to. Every attendee
// must also be a member of the project.
func (s *MeetingService) Create(ctx context.Context, principal Principal, input MeetingInput) (meeting persistence.Meeting, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.AttendeeIDs = lo.Uniq(lo.Map(input.AttendeeIDs, func(id string, _ int) string {
		return strings.TrimSpace(id)
	}))
	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "project_id", input.ProjectID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create meeting", err)
			return
		}
		logger.With("meeting_id", meeting.ID, "attendees", len(meeting.Attendees)).InfoContext(ctx, "meeting created")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if _, err = s.authz.Check(ctx, principal.UserID, access.Project(input.ProjectID), access.ProjectMember); err != nil {
		err = fromAccess(err, ErrForbidden)
		return
	}

	if len(input.AttendeeIDs) > 0 {
		var members []persistence.ProjectMember
		if members, err = s.projects.ListProjectMembers(ctx, input.ProjectID); err != nil {
			return
		}
		memberIDs := lo.Map(members, func(m persistence.ProjectMember, _ int) string { return m.UserID })
		if outsiders := lo.Without(input.AttendeeIDs, memberIDs...); len(outsiders) > 0 {
			err = fieldError("attendeeIds", "must all be members of the project")
			return
		}
	}

	now := s.now()
	record := persistence.Meeting{
		ID:          s.idGenerator(),
		ProjectID:   input.ProjectID,
		CreatedByID: principal.UserID,
		Name:        input.Name,
		Description: normalizeOptionalString(input.Description),
		Date:        input.Date,
		Duration:    input.Duration,
		Type:        input.Type,
		Location:    input.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.meetings.CreateMeeting(ctx, record, input.AttendeeIDs); err != nil {
		err = fromRepo(err)
		return
	}

	meeting, err = s.meetings.GetMeeting(ctx, record.ID)
	return
}

// List returns the meetings of one project when projectID is set. Otherwise it
// returns every project of the caller by name, each with its meetings, latest first.
func (s *MeetingService) List(ctx context.Context, principal Principal, projectID string) (list MeetingList, err error) {
	if err = s.ready(); err != nil {
		return
	}

	projectID = strings.TrimSpace(projectID)
	if projectID != "" {
		if _, err = s.authz.Check(ctx, principal.UserID, access.Project(projectID), access.ProjectMember); err != nil {
			err = fromAccess(err, ErrForbidden)
			return
		}
		list.Meetings, err = s.meetings.ListMeetingsForProjects(ctx, []string{projectID})
		return
	}

	var projects []persistence.ProjectSummary
	if projects, err = s.projects.ListProjectsForUser(ctx, principal.UserID, ""); err != nil {
		return
	}
	slices.SortStableFunc(projects, func(a, b persistence.ProjectSummary) int {
		return strings.Compare(a.Name, b.Name)
	})

	ids := lo.Map(projects, func(p persistence.ProjectSummary, _ int) string { return p.ID })
	var meetings []persistence.Meeting
	if meetings, err = s.meetings.ListMeetingsForProjects(ctx, ids); err != nil {
		return
	}
	byProject := lo.GroupBy(meetings, func(m persistence.Meeting) string { return m.ProjectID })

	list.Projects = lo.Map(projects, func(p persistence.ProjectSummary, _ int) ProjectMeetings {
		grouped := byProject[p.ID]
		if grouped == nil {
			grouped = []persistence.Meeting{}
		}
		return ProjectMeetings{
			Project:  persistence.ProjectRef{ID: p.ID, Name: p.Name, Color: p.Color},
			Meetings: grouped,
		}
	})
	return
}
