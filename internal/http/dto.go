package http

import (
	"time"

	"github.com/samber/lo"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/persistence"
)

type userDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Avatar    *string   `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt.UTC(),
		UpdatedAt: user.UpdatedAt.UTC(),
	}
}

type userRefDTO struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

func toUserRefDTO(ref persistence.UserRef) userRefDTO {
	return userRefDTO{ID: ref.ID, Name: ref.Name, Email: ref.Email, Avatar: ref.Avatar}
}

type workspaceDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toWorkspaceDTO(ws persistence.Workspace) workspaceDTO {
	return workspaceDTO{
		ID:          ws.ID,
		Name:        ws.Name,
		Description: ws.Description,
		Color:       ws.Color,
		CreatedAt:   ws.CreatedAt.UTC(),
		UpdatedAt:   ws.UpdatedAt.UTC(),
	}
}

type workspaceSummaryDTO struct {
	workspaceDTO
	MemberCount  int `json:"memberCount"`
	ProjectCount int `json:"projectCount"`
}

func toWorkspaceSummaryDTO(summary persistence.WorkspaceSummary, _ int) workspaceSummaryDTO {
	return workspaceSummaryDTO{
		workspaceDTO: toWorkspaceDTO(summary.Workspace),
		MemberCount:  summary.MemberCount,
		ProjectCount: summary.ProjectCount,
	}
}

type workspaceMemberDTO struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspaceId"`
	UserID      string     `json:"userId"`
	Role        string     `json:"role"`
	JoinedAt    time.Time  `json:"joinedAt"`
	User        userRefDTO `json:"user"`
}

func toWorkspaceMemberDTO(m persistence.WorkspaceMember, _ int) workspaceMemberDTO {
	return workspaceMemberDTO{
		ID:          m.ID,
		WorkspaceID: m.WorkspaceID,
		UserID:      m.UserID,
		Role:        string(m.Role),
		JoinedAt:    m.JoinedAt.UTC(),
		User:        toUserRefDTO(m.User),
	}
}

type projectDTO struct {
	ID                 string     `json:"id"`
	WorkspaceID        string     `json:"workspaceId"`
	WorkspaceName      string     `json:"workspaceName"`
	Name               string     `json:"name"`
	Description        *string    `json:"description"`
	Color              string     `json:"color"`
	Status             string     `json:"status"`
	StartDate          *time.Time `json:"startDate"`
	EndDate            *time.Time `json:"endDate"`
	UserRole           string     `json:"userRole,omitempty"`
	TaskCount          int        `json:"taskCount"`
	CompletedTaskCount int        `json:"completedTaskCount"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func toProjectDTO(p persistence.ProjectSummary, _ int) projectDTO {
	return projectDTO{
		ID:                 p.ID,
		WorkspaceID:        p.WorkspaceID,
		WorkspaceName:      p.WorkspaceName,
		Name:               p.Name,
		Description:        p.Description,
		Color:              p.Color,
		Status:             string(p.Status),
		StartDate:          utcPtr(p.StartDate),
		EndDate:            utcPtr(p.EndDate),
		UserRole:           string(p.UserRole),
		TaskCount:          p.TaskCount,
		CompletedTaskCount: p.CompletedTaskCount,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

type projectRefDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func toProjectRefDTO(ref persistence.ProjectRef) projectRefDTO {
	return projectRefDTO{ID: ref.ID, Name: ref.Name, Color: ref.Color}
}

type projectMemberDTO struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	Role      string     `json:"role"`
	InvitedBy *string    `json:"invitedBy"`
	JoinedAt  time.Time  `json:"joinedAt"`
	User      userRefDTO `json:"user"`
}

func toProjectMemberDTO(m persistence.ProjectMember, _ int) projectMemberDTO {
	return projectMemberDTO{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		InvitedBy: m.InvitedBy,
		JoinedAt:  m.JoinedAt.UTC(),
		User:      toUserRefDTO(m.User),
	}
}

type taskDTO struct {
	ID             string        `json:"id"`
	ProjectID      string        `json:"projectId"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	Status         string        `json:"status"`
	Priority       string        `json:"priority"`
	StartDate      *time.Time    `json:"startDate"`
	DueDate        *time.Time    `json:"dueDate"`
	CreatedByID    string        `json:"createdById"`
	AssigneeID     *string       `json:"assigneeId"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	Project        projectRefDTO `json:"project"`
	WorkspaceID    string        `json:"workspaceId"`
	WorkspaceName  string        `json:"workspaceName"`
	CreatedBy      userRefDTO    `json:"createdBy"`
	Assignee       *userRefDTO   `json:"assignee"`
	CommentCount   int           `json:"commentCount"`
	TimeEntryCount int           `json:"timeEntryCount"`
}

func toTaskDTO(v persistence.TaskView, _ int) taskDTO {
	dto := taskDTO{
		ID:             v.ID,
		ProjectID:      v.ProjectID,
		Title:          v.Title,
		Description:    v.Description,
		Status:         string(v.Status),
		Priority:       string(v.Priority),
		StartDate:      utcPtr(v.StartDate),
		DueDate:        utcPtr(v.DueDate),
		CreatedByID:    v.CreatedByID,
		AssigneeID:     v.AssigneeID,
		CreatedAt:      v.CreatedAt.UTC(),
		UpdatedAt:      v.UpdatedAt.UTC(),
		Project:        toProjectRefDTO(v.Project),
		WorkspaceID:    v.WorkspaceID,
		WorkspaceName:  v.WorkspaceName,
		CreatedBy:      toUserRefDTO(v.CreatedBy),
		CommentCount:   v.CommentCount,
		TimeEntryCount: v.TimeEntryCount,
	}
	if v.Assignee != nil {
		assignee := toUserRefDTO(*v.Assignee)
		dto.Assignee = &assignee
	}
	return dto
}

type taskDetailDTO struct {
	taskDTO
	Comments     []commentDTO   `json:"comments"`
	TimeEntries  []timeEntryDTO `json:"timeEntries"`
	TotalSeconds int64          `json:"totalSeconds"`
}

func toTaskDetailDTO(d application.TaskDetail) taskDetailDTO {
	return taskDetailDTO{
		taskDTO:      toTaskDTO(d.TaskView, 0),
		Comments:     lo.Map(d.Comments, toCommentDTO),
		TimeEntries:  lo.Map(d.TimeEntries, toTimeEntryDTO),
		TotalSeconds: d.TotalSeconds,
	}
}

type commentDTO struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	AuthorID  string     `json:"authorId"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Author    userRefDTO `json:"author"`
}

func toCommentDTO(c persistence.Comment, _ int) commentDTO {
	return commentDTO{
		ID:        c.ID,
		TaskID:    c.TaskID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
		Author:    toUserRefDTO(c.Author),
	}
}

// timeEntryDTO reports Duration in seconds.
type timeEntryDTO struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"taskId"`
	UserID      string     `json:"userId"`
	Description *string    `json:"description"`
	Duration    int64      `json:"duration"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
	IsManual    bool       `json:"isManual"`
	CreatedAt   time.Time  `json:"createdAt"`
	User        userRefDTO `json:"user"`
}

func toTimeEntryDTO(e persistence.TimeEntry, _ int) timeEntryDTO {
	return timeEntryDTO{
		ID:          e.ID,
		TaskID:      e.TaskID,
		UserID:      e.UserID,
		Description: e.Description,
		Duration:    e.Duration,
		StartTime:   utcPtr(e.StartTime),
		EndTime:     utcPtr(e.EndTime),
		IsManual:    e.IsManual,
		CreatedAt:   e.CreatedAt.UTC(),
		User:        toUserRefDTO(e.User),
	}
}

type timerDTO struct {
	TaskID      string    `json:"taskId"`
	Description *string   `json:"description"`
	StartedAt   time.Time `json:"startedAt"`
}

type timerStateDTO struct {
	Timer          *timerDTO `json:"timer"`
	ElapsedSeconds int64     `json:"elapsedSeconds"`
	TodaySeconds   int64     `json:"todaySeconds"`
}

func toTimerStateDTO(state application.TimerState) timerStateDTO {
	dto := timerStateDTO{ElapsedSeconds: state.ElapsedSeconds, TodaySeconds: state.TodaySeconds}
	if state.Timer != nil {
		dto.Timer = &timerDTO{
			TaskID:      state.Timer.TaskID,
			Description: state.Timer.Description,
			StartedAt:   state.Timer.StartedAt.UTC(),
		}
	}
	return dto
}

// meetingDTO reports Duration in minutes.
type meetingDTO struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"projectId"`
	CreatedByID string        `json:"createdById"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Date        time.Time     `json:"date"`
	Duration    int           `json:"duration"`
	Type        string        `json:"type"`
	Location    string        `json:"location"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	Project     projectRefDTO `json:"project"`
	CreatedBy   userRefDTO    `json:"createdBy"`
	Attendees   []userRefDTO  `json:"attendees"`
}

func toMeetingDTO(m persistence.Meeting, _ int) meetingDTO {
	return meetingDTO{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		CreatedByID: m.CreatedByID,
		Name:        m.Name,
		Description: m.Description,
		Date:        m.Date.UTC(),
		Duration:    m.Duration,
		Type:        m.Type,
		Location:    m.Location,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
		Project:     toProjectRefDTO(m.Project),
		CreatedBy:   toUserRefDTO(m.CreatedBy),
		Attendees: lo.Map(m.Attendees, func(ref persistence.UserRef, _ int) userRefDTO {
			return toUserRefDTO(ref)
		}),
	}
}

type projectMeetingsDTO struct {
	projectRefDTO
	Meetings []meetingDTO `json:"meetings"`
}

func toProjectMeetingsDTO(group application.ProjectMeetings, _ int) projectMeetingsDTO {
	return projectMeetingsDTO{
		projectRefDTO: toProjectRefDTO(group.Project),
		Meetings:      lo.Map(group.Meetings, toMeetingDTO),
	}
}

type projectProgressDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	Status         string `json:"status"`
	TotalTasks     int    `json:"totalTasks"`
	CompletedTasks int    `json:"completedTasks"`
	Progress       int    `json:"progress"`
}

type dashboardStatsDTO struct {
	TotalTasks      int                  `json:"totalTasks"`
	InProgressTasks int                  `json:"inProgressTasks"`
	CompletedTasks  int                  `json:"completedTasks"`
	TodoTasks       int                  `json:"todoTasks"`
	TodayTime       float64              `json:"todayTime"`
	TodaySeconds    int64                `json:"todaySeconds"`
	TotalProjects   int                  `json:"totalProjects"`
	ActiveProjects  int                  `json:"activeProjects"`
	RecentTasks     []taskDTO            `json:"recentTasks"`
	Projects        []projectProgressDTO `json:"projects"`
}

func toDashboardStatsDTO(stats application.DashboardStats) dashboardStatsDTO {
	return dashboardStatsDTO{
		TotalTasks:      stats.TotalTasks,
		InProgressTasks: stats.InProgressTasks,
		CompletedTasks:  stats.CompletedTasks,
		TodoTasks:       stats.TodoTasks,
		TodayTime:       stats.TodayHours,
		TodaySeconds:    stats.TodaySeconds,
		TotalProjects:   stats.TotalProjects,
		ActiveProjects:  stats.ActiveProjects,
		RecentTasks:     lo.Map(stats.RecentTasks, toTaskDTO),
		Projects: lo.Map(stats.Projects, func(p application.ProjectProgress, _ int) projectProgressDTO {
			return projectProgressDTO{
				ID:             p.ID,
				Name:           p.Name,
				Color:          p.Color,
				Status:         string(p.Status),
				TotalTasks:     p.TotalTasks,
				CompletedTasks: p.CompletedTasks,
				Progress:       p.Progress,
			}
		}),
	}
}

type notificationDTO struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Read      bool      `json:"read"`
}

func toNotificationDTO(n application.Notification, _ int) notificationDTO {
	return notificationDTO{ID: n.ID, Message: n.Message, CreatedAt: n.CreatedAt.UTC(), Read: n.Read}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}
