package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

var refTime = time.Date(2024, time.May, 6, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return refTime }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sequence returns an id generator yielding prefix-1, prefix-2, ...
func sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func ptr[T any](v T) *T { return &v }

// membershipStub resolves ownership and roles from maps. It backs a real access.Checker.
type membershipStub struct {
	workspaceRoles map[string]persistence.Role
	projectRoles   map[string]persistence.Role
	owners         map[string]persistence.Ownership
}

func newMembershipStub() *membershipStub {
	return &membershipStub{
		workspaceRoles: make(map[string]persistence.Role),
		projectRoles:   make(map[string]persistence.Role),
		owners:         make(map[string]persistence.Ownership),
	}
}

func roleKey(scopeID, userID string) string { return scopeID + "|" + userID }

func (m *membershipStub) joinWorkspace(workspaceID, userID string, role persistence.Role) *membershipStub {
	m.workspaceRoles[roleKey(workspaceID, userID)] = role
	return m
}

func (m *membershipStub) joinProject(projectID, userID string, role persistence.Role) *membershipStub {
	m.projectRoles[roleKey(projectID, userID)] = role
	return m
}

func (m *membershipStub) place(kind persistence.ResourceKind, id string, owner persistence.Ownership) *membershipStub {
	m.owners[string(kind)+"|"+id] = owner
	return m
}

func (m *membershipStub) WorkspaceRole(_ context.Context, workspaceID, userID string) (persistence.Role, error) {
	role, ok := m.workspaceRoles[roleKey(workspaceID, userID)]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return role, nil
}

func (m *membershipStub) ProjectRole(_ context.Context, projectID, userID string) (persistence.Role, error) {
	role, ok := m.projectRoles[roleKey(projectID, userID)]
	if !ok {
		return "", persistence.ErrNotFound
	}
	return role, nil
}

func (m *membershipStub) Locate(_ context.Context, kind persistence.ResourceKind, id string) (persistence.Ownership, error) {
	owner, ok := m.owners[string(kind)+"|"+id]
	if !ok {
		return persistence.Ownership{}, persistence.ErrNotFound
	}
	return owner, nil
}

func (m *membershipStub) checker() *access.Checker { return access.NewChecker(m) }

// userRepositoryStub stores users in memory and records registrations.
type userRepositoryStub struct {
	users      map[string]persistence.User
	workspaces []persistence.Workspace
	owners     []persistence.WorkspaceMember
	err        error
}

func newUserRepositoryStub(users ...persistence.User) *userRepositoryStub {
	stub := &userRepositoryStub{users: make(map[string]persistence.User)}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (u *userRepositoryStub) RegisterUser(_ context.Context, user persistence.User, workspace persistence.Workspace, owner persistence.WorkspaceMember) error {
	if u.err != nil {
		return u.err
	}
	if _, err := u.GetUserByEmail(context.Background(), user.Email); err == nil {
		return persistence.ErrDuplicate
	}
	u.users[user.ID] = user
	u.workspaces = append(u.workspaces, workspace)
	u.owners = append(u.owners, owner)
	return nil
}

func (u *userRepositoryStub) GetUser(_ context.Context, id string) (persistence.User, error) {
	if u.err != nil {
		return persistence.User{}, u.err
	}
	user, ok := u.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

func (u *userRepositoryStub) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	if u.err != nil {
		return persistence.User{}, u.err
	}
	for _, user := range u.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (u *userRepositoryStub) UpdatePasswordHash(_ context.Context, userID, hash string, at time.Time) error {
	if u.err != nil {
		return u.err
	}
	user, ok := u.users[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = at
	u.users[userID] = user
	return nil
}

// sessionRepositoryStub provides an in-memory SessionRepository.
type sessionRepositoryStub struct {
	sessions map[string]persistence.Session

	createErr error
	purged    int64
	purgeAt   []time.Time
}

func newSessionRepositoryStub() *sessionRepositoryStub {
	return &sessionRepositoryStub{sessions: make(map[string]persistence.Session)}
}

func (s *sessionRepositoryStub) seed(session persistence.Session) {
	s.sessions[session.Token] = session
}

func (s *sessionRepositoryStub) CreateSession(_ context.Context, session persistence.Session) (persistence.Session, error) {
	if s.createErr != nil {
		return persistence.Session{}, s.createErr
	}
	if _, exists := s.sessions[session.Token]; exists {
		return persistence.Session{}, persistence.ErrDuplicate
	}
	s.seed(session)
	return session, nil
}

func (s *sessionRepositoryStub) GetSession(_ context.Context, token string) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepositoryStub) RevokeSession(_ context.Context, token string, revokedAt time.Time) (persistence.Session, error) {
	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = &revokedAt
	}
	s.sessions[token] = session
	return session, nil
}

func (s *sessionRepositoryStub) DeleteExpiredSessions(_ context.Context, reference time.Time) (int64, error) {
	s.purgeAt = append(s.purgeAt, reference)
	var removed int64
	for token, session := range s.sessions {
		if !session.ExpiresAt.After(reference) || session.RevokedAt != nil {
			delete(s.sessions, token)
			removed++
		}
	}
	s.purged += removed
	return removed, nil
}

// workspaceRepositoryStub records created workspaces.
type workspaceRepositoryStub struct {
	created []persistence.Workspace
	owners  []persistence.WorkspaceMember
	first   map[string]persistence.Workspace
	members map[string][]persistence.WorkspaceMember
}

func newWorkspaceRepositoryStub() *workspaceRepositoryStub {
	return &workspaceRepositoryStub{
		first:   make(map[string]persistence.Workspace),
		members: make(map[string][]persistence.WorkspaceMember),
	}
}

func (w *workspaceRepositoryStub) CreateWorkspace(_ context.Context, workspace persistence.Workspace, owner persistence.WorkspaceMember) error {
	w.created = append(w.created, workspace)
	w.owners = append(w.owners, owner)
	if _, ok := w.first[owner.UserID]; !ok {
		w.first[owner.UserID] = workspace
	}
	w.members[workspace.ID] = append(w.members[workspace.ID], owner)
	return nil
}

func (w *workspaceRepositoryStub) GetWorkspace(_ context.Context, id string) (persistence.Workspace, error) {
	for _, ws := range w.created {
		if ws.ID == id {
			return ws, nil
		}
	}
	return persistence.Workspace{}, persistence.ErrNotFound
}

func (w *workspaceRepositoryStub) GetWorkspaceSummary(ctx context.Context, id string) (persistence.WorkspaceSummary, error) {
	ws, err := w.GetWorkspace(ctx, id)
	if err != nil {
		return persistence.WorkspaceSummary{}, err
	}
	return persistence.WorkspaceSummary{Workspace: ws, MemberCount: len(w.members[id])}, nil
}

func (w *workspaceRepositoryStub) ListWorkspacesForUser(_ context.Context, userID string) ([]persistence.WorkspaceSummary, error) {
	var out []persistence.WorkspaceSummary
	for _, ws := range w.created {
		for _, m := range w.members[ws.ID] {
			if m.UserID == userID {
				out = append(out, persistence.WorkspaceSummary{Workspace: ws, MemberCount: len(w.members[ws.ID])})
			}
		}
	}
	return out, nil
}

func (w *workspaceRepositoryStub) FirstWorkspaceForUser(_ context.Context, userID string) (persistence.Workspace, error) {
	ws, ok := w.first[userID]
	if !ok {
		return persistence.Workspace{}, persistence.ErrNotFound
	}
	return ws, nil
}

func (w *workspaceRepositoryStub) ListWorkspaceMembers(_ context.Context, workspaceID string) ([]persistence.WorkspaceMember, error) {
	return w.members[workspaceID], nil
}

// projectRepositoryStub keeps projects and members in memory.
type projectRepositoryStub struct {
	projects     map[string]persistence.ProjectSummary
	members      map[string][]persistence.ProjectMember
	addedToSpace []persistence.WorkspaceMember
	deleted      []string
}

func newProjectRepositoryStub() *projectRepositoryStub {
	return &projectRepositoryStub{
		projects: make(map[string]persistence.ProjectSummary),
		members:  make(map[string][]persistence.ProjectMember),
	}
}

func (p *projectRepositoryStub) seedProject(project persistence.Project, members ...persistence.ProjectMember) {
	p.projects[project.ID] = persistence.ProjectSummary{Project: project}
	p.members[project.ID] = append(p.members[project.ID], members...)
}

func (p *projectRepositoryStub) CreateProject(_ context.Context, project persistence.Project, owner persistence.ProjectMember) error {
	p.seedProject(project, owner)
	return nil
}

func (p *projectRepositoryStub) GetProjectSummary(_ context.Context, id, userID string) (persistence.ProjectSummary, error) {
	summary, ok := p.projects[id]
	if !ok {
		return persistence.ProjectSummary{}, persistence.ErrNotFound
	}
	for _, m := range p.members[id] {
		if m.UserID == userID {
			summary.UserRole = m.Role
		}
	}
	return summary, nil
}

func (p *projectRepositoryStub) ListProjectsForUser(_ context.Context, userID, workspaceID string) ([]persistence.ProjectSummary, error) {
	var out []persistence.ProjectSummary
	for id, summary := range p.projects {
		if workspaceID != "" && summary.WorkspaceID != workspaceID {
			continue
		}
		for _, m := range p.members[id] {
			if m.UserID == userID {
				out = append(out, summary)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (p *projectRepositoryStub) ListWorkspaceProjectsForUser(ctx context.Context, userID string) ([]persistence.ProjectSummary, error) {
	return p.ListProjectsForUser(ctx, userID, "")
}

func (p *projectRepositoryStub) DeleteProject(_ context.Context, id string) error {
	if _, ok := p.projects[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(p.projects, id)
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *projectRepositoryStub) ListProjectMembers(_ context.Context, projectID string) ([]persistence.ProjectMember, error) {
	return p.members[projectID], nil
}

func (p *projectRepositoryStub) GetProjectMember(_ context.Context, projectID, userID string) (persistence.ProjectMember, error) {
	for _, m := range p.members[projectID] {
		if m.UserID == userID {
			return m, nil
		}
	}
	return persistence.ProjectMember{}, persistence.ErrNotFound
}

func (p *projectRepositoryStub) AddProjectMember(_ context.Context, member persistence.ProjectMember, workspaceMember *persistence.WorkspaceMember) error {
	p.members[member.ProjectID] = append(p.members[member.ProjectID], member)
	if workspaceMember != nil {
		p.addedToSpace = append(p.addedToSpace, *workspaceMember)
	}
	return nil
}

func (p *projectRepositoryStub) RemoveProjectMember(_ context.Context, projectID, userID string) error {
	members := p.members[projectID]
	for i, m := range members {
		if m.UserID == userID {
			p.members[projectID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return persistence.ErrNotFound
}

// taskRepositoryStub stores tasks and returns canned listings.
type taskRepositoryStub struct {
	tasks   map[string]persistence.Task
	updates int
	views   []persistence.TaskView
	filters []persistence.TaskFilter
	// beforeUpdate runs ahead of each UpdateTask, standing in for a writer
	// that commits first.
	beforeUpdate func(tasks map[string]persistence.Task)
}

func newTaskRepositoryStub(tasks ...persistence.Task) *taskRepositoryStub {
	stub := &taskRepositoryStub{tasks: make(map[string]persistence.Task)}
	for _, task := range tasks {
		stub.tasks[task.ID] = task
	}
	return stub
}

func (r *taskRepositoryStub) CreateTask(_ context.Context, task persistence.Task) error {
	r.tasks[task.ID] = task
	return nil
}

func (r *taskRepositoryStub) GetTaskView(_ context.Context, id string) (persistence.TaskView, error) {
	task, ok := r.tasks[id]
	if !ok {
		return persistence.TaskView{}, persistence.ErrNotFound
	}
	return persistence.TaskView{Task: task}, nil
}

func (r *taskRepositoryStub) ListTasks(_ context.Context, filter persistence.TaskFilter) ([]persistence.TaskView, error) {
	r.filters = append(r.filters, filter)
	views := r.views
	if filter.Limit > 0 && len(views) > filter.Limit {
		views = views[:filter.Limit]
	}
	return views, nil
}

func (r *taskRepositoryStub) UpdateTask(_ context.Context, id string, changes persistence.TaskChanges) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate(r.tasks)
	}
	task, ok := r.tasks[id]
	if !ok {
		return persistence.ErrNotFound
	}
	r.updates++

	if changes.Title != nil {
		task.Title = *changes.Title
	}
	if changes.Description.Set {
		task.Description = changes.Description.Value
	}
	if changes.Status != nil {
		task.Status = *changes.Status
	}
	if changes.Priority != nil {
		task.Priority = *changes.Priority
	}
	if changes.StartDate.Set {
		task.StartDate = changes.StartDate.Value
	}
	if changes.DueDate.Set {
		task.DueDate = changes.DueDate.Value
	}
	if changes.AssigneeID.Set {
		task.AssigneeID = changes.AssigneeID.Value
	}
	task.UpdatedAt = changes.UpdatedAt
	r.tasks[id] = task
	return nil
}

func (r *taskRepositoryStub) DeleteTask(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

// commentRepositoryStub stores comments in memory.
type commentRepositoryStub struct {
	comments map[string]persistence.Comment
}

func newCommentRepositoryStub(comments ...persistence.Comment) *commentRepositoryStub {
	stub := &commentRepositoryStub{comments: make(map[string]persistence.Comment)}
	for _, c := range comments {
		stub.comments[c.ID] = c
	}
	return stub
}

func (c *commentRepositoryStub) CreateComment(_ context.Context, comment persistence.Comment) error {
	c.comments[comment.ID] = comment
	return nil
}

func (c *commentRepositoryStub) GetComment(_ context.Context, id string) (persistence.Comment, error) {
	comment, ok := c.comments[id]
	if !ok {
		return persistence.Comment{}, persistence.ErrNotFound
	}
	return comment, nil
}

func (c *commentRepositoryStub) ListComments(_ context.Context, taskID string) ([]persistence.Comment, error) {
	var out []persistence.Comment
	for _, comment := range c.comments {
		if comment.TaskID == taskID {
			out = append(out, comment)
		}
	}
	return out, nil
}

func (c *commentRepositoryStub) DeleteComment(_ context.Context, id string) error {
	if _, ok := c.comments[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(c.comments, id)
	return nil
}

// timeEntryRepositoryStub stores entries in memory and records range queries.
type timeEntryRepositoryStub struct {
	entries map[string]persistence.TimeEntry
	ranges  [][2]time.Time
}

func newTimeEntryRepositoryStub(entries ...persistence.TimeEntry) *timeEntryRepositoryStub {
	stub := &timeEntryRepositoryStub{entries: make(map[string]persistence.TimeEntry)}
	for _, e := range entries {
		stub.entries[e.ID] = e
	}
	return stub
}

func (r *timeEntryRepositoryStub) CreateTimeEntry(_ context.Context, entry persistence.TimeEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *timeEntryRepositoryStub) GetTimeEntry(_ context.Context, id string) (persistence.TimeEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return persistence.TimeEntry{}, persistence.ErrNotFound
	}
	return entry, nil
}

func (r *timeEntryRepositoryStub) ListTimeEntries(_ context.Context, taskID string) ([]persistence.TimeEntry, error) {
	var out []persistence.TimeEntry
	for _, e := range r.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *timeEntryRepositoryStub) ListUserTimeEntries(_ context.Context, userID, taskID string, from, to time.Time) ([]persistence.TimeEntry, error) {
	r.ranges = append(r.ranges, [2]time.Time{from, to})
	var out []persistence.TimeEntry
	for _, e := range r.entries {
		if e.UserID != userID || (taskID != "" && e.TaskID != taskID) || e.StartTime == nil {
			continue
		}
		if !e.StartTime.Before(from) && e.StartTime.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *timeEntryRepositoryStub) DeleteTimeEntry(_ context.Context, id string) error {
	if _, ok := r.entries[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

// timerRepositoryStub keeps one timer per user and writes stop entries into entries.
type timerRepositoryStub struct {
	timers  map[string]persistence.ActiveTimer
	entries *timeEntryRepositoryStub
}

func newTimerRepositoryStub(entries *timeEntryRepositoryStub) *timerRepositoryStub {
	return &timerRepositoryStub{timers: make(map[string]persistence.ActiveTimer), entries: entries}
}

func (r *timerRepositoryStub) GetTimer(_ context.Context, userID string) (persistence.ActiveTimer, error) {
	timer, ok := r.timers[userID]
	if !ok {
		return persistence.ActiveTimer{}, persistence.ErrNotFound
	}
	return timer, nil
}

func (r *timerRepositoryStub) StartTimer(_ context.Context, timer persistence.ActiveTimer) error {
	if _, ok := r.timers[timer.UserID]; ok {
		return persistence.ErrDuplicate
	}
	r.timers[timer.UserID] = timer
	return nil
}

func (r *timerRepositoryStub) StopTimer(ctx context.Context, userID string, entry persistence.TimeEntry) error {
	if _, ok := r.timers[userID]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.timers, userID)
	return r.entries.CreateTimeEntry(ctx, entry)
}

func (r *timerRepositoryStub) DeleteTimer(_ context.Context, userID string) error {
	if _, ok := r.timers[userID]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.timers, userID)
	return nil
}

// meetingRepositoryStub stores meetings with their attendee ids.
type meetingRepositoryStub struct {
	meetings  map[string]persistence.Meeting
	attendees map[string][]string
	queried   [][]string
}

func newMeetingRepositoryStub(meetings ...persistence.Meeting) *meetingRepositoryStub {
	stub := &meetingRepositoryStub{
		meetings:  make(map[string]persistence.Meeting),
		attendees: make(map[string][]string),
	}
	for _, m := range meetings {
		stub.meetings[m.ID] = m
	}
	return stub
}

func (r *meetingRepositoryStub) CreateMeeting(_ context.Context, meeting persistence.Meeting, attendeeIDs []string) error {
	r.meetings[meeting.ID] = meeting
	r.attendees[meeting.ID] = attendeeIDs
	return nil
}

func (r *meetingRepositoryStub) GetMeeting(_ context.Context, id string) (persistence.Meeting, error) {
	meeting, ok := r.meetings[id]
	if !ok {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	for _, userID := range r.attendees[id] {
		meeting.Attendees = append(meeting.Attendees, persistence.UserRef{ID: userID})
	}
	return meeting, nil
}

func (r *meetingRepositoryStub) ListMeetingsForProjects(_ context.Context, projectIDs []string) ([]persistence.Meeting, error) {
	r.queried = append(r.queried, projectIDs)
	var out []persistence.Meeting
	for _, m := range r.meetings {
		for _, id := range projectIDs {
			if m.ProjectID == id {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
