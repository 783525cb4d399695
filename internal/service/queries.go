package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	nearDueWindow   = 3 * 24 * time.Hour
)

var closedStatuses = []domain.Status{domain.StatusCompleted, domain.StatusCancelled}

// ListTasksQuery selects a page of tasks. Page is 1-based.
type ListTasksQuery struct {
	Page       int
	Limit      int
	Statuses   []domain.Status
	AssignedTo string
	CreatedBy  string
	SortAsc    bool
}

func (q *ListTasksQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
}

// GetTask returns the task as seen by actor. Employees only see tasks they
// created or are assigned to.
func (s *Service) GetTask(ctx context.Context, actor domain.Actor, taskID string) (*TaskView, error) {
	task, assignments, err := s.visibleTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	hasExt, err := s.hasPendingExtension(ctx, s.repo, task.ID)
	if err != nil {
		return nil, err
	}
	view := s.taskView(task, assignments, actor, hasExt)
	return &view, nil
}

// AvailableActions lists what actor can do with the task right now.
func (s *Service) AvailableActions(ctx context.Context, actor domain.Actor, taskID string) ([]domain.Action, error) {
	view, err := s.GetTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	return view.AvailableActions, nil
}

func (s *Service) visibleTask(ctx context.Context, actor domain.Actor, taskID string) (*domain.Task, []domain.TaskAssignment, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role.IsManagerial() {
		return task, assignments, nil
	}
	rel := domain.RelationshipOf(task, assignments, actor.UserID)
	if !rel.Creator && !rel.IsAssignee() {
		return nil, nil, fmt.Errorf("task %s is not visible to %s: %w", taskID, actor.UserID, domain.ErrForbidden)
	}
	return task, assignments, nil
}

// ListTasks returns one page of tasks. Employees are limited to tasks they
// are involved in; managers and admins see everything.
func (s *Service) ListTasks(ctx context.Context, actor domain.Actor, q ListTasksQuery) (*TaskPage, error) {
	q.normalize()
	f := storage.TaskFilter{
		Statuses:   q.Statuses,
		AssignedTo: q.AssignedTo,
		CreatedBy:  q.CreatedBy,
		Offset:     (q.Page - 1) * q.Limit,
		Limit:      q.Limit,
		SortAsc:    q.SortAsc,
	}
	if !actor.Role.IsManagerial() {
		f.InvolvedUser = actor.UserID
	}
	tasks, total, err := s.repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.taskViews(ctx, actor, tasks)
	if err != nil {
		return nil, err
	}

	sort := "desc"
	if q.SortAsc {
		sort = "asc"
	}
	return &TaskPage{Tasks: views, Count: len(views), Total: total, Page: q.Page, Limit: q.Limit, Sort: sort}, nil
}

// ListTasksByReminderLevel returns the open tasks with a due date whose
// reminder level, computed now, equals level.
func (s *Service) ListTasksByReminderLevel(ctx context.Context, actor domain.Actor, level domain.ReminderLevel) ([]TaskView, error) {
	f := storage.TaskFilter{HasDue: true, ExcludeStatuses: closedStatuses, SortAsc: true}
	if !actor.Role.IsManagerial() {
		f.InvolvedUser = actor.UserID
	}
	tasks, _, err := s.repo.ListTasks(ctx, f)
	if err != nil {
		return nil, err
	}
	matching := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if s.reminders.ForTask(&t) == level {
			matching = append(matching, t)
		}
	}
	return s.taskViews(ctx, actor, matching)
}

func (s *Service) taskViews(ctx context.Context, actor domain.Actor, tasks []domain.Task) ([]TaskView, error) {
	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		assignments, err := s.repo.ListAssignments(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		hasExt, err := s.hasPendingExtension(ctx, s.repo, t.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, s.taskView(t, assignments, actor, hasExt))
	}
	return views, nil
}

// DashboardStats counts the tasks actor is involved in.
func (s *Service) DashboardStats(ctx context.Context, actor domain.Actor) (*DashboardStats, error) {
	now := s.now()
	soon := now.Add(nearDueWindow)
	me := actor.UserID

	var stats DashboardStats
	counts := []struct {
		dst *int64
		f   storage.TaskFilter
	}{
		{&stats.Created, storage.TaskFilter{CreatedBy: me}},
		{&stats.Completed, storage.TaskFilter{InvolvedUser: me, Statuses: []domain.Status{domain.StatusCompleted}}},
		{&stats.NearDue, storage.TaskFilter{InvolvedUser: me, ExcludeStatuses: closedStatuses, DueFrom: &now, DueTo: &soon}},
		{&stats.Delayed, storage.TaskFilter{InvolvedUser: me, ExcludeStatuses: closedStatuses, DueBefore: &now}},
		{&stats.InProgress, storage.TaskFilter{AssignedTo: me, Statuses: []domain.Status{domain.StatusAssigned, domain.StatusAccepted}}},
		{&stats.UnderReview, storage.TaskFilter{AssignedTo: me, Statuses: []domain.Status{domain.StatusUnderReview}}},
		{&stats.PendingAcceptance, storage.TaskFilter{AssignedTo: me, Statuses: []domain.Status{domain.StatusAssigned}}},
	}

	for _, c := range counts {
		n, err := s.repo.CountTasks(ctx, c.f)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return &stats, nil
}

// ProgressHistory returns the progress ledger of a task, oldest first.
func (s *Service) ProgressHistory(ctx context.Context, actor domain.Actor, taskID string) ([]ProgressEntryView, error) {
	if _, _, err := s.visibleTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListProgressEntries(ctx, taskID)
	if err != nil {
		return nil, err
	}
	views := make([]ProgressEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newProgressEntryView(e))
	}
	return views, nil
}

// ExtensionRequests returns every extension request of a task.
func (s *Service) ExtensionRequests(ctx context.Context, actor domain.Actor, taskID string) ([]ExtensionRequestView, error) {
	if _, _, err := s.visibleTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.extensionRequests(ctx, storage.ExtensionFilter{TaskID: taskID})
}

// PendingExtensionRequests returns the open requests across all tasks.
func (s *Service) PendingExtensionRequests(ctx context.Context, actor domain.Actor) ([]ExtensionRequestView, error) {
	if !actor.Role.IsManagerial() {
		return nil, fmt.Errorf("only managers can list pending extension requests: %w", domain.ErrForbidden)
	}
	pending := domain.ResolutionPending
	return s.extensionRequests(ctx, storage.ExtensionFilter{Status: &pending})
}

func (s *Service) extensionRequests(ctx context.Context, f storage.ExtensionFilter) ([]ExtensionRequestView, error) {
	reqs, err := s.repo.ListExtensionRequests(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]ExtensionRequestView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, newExtensionRequestView(r))
	}
	return views, nil
}

// TaskHistory returns the audit trail of a task, oldest first.
func (s *Service) TaskHistory(ctx context.Context, actor domain.Actor, taskID string) ([]HistoryView, error) {
	if _, _, err := s.visibleTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, taskID)
	if err != nil {
		return nil, err
	}
	views := make([]HistoryView, 0, len(entries))
	for _, h := range entries {
		views = append(views, HistoryView{
			ID:          h.ID,
			FromStatus:  h.FromStatus.String(),
			ToStatus:    h.ToStatus.String(),
			Action:      h.Action,
			PerformedBy: h.PerformedBy,
			Notes:       h.Notes,
			CreatedAt:   h.CreatedAt,
		})
	}
	return views, nil
}

// Users lists every user.
func (s *Service) Users(ctx context.Context) ([]UserView, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return userViews(users), nil
}

// ManagedEmployees lists the employees actor manages. Admins get every
// active employee.
func (s *Service) ManagedEmployees(ctx context.Context, actor domain.Actor) ([]UserView, error) {
	if !actor.Role.IsManagerial() {
		return nil, fmt.Errorf("only managers have employees: %w", domain.ErrForbidden)
	}
	if actor.Role == domain.RoleAdmin {
		users, err := s.repo.ListUsers(ctx)
		if err != nil {
			return nil, err
		}
		employees := users[:0]
		for _, u := range users {
			if u.Role == domain.RoleEmployee && u.IsActive {
				employees = append(employees, u)
			}
		}
		return userViews(employees), nil
	}
	users, err := s.repo.ListManagedEmployees(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return userViews(users), nil
}

func userViews(users []domain.User) []UserView {
	views := make([]UserView, 0, len(users))
	for _, u := range users {
		views = append(views, newUserView(u))
	}
	return views
}

// Authenticate checks email and password and returns the matching active user.
// Unknown emails, inactive users and wrong passwords all return
// auth.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return u, nil
}
