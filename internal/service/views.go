package service

import (
	"time"

	"task-workflow-api/internal/domain"
)

// TaskView is the read projection of a task returned by every command and query.
type TaskView struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Status             string          `json:"status"`
	StatusCode         int             `json:"statusCode"`
	Priority           string          `json:"priority"`
	Type               string          `json:"type"`
	DueDate            *time.Time      `json:"dueDate"`
	OriginalDueDate    *time.Time      `json:"originalDueDate"`
	ExtendedDueDate    *time.Time      `json:"extendedDueDate"`
	AssignedUserID     string          `json:"assignedUserId,omitempty"`
	Assignees          []AssigneeView  `json:"assignees"`
	CreatedByID        string          `json:"createdById"`
	ProgressPercentage *int            `json:"progressPercentage"`
	ReminderLevel      string          `json:"reminderLevel"`
	ManagerRating      *int            `json:"managerRating"`
	ManagerFeedback    string          `json:"managerFeedback,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Version            int64           `json:"version"`
	AvailableActions   []domain.Action `json:"availableActions"`
}

// AssigneeView is one assignment of a task.
type AssigneeView struct {
	UserID    string `json:"userId"`
	IsPrimary bool   `json:"isPrimary"`
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []TaskView `json:"tasks"`
	Count int        `json:"count"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Sort  string     `json:"sort"`
}

// ProgressEntryView is a progress ledger row.
type ProgressEntryView struct {
	ID           string     `json:"id"`
	TaskID       string     `json:"taskId"`
	UpdatedByID  string     `json:"updatedById"`
	Percentage   int        `json:"percentage"`
	Notes        string     `json:"notes,omitempty"`
	Status       string     `json:"status"`
	AcceptedByID string     `json:"acceptedById,omitempty"`
	AcceptedAt   *time.Time `json:"acceptedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ExtensionRequestView is a deadline extension request.
type ExtensionRequestView struct {
	ID               string     `json:"id"`
	TaskID           string     `json:"taskId"`
	RequestedByID    string     `json:"requestedById"`
	RequestedDueDate time.Time  `json:"requestedDueDate"`
	Reason           string     `json:"reason"`
	Status           string     `json:"status"`
	ReviewedByID     string     `json:"reviewedById,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt"`
	ReviewNotes      string     `json:"reviewNotes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// HistoryView is an audit trail row.
type HistoryView struct {
	ID          string    `json:"id"`
	FromStatus  string    `json:"fromStatus"`
	ToStatus    string    `json:"toStatus"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performedBy"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserView is the public part of a user.
type UserView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"isActive"`
}

// DashboardStats summarises the tasks a user is involved in.
type DashboardStats struct {
	Created           int64 `json:"created"`
	Completed         int64 `json:"completed"`
	NearDue           int64 `json:"nearDue"`
	Delayed           int64 `json:"delayed"`
	InProgress        int64 `json:"inProgress"`
	UnderReview       int64 `json:"underReview"`
	PendingAcceptance int64 `json:"pendingAcceptance"`
}

func newTaskView(t *domain.Task, assignments []domain.TaskAssignment, level domain.ReminderLevel, actions []domain.Action) TaskView {
	assignees := make([]AssigneeView, 0, len(assignments))
	for _, a := range assignments {
		assignees = append(assignees, AssigneeView{UserID: a.UserID, IsPrimary: a.IsPrimary})
	}
	if actions == nil {
		actions = []domain.Action{}
	}
	return TaskView{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             t.Status.String(),
		StatusCode:         int(t.Status),
		Priority:           t.Priority.String(),
		Type:               t.Kind.String(),
		DueDate:            t.DueDate,
		OriginalDueDate:    t.OriginalDueDate,
		ExtendedDueDate:    t.ExtendedDueDate,
		AssignedUserID:     t.AssignedUserID,
		Assignees:          assignees,
		CreatedByID:        t.CreatedByID,
		ProgressPercentage: t.ProgressPercentage,
		ReminderLevel:      level.String(),
		ManagerRating:      t.ManagerRating,
		ManagerFeedback:    t.ManagerFeedback,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
		Version:            t.Version,
		AvailableActions:   actions,
	}
}

func newProgressEntryView(e domain.ProgressEntry) ProgressEntryView {
	return ProgressEntryView{
		ID:           e.ID,
		TaskID:       e.TaskID,
		UpdatedByID:  e.UpdatedByID,
		Percentage:   e.Percentage,
		Notes:        e.Notes,
		Status:       e.Status.String(),
		AcceptedByID: e.AcceptedByID,
		AcceptedAt:   e.AcceptedAt,
		CreatedAt:    e.CreatedAt,
	}
}

func newExtensionRequestView(r domain.ExtensionRequest) ExtensionRequestView {
	return ExtensionRequestView{
		ID:               r.ID,
		TaskID:           r.TaskID,
		RequestedByID:    r.RequestedByID,
		RequestedDueDate: r.RequestedDueDate,
		Reason:           r.Reason,
		Status:           r.StatusName(),
		ReviewedByID:     r.ReviewedByID,
		ReviewedAt:       r.ReviewedAt,
		ReviewNotes:      r.ReviewNotes,
		CreatedAt:        r.CreatedAt,
	}
}

func newUserView(u domain.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), IsActive: u.IsActive}
}
