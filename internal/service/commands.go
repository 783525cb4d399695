package service

import (
	"strings"
	"time"
	"unicode/utf8"

	"task-workflow-api/internal/domain"
)

// Command is a request to change the workflow state. Validate checks what can
// be checked without loading anything.
type Command interface {
	CommandName() string
	Validate() error
}

const maxNotesLength = 1000

func requireTaskID(v *domain.ValidationError, id string) {
	if strings.TrimSpace(id) == "" {
		v.Add("taskId", "task id is required")
	}
}

func checkNotes(v *domain.ValidationError, field, notes string) {
	if utf8.RuneCountInString(notes) > maxNotesLength {
		v.Add(field, field+" cannot exceed 1000 characters")
	}
}

func checkUserIDs(v *domain.ValidationError, ids []string) {
	if len(ids) == 0 {
		v.Add("userIds", "at least one user must be assigned")
		return
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			v.Add("userIds", "user ids cannot be empty")
			return
		}
		if _, ok := seen[id]; ok {
			v.Add("userIds", "user "+id+" is listed twice")
			return
		}
		seen[id] = struct{}{}
	}
}

// CreateTask creates a task owned by the actor. When AssigneeIDs is set the
// task is assigned straight away; the first ID becomes the primary assignee.
type CreateTask struct {
	Title       string
	Description string
	Priority    domain.Priority
	Kind        domain.Kind
	DueDate     *time.Time
	AssigneeIDs []string
}

func (CreateTask) CommandName() string { return "CreateTask" }

func (c CreateTask) Validate() error {
	if len(c.AssigneeIDs) == 0 {
		return nil
	}
	v := &domain.ValidationError{}
	checkUserIDs(v, c.AssigneeIDs)
	return v.OrNil()
}

// AssignTask assigns a Created task. The first user is the primary assignee.
type AssignTask struct {
	TaskID  string
	UserIDs []string
}

func (AssignTask) CommandName() string { return "AssignTask" }

func (c AssignTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	checkUserIDs(v, c.UserIDs)
	return v.OrNil()
}

// ReassignTask replaces every assignee of a task.
type ReassignTask struct {
	TaskID     string
	NewUserIDs []string
}

func (ReassignTask) CommandName() string { return "ReassignTask" }

func (c ReassignTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	checkUserIDs(v, c.NewUserIDs)
	return v.OrNil()
}

type AcceptTask struct {
	TaskID string
}

func (AcceptTask) CommandName() string { return "AcceptTask" }

func (c AcceptTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	return v.OrNil()
}

type RejectTask struct {
	TaskID string
	Reason string
}

func (RejectTask) CommandName() string { return "RejectTask" }

func (c RejectTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	checkNotes(v, "reason", c.Reason)
	return v.OrNil()
}

// UpdateTaskProgress reports progress. SubmitForReview puts a task whose
// progress needs acceptance under review right away; otherwise the report
// waits for the creator while the task stays where it is.
type UpdateTaskProgress struct {
	TaskID          string
	Percentage      int
	Notes           string
	SubmitForReview bool
}

func (UpdateTaskProgress) CommandName() string { return "UpdateTaskProgress" }

func (c UpdateTaskProgress) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if c.Percentage < 0 || c.Percentage > 100 {
		v.Add("percentage", "percentage must be between 0 and 100")
	}
	checkNotes(v, "notes", c.Notes)
	return v.OrNil()
}

type AcceptTaskProgress struct {
	TaskID            string
	ProgressHistoryID string
}

func (AcceptTaskProgress) CommandName() string { return "AcceptTaskProgress" }

func (c AcceptTaskProgress) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if c.ProgressHistoryID == "" {
		v.Add("progressHistoryId", "progress history id is required")
	}
	return v.OrNil()
}

type RejectTaskProgress struct {
	TaskID            string
	ProgressHistoryID string
}

func (RejectTaskProgress) CommandName() string { return "RejectTaskProgress" }

func (c RejectTaskProgress) Validate() error {
	return AcceptTaskProgress(c).Validate()
}

type RequestDeadlineExtension struct {
	TaskID           string
	RequestedDueDate time.Time
	Reason           string
}

func (RequestDeadlineExtension) CommandName() string { return "RequestDeadlineExtension" }

func (c RequestDeadlineExtension) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if c.RequestedDueDate.IsZero() {
		v.Add("requestedDueDate", "requested due date is required")
	}
	return v.OrNil()
}

type ApproveExtensionRequest struct {
	TaskID    string
	RequestID string
	Notes     string
}

func (ApproveExtensionRequest) CommandName() string { return "ApproveExtensionRequest" }

func (c ApproveExtensionRequest) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if c.RequestID == "" {
		v.Add("requestId", "request id is required")
	}
	checkNotes(v, "notes", c.Notes)
	return v.OrNil()
}

type RejectExtensionRequest struct {
	TaskID    string
	RequestID string
	Notes     string
}

func (RejectExtensionRequest) CommandName() string { return "RejectExtensionRequest" }

func (c RejectExtensionRequest) Validate() error {
	return ApproveExtensionRequest(c).Validate()
}

type MarkTaskCompleted struct {
	TaskID string
}

func (MarkTaskCompleted) CommandName() string { return "MarkTaskCompleted" }

func (c MarkTaskCompleted) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	return v.OrNil()
}

// ReviewCompletedTask carries the manager's verdict. Rating and feedback are
// checked by the task once it is known to be reviewable.
type ReviewCompletedTask struct {
	TaskID            string
	Accepted          bool
	Rating            *int
	Feedback          string
	SendBackForRework bool
}

func (ReviewCompletedTask) CommandName() string { return "ReviewCompletedTask" }

func (c ReviewCompletedTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	return v.OrNil()
}

type CancelTask struct {
	TaskID string
	Reason string
}

func (CancelTask) CommandName() string { return "CancelTask" }

func (c CancelTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	checkNotes(v, "reason", c.Reason)
	return v.OrNil()
}

// UpdateTask edits descriptive fields. Nil fields are left alone.
type UpdateTask struct {
	TaskID      string
	Title       *string
	Description *string
	Priority    *domain.Priority
	DueDate     *time.Time
}

func (UpdateTask) CommandName() string { return "UpdateTask" }

func (c UpdateTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if c.Title == nil && c.Description == nil && c.Priority == nil && c.DueDate == nil {
		v.Add("", "nothing to update")
	}
	return v.OrNil()
}

type CompleteTask struct {
	TaskID string
}

func (CompleteTask) CommandName() string { return "CompleteTask" }

func (c CompleteTask) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	return v.OrNil()
}

type RequestMoreInfo struct {
	TaskID  string
	Message string
}

func (RequestMoreInfo) CommandName() string { return "RequestMoreInfo" }

func (c RequestMoreInfo) Validate() error {
	v := &domain.ValidationError{}
	requireTaskID(v, c.TaskID)
	if strings.TrimSpace(c.Message) == "" {
		v.Add("message", "message is required")
	}
	checkNotes(v, "message", c.Message)
	return v.OrNil()
}
