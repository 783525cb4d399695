package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxFeedbackLength    = 1000
	MinRating            = 1
	MaxRating            = 5
)

// Task is the aggregate root of the workflow. Every state change goes through
// one of its methods and every method checks its guard with Can first.
type Task struct {
	ID                 string
	Title              string
	Description        string
	Status             Status
	Priority           Priority
	Kind               Kind
	DueDate            *time.Time
	OriginalDueDate    *time.Time
	ExtendedDueDate    *time.Time
	AssignedUserID     string
	CreatedByID        string
	ProgressPercentage *int
	ReminderLevel      ReminderLevel
	ManagerRating      *int
	ManagerFeedback    string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// Version is bumped by storage on every successful write.
	Version int64
}

// NewTaskParams holds the fields a caller supplies when creating a task.
type NewTaskParams struct {
	ID             string
	Title          string
	Description    string
	Priority       Priority
	Kind           Kind
	DueDate        *time.Time
	AssignedUserID string
	CreatedByID    string
}

// NewTask validates params and returns a task in status Created.
func NewTask(p NewTaskParams, now time.Time) (*Task, error) {
	v := &ValidationError{}
	title := strings.TrimSpace(p.Title)
	switch {
	case title == "":
		v.Add("title", "title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		v.Add("title", "title cannot exceed 200 characters")
	}
	if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
		v.Add("description", "description cannot exceed 1000 characters")
	}
	if !p.Priority.IsValid() {
		v.Add("priority", "unknown priority")
	}
	if !p.Kind.IsValid() {
		v.Add("type", "unknown task type")
	}
	if p.CreatedByID == "" {
		v.Add("createdById", "creator is required")
	}
	if p.DueDate != nil && !p.DueDate.After(now) {
		v.Add("dueDate", "due date must be in the future")
	}
	if p.Kind == KindWithDueDate && p.DueDate == nil {
		v.Add("dueDate", "due date is required for this task type")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	t := &Task{
		ID:             p.ID,
		Title:          title,
		Description:    p.Description,
		Status:         StatusCreated,
		Priority:       p.Priority,
		Kind:           p.Kind,
		DueDate:        copyTime(p.DueDate),
		AssignedUserID: p.AssignedUserID,
		CreatedByID:    p.CreatedByID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Kind.TracksProgress() {
		t.ProgressPercentage = intPtr(0)
	}
	return t, nil
}

// Can reports whether action is legal from the task's current state. It is the
// only place transition guards live; both the mutating methods and
// AvailableActions consult it.
func (t *Task) Can(action Action) error {
	in := func(allowed ...Status) bool {
		for _, s := range allowed {
			if t.Status == s {
				return true
			}
		}
		return false
	}
	deny := func(reason string) error {
		return newInvariantViolation(action, t.Status, reason)
	}

	switch action {
	case ActionAssign:
		if !in(StatusCreated) {
			return deny("only Created tasks can be assigned")
		}
	case ActionReassign:
		if !in(StatusCreated, StatusAssigned, StatusRejected) {
			return deny("only Created, Assigned or Rejected tasks can be reassigned")
		}
	case ActionAccept, ActionReject:
		if !in(StatusCreated, StatusAssigned, StatusUnderReview) {
			return deny("task must be Created, Assigned or UnderReview")
		}
		if t.Status == StatusCreated && t.AssignedUserID == "" {
			return deny("task has no assigned user")
		}
	case ActionRequestMoreInfo:
		if !in(StatusAssigned, StatusAccepted) {
			return deny("task must be Assigned or Accepted")
		}
	case ActionCancel:
		if in(StatusCompleted) {
			return deny("completed tasks cannot be cancelled")
		}
		if in(StatusCancelled) {
			return deny("task is already cancelled")
		}
	case ActionUpdateProgress:
		if !t.Kind.TracksProgress() {
			return deny("task type does not track progress")
		}
		if !in(StatusAssigned, StatusAccepted) {
			return deny("progress can only be reported on Assigned or Accepted tasks")
		}
	case ActionAcceptProgress, ActionRejectProgress:
		if t.Kind != KindWithAcceptedProgress {
			return deny("task type does not require progress acceptance")
		}
		if !in(StatusUnderReview) {
			return deny("task has no progress under review")
		}
	case ActionRequestExtension:
		if t.DueDate == nil {
			return deny("task has no due date")
		}
		if !in(StatusAssigned, StatusAccepted, StatusUnderReview) {
			return deny("task must be Assigned, Accepted or UnderReview")
		}
	case ActionApproveExtension:
		if t.Status.IsTerminal() {
			return deny("task is closed")
		}
	case ActionRejectExtension:
		// Rejection never touches the task.
	case ActionMarkCompleted:
		if !in(StatusAssigned, StatusAccepted) {
			return deny("only Assigned or Accepted tasks can be marked completed")
		}
	case ActionReviewCompleted:
		if !in(StatusPendingManagerReview) {
			return deny("task is not pending manager review")
		}
	case ActionComplete:
		if in(StatusCompleted) {
			return deny("task is already completed")
		}
		if in(StatusCancelled) {
			return deny("cancelled tasks cannot be completed")
		}
	case ActionUpdate:
		if t.Status.IsTerminal() {
			return deny("task is closed")
		}
	default:
		return deny("unknown action")
	}
	return nil
}

// Assign sets the primary assignee and moves a Created task to Assigned.
func (t *Task) Assign(userID string, now time.Time) error {
	if userID == "" {
		return NewValidationError("userIds", "at least one user must be assigned")
	}
	if err := t.Can(ActionAssign); err != nil {
		return err
	}
	t.AssignedUserID = userID
	t.Status = StatusAssigned
	t.touch(now)
	return nil
}

// Reassign replaces the primary assignee and puts the task back to Assigned.
func (t *Task) Reassign(userID string, now time.Time) error {
	if userID == "" {
		return NewValidationError("userIds", "at least one user must be assigned")
	}
	if err := t.Can(ActionReassign); err != nil {
		return err
	}
	t.AssignedUserID = userID
	t.Status = StatusAssigned
	t.touch(now)
	return nil
}

// Accept moves the task to Accepted. A Created task with an assignee passes
// through Assigned on the way.
func (t *Task) Accept(now time.Time) error {
	if err := t.Can(ActionAccept); err != nil {
		return err
	}
	if t.Status == StatusCreated {
		t.Status = StatusAssigned
	}
	t.Status = StatusAccepted
	t.touch(now)
	return nil
}

// Reject has the same preconditions as Accept and ends in Rejected.
func (t *Task) Reject(now time.Time) error {
	if err := t.Can(ActionReject); err != nil {
		return err
	}
	if t.Status == StatusCreated {
		t.Status = StatusAssigned
	}
	t.Status = StatusRejected
	t.touch(now)
	return nil
}

func (t *Task) SetUnderReview(now time.Time) error {
	if err := t.Can(ActionRequestMoreInfo); err != nil {
		return err
	}
	t.Status = StatusUnderReview
	t.touch(now)
	return nil
}

// Cancel is terminal.
func (t *Task) Cancel(now time.Time) error {
	if err := t.Can(ActionCancel); err != nil {
		return err
	}
	t.Status = StatusCancelled
	t.touch(now)
	return nil
}

// UpdateProgress sets the progress percentage. When the kind needs manager
// acceptance and the caller does not hold the update back for acceptance, the
// task moves to UnderReview.
func (t *Task) UpdateProgress(pct int, requiresAcceptance bool, now time.Time) error {
	if pct < 0 || pct > 100 {
		return NewValidationError("percentage", "percentage must be between 0 and 100")
	}
	if !t.Kind.TracksProgress() {
		if pct > 0 {
			return NewValidationError("percentage", "task type does not support progress tracking")
		}
		return nil
	}
	if err := t.Can(ActionUpdateProgress); err != nil {
		return err
	}
	t.ProgressPercentage = intPtr(pct)
	if t.Kind == KindWithAcceptedProgress && !requiresAcceptance {
		t.Status = StatusUnderReview
	}
	t.touch(now)
	return nil
}

// AcceptProgress returns a WithAcceptedProgress task from UnderReview to Accepted.
func (t *Task) AcceptProgress(now time.Time) error {
	if err := t.Can(ActionAcceptProgress); err != nil {
		return err
	}
	t.Status = StatusAccepted
	t.touch(now)
	return nil
}

// RevertProgress rolls progress back to pct after a rejected update and
// returns the task to Accepted.
func (t *Task) RevertProgress(pct int, now time.Time) error {
	if pct < 0 || pct > 100 {
		return NewValidationError("percentage", "percentage must be between 0 and 100")
	}
	if err := t.Can(ActionRejectProgress); err != nil {
		return err
	}
	t.ProgressPercentage = intPtr(pct)
	t.Status = StatusAccepted
	t.touch(now)
	return nil
}

// ExtendDeadline moves the due date to newDate. The first due date the task
// ever had is kept in OriginalDueDate.
func (t *Task) ExtendDeadline(newDate time.Time, reason string, now time.Time) error {
	v := &ValidationError{}
	if !newDate.After(now) {
		v.Add("requestedDueDate", "new due date must be in the future")
	}
	if t.DueDate != nil && !newDate.After(*t.DueDate) {
		v.Add("requestedDueDate", "new due date must be after the current due date")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	if err := t.Can(ActionApproveExtension); err != nil {
		return err
	}
	if t.OriginalDueDate == nil {
		t.OriginalDueDate = copyTime(t.DueDate)
	}
	t.DueDate = copyTime(&newDate)
	t.ExtendedDueDate = copyTime(&newDate)
	t.touch(now)
	return nil
}

// Complete finalises the task.
func (t *Task) Complete(now time.Time) error {
	if err := t.Can(ActionComplete); err != nil {
		return err
	}
	t.Status = StatusCompleted
	if t.Kind.TracksProgress() {
		t.ProgressPercentage = intPtr(100)
	}
	t.touch(now)
	return nil
}

// MarkCompletedByEmployee hands the task to the manager for review.
func (t *Task) MarkCompletedByEmployee(now time.Time) error {
	if err := t.Can(ActionMarkCompleted); err != nil {
		return err
	}
	t.Status = StatusPendingManagerReview
	if t.Kind.TracksProgress() {
		t.ProgressPercentage = intPtr(100)
	}
	t.touch(now)
	return nil
}

// ReviewDecision is the manager's verdict on a task marked completed.
type ReviewDecision struct {
	Accepted          bool
	Rating            *int
	Feedback          string
	SendBackForRework bool
}

// Validate returns every problem with the decision at once.
func (d ReviewDecision) Validate() error {
	v := &ValidationError{}
	if d.Rating != nil && (*d.Rating < MinRating || *d.Rating > MaxRating) {
		v.Add("rating", "rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(d.Feedback) > MaxFeedbackLength {
		v.Add("feedback", "feedback cannot exceed 1000 characters")
	}
	if d.Accepted && d.SendBackForRework {
		v.Add("sendBackForRework", "a task cannot be accepted and sent back for rework")
	}
	return v.OrNil()
}

// ReviewByManager records rating and feedback. Send-back returns the task to
// Assigned; every other outcome, including a rejection, lands in Accepted.
func (t *Task) ReviewByManager(d ReviewDecision, now time.Time) error {
	if err := t.Can(ActionReviewCompleted); err != nil {
		return err
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if d.Rating != nil {
		t.ManagerRating = intPtr(*d.Rating)
	}
	t.ManagerFeedback = d.Feedback
	if d.SendBackForRework {
		t.Status = StatusAssigned
	} else {
		t.Status = StatusAccepted
	}
	t.touch(now)
	return nil
}

// Details is a partial update of the descriptive fields. Nil fields are left alone.
type Details struct {
	Title       *string
	Description *string
	Priority    *Priority
	DueDate     *time.Time
}

func (t *Task) UpdateDetails(d Details, now time.Time) error {
	v := &ValidationError{}
	if d.Title != nil {
		title := strings.TrimSpace(*d.Title)
		switch {
		case title == "":
			v.Add("title", "title is required")
		case utf8.RuneCountInString(title) > MaxTitleLength:
			v.Add("title", "title cannot exceed 200 characters")
		}
	}
	if d.Description != nil && utf8.RuneCountInString(*d.Description) > MaxDescriptionLength {
		v.Add("description", "description cannot exceed 1000 characters")
	}
	if d.Priority != nil && !d.Priority.IsValid() {
		v.Add("priority", "unknown priority")
	}
	if d.DueDate != nil && !d.DueDate.After(now) {
		v.Add("dueDate", "due date must be in the future")
	}
	if err := v.OrNil(); err != nil {
		return err
	}
	if err := t.Can(ActionUpdate); err != nil {
		return err
	}
	if d.Title != nil {
		t.Title = strings.TrimSpace(*d.Title)
	}
	if d.Description != nil {
		t.Description = *d.Description
	}
	if d.Priority != nil {
		t.Priority = *d.Priority
	}
	if d.DueDate != nil {
		t.DueDate = copyTime(d.DueDate)
	}
	t.touch(now)
	return nil
}

// Progress returns the progress percentage, or 0 when the task does not track it.
func (t *Task) Progress() int {
	if t.ProgressPercentage == nil {
		return 0
	}
	return *t.ProgressPercentage
}

func (t *Task) touch(now time.Time) {
	t.UpdatedAt = now
}

func intPtr(v int) *int { return &v }

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
