package domain

import (
	"fmt"
	"time"
)

// TaskAssignment links a task to one of its assignees. (TaskID, UserID) is unique.
type TaskAssignment struct {
	TaskID    string
	UserID    string
	IsPrimary bool
	CreatedAt time.Time
}

// ResolutionStatus is shared by progress entries and extension requests.
type ResolutionStatus int

const (
	ResolutionPending  ResolutionStatus = 0
	ResolutionAccepted ResolutionStatus = 1
	ResolutionRejected ResolutionStatus = 2
)

// Extension requests call the accepted state Approved.
const ResolutionApproved = ResolutionAccepted

func (s ResolutionStatus) String() string {
	switch s {
	case ResolutionPending:
		return "Pending"
	case ResolutionAccepted:
		return "Accepted"
	case ResolutionRejected:
		return "Rejected"
	}
	return fmt.Sprintf("ResolutionStatus(%d)", int(s))
}

// ProgressEntry is one row of the append-only progress ledger. Only the
// resolution fields change after creation.
type ProgressEntry struct {
	ID           string
	TaskID       string
	UpdatedByID  string
	Percentage   int
	Notes        string
	Status       ResolutionStatus
	AcceptedByID string
	AcceptedAt   *time.Time
	CreatedAt    time.Time
}

// Accept stamps the entry as accepted by acceptorID.
func (e *ProgressEntry) Accept(acceptorID string, now time.Time) error {
	if e.Status != ResolutionPending {
		return newEntryResolved("progress entry", e.Status)
	}
	e.Status = ResolutionAccepted
	e.AcceptedByID = acceptorID
	e.AcceptedAt = copyTime(&now)
	return nil
}

// Reject stamps the entry as rejected by acceptorID.
func (e *ProgressEntry) Reject(acceptorID string, now time.Time) error {
	if e.Status != ResolutionPending {
		return newEntryResolved("progress entry", e.Status)
	}
	e.Status = ResolutionRejected
	e.AcceptedByID = acceptorID
	e.AcceptedAt = copyTime(&now)
	return nil
}

// ExtensionRequest is an employee's proposal to move a task's due date.
type ExtensionRequest struct {
	ID               string
	TaskID           string
	RequestedByID    string
	RequestedDueDate time.Time
	Reason           string
	Status           ResolutionStatus
	ReviewedByID     string
	ReviewedAt       *time.Time
	ReviewNotes      string
	CreatedAt        time.Time
}

func (r *ExtensionRequest) Approve(reviewerID, notes string, now time.Time) error {
	if r.Status != ResolutionPending {
		return newEntryResolved("extension request", r.Status)
	}
	r.Status = ResolutionApproved
	r.stamp(reviewerID, notes, now)
	return nil
}

func (r *ExtensionRequest) Reject(reviewerID, notes string, now time.Time) error {
	if r.Status != ResolutionPending {
		return newEntryResolved("extension request", r.Status)
	}
	r.Status = ResolutionRejected
	r.stamp(reviewerID, notes, now)
	return nil
}

func (r *ExtensionRequest) stamp(reviewerID, notes string, now time.Time) {
	r.ReviewedByID = reviewerID
	r.ReviewNotes = notes
	r.ReviewedAt = copyTime(&now)
}

// StatusName renders the request status with extension wording.
func (r *ExtensionRequest) StatusName() string {
	if r.Status == ResolutionApproved {
		return "Approved"
	}
	return r.Status.String()
}

// HistoryEntry is one line of the task audit trail. It is written after every
// mutating command and never read back into a decision.
type HistoryEntry struct {
	ID          string
	TaskID      string
	FromStatus  Status
	ToStatus    Status
	Action      string
	PerformedBy string
	Notes       string
	CreatedAt   time.Time
}

func newEntryResolved(what string, status ResolutionStatus) error {
	return &InvariantViolationError{
		Action: "resolve",
		Entity: what,
		Reason: fmt.Sprintf("already %s", status),
	}
}
