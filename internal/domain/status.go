package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the workflow state of a task. The numeric values are part of the
// wire contract and must not be renumbered.
type Status int

const (
	StatusCreated              Status = 0
	StatusAssigned             Status = 1
	StatusUnderReview          Status = 2
	StatusAccepted             Status = 3
	StatusRejected             Status = 4
	StatusCompleted            Status = 5
	StatusCancelled            Status = 6
	StatusPendingManagerReview Status = 7
	StatusRejectedByManager    Status = 8
)

// Legacy names kept for clients that still send them. They share the value of
// their canonical status and are never distinct states.
const (
	StatusPending    = StatusCreated
	StatusInProgress = StatusAssigned
)

var statusNames = map[Status]string{
	StatusCreated:              "Created",
	StatusAssigned:             "Assigned",
	StatusUnderReview:          "UnderReview",
	StatusAccepted:             "Accepted",
	StatusRejected:             "Rejected",
	StatusCompleted:            "Completed",
	StatusCancelled:            "Cancelled",
	StatusPendingManagerReview: "PendingManagerReview",
	StatusRejectedByManager:    "RejectedByManager",
}

var statusAliases = map[string]Status{
	"pending":    StatusPending,
	"inprogress": StatusInProgress,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s.
// RejectedByManager is reserved: manager rejection routes back to Accepted and
// nothing transitions into it.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus resolves a status by canonical name, legacy alias or ordinal.
func ParseStatus(v string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	for s, name := range statusNames {
		if strings.ToLower(name) == key {
			return s, nil
		}
	}
	if s, ok := statusAliases[key]; ok {
		return s, nil
	}
	if n, err := strconv.Atoi(key); err == nil && Status(n).IsValid() {
		return Status(n), nil
	}
	return 0, fmt.Errorf("unknown status %q: %w", v, ErrValidation)
}

// Priority of a task.
type Priority int

const (
	PriorityLow      Priority = 0
	PriorityMedium   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityCritical:
		return "Critical"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Kind controls whether a task tracks progress and whether progress needs
// manager acceptance.
type Kind int

const (
	KindSimple               Kind = 0
	KindWithDueDate          Kind = 1
	KindWithProgress         Kind = 2
	KindWithAcceptedProgress Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "Simple"
	case KindWithDueDate:
		return "WithDueDate"
	case KindWithProgress:
		return "WithProgress"
	case KindWithAcceptedProgress:
		return "WithAcceptedProgress"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) IsValid() bool {
	return k >= KindSimple && k <= KindWithAcceptedProgress
}

// TracksProgress reports whether tasks of this kind carry a progress percentage.
func (k Kind) TracksProgress() bool {
	return k == KindWithProgress || k == KindWithAcceptedProgress
}

// RequiresProgressAcceptance reports whether progress updates need manager sign-off.
func (k Kind) RequiresProgressAcceptance() bool {
	return k == KindWithAcceptedProgress
}

// ReminderLevel is the urgency derived from due date proximity.
type ReminderLevel int

const (
	ReminderNone     ReminderLevel = 0
	ReminderLow      ReminderLevel = 1
	ReminderMedium   ReminderLevel = 2
	ReminderHigh     ReminderLevel = 3
	ReminderCritical ReminderLevel = 4
)

func (l ReminderLevel) String() string {
	switch l {
	case ReminderNone:
		return "None"
	case ReminderLow:
		return "Low"
	case ReminderMedium:
		return "Medium"
	case ReminderHigh:
		return "High"
	case ReminderCritical:
		return "Critical"
	}
	return fmt.Sprintf("ReminderLevel(%d)", int(l))
}

// ParseReminderLevel resolves a level by name or ordinal.
func ParseReminderLevel(v string) (ReminderLevel, error) {
	key := strings.ToLower(strings.TrimSpace(v))
	for l := ReminderNone; l <= ReminderCritical; l++ {
		if strings.ToLower(l.String()) == key || strconv.Itoa(int(l)) == key {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown reminder level %q: %w", v, ErrValidation)
}

// Role of a user in the organisation.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
	RoleAdmin    Role = "Admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsManagerial reports whether the role can act as a manager on tasks.
func (r Role) IsManagerial() bool {
	return r == RoleManager || r == RoleAdmin
}
