package domain

import "fmt"

// Action identifies an operation on a task. The string values are what
// clients see in the available actions list.
type Action string

const (
	ActionAssign           Action = "assign"
	ActionReassign         Action = "reassign"
	ActionAccept           Action = "accept"
	ActionReject           Action = "reject"
	ActionUpdateProgress   Action = "update-progress"
	ActionAcceptProgress   Action = "accept-progress"
	ActionRejectProgress   Action = "reject-progress"
	ActionRequestExtension Action = "request-extension"
	ActionApproveExtension Action = "approve-extension"
	ActionRejectExtension  Action = "reject-extension"
	ActionRequestMoreInfo  Action = "request-more-info"
	ActionMarkCompleted    Action = "mark-completed"
	ActionReviewCompleted  Action = "review-completed"
	ActionComplete         Action = "complete"
	ActionCancel           Action = "cancel"
	ActionUpdate           Action = "update"
)

// actionOrder is the order in which AvailableActions reports actions.
var actionOrder = []Action{
	ActionAssign,
	ActionReassign,
	ActionAccept,
	ActionReject,
	ActionUpdateProgress,
	ActionAcceptProgress,
	ActionRejectProgress,
	ActionRequestExtension,
	ActionApproveExtension,
	ActionRejectExtension,
	ActionRequestMoreInfo,
	ActionMarkCompleted,
	ActionReviewCompleted,
	ActionComplete,
	ActionCancel,
	ActionUpdate,
}

// Actor is the user issuing a command.
type Actor struct {
	UserID string
	Role   Role
}

// Relationship describes how an actor is connected to a task.
type Relationship struct {
	Creator           bool
	PrimaryAssignee   bool
	SecondaryAssignee bool
}

func (r Relationship) IsAssignee() bool {
	return r.PrimaryAssignee || r.SecondaryAssignee
}

// RelationshipOf works out userID's relationship to task from the task's
// creator, its primary assignee and its assignment rows.
func RelationshipOf(task *Task, assignments []TaskAssignment, userID string) Relationship {
	var rel Relationship
	if userID == "" {
		return rel
	}
	rel.Creator = task.CreatedByID == userID
	rel.PrimaryAssignee = task.AssignedUserID == userID
	for _, a := range assignments {
		if a.UserID != userID {
			continue
		}
		if a.IsPrimary {
			rel.PrimaryAssignee = true
		} else if !rel.PrimaryAssignee {
			rel.SecondaryAssignee = true
		}
	}
	return rel
}

// ActionContext carries facts the resolver needs that are not on the task itself.
type ActionContext struct {
	HasPendingExtension bool
}

// Permit checks whether actor, related to task by rel, may attempt action.
// It does not look at task status; Task.Can does that.
func Permit(action Action, task *Task, actor Actor, rel Relationship) error {
	if allowed(action, task, actor, rel) {
		return nil
	}
	return fmt.Errorf("not allowed to %s this task: %w", action, ErrForbidden)
}

func allowed(action Action, task *Task, actor Actor, rel Relationship) bool {
	managerial := actor.Role.IsManagerial()
	switch action {
	case ActionAssign, ActionReassign,
		ActionApproveExtension, ActionRejectExtension,
		ActionReviewCompleted, ActionComplete:
		return managerial
	case ActionAccept, ActionReject:
		return rel.IsAssignee() || (managerial && task.Status == StatusUnderReview)
	case ActionUpdateProgress, ActionMarkCompleted, ActionRequestExtension, ActionRequestMoreInfo:
		return rel.IsAssignee()
	case ActionAcceptProgress, ActionRejectProgress:
		return rel.Creator || actor.Role == RoleAdmin
	case ActionCancel, ActionUpdate:
		return rel.Creator || managerial
	}
	return false
}

// AvailableActions returns, in a stable order, every action the actor may
// perform on task right now. An action is listed only when both the
// permission check and the task's own guard pass, so the list never offers
// something the aggregate would refuse.
func AvailableActions(task *Task, actor Actor, rel Relationship, ctx ActionContext) []Action {
	actions := make([]Action, 0, len(actionOrder))
	for _, a := range actionOrder {
		if !allowed(a, task, actor, rel) {
			continue
		}
		if (a == ActionApproveExtension || a == ActionRejectExtension) && !ctx.HasPendingExtension {
			continue
		}
		if task.Can(a) != nil {
			continue
		}
		actions = append(actions, a)
	}
	return actions
}
