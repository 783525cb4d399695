package workflow

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"task-workflow-api/internal/domain"
)

const maxExtensionReasonLength = 500

// ExtensionPolicy bounds how often and how far a task's deadline can move.
type ExtensionPolicy struct {
	MaxRequestsPerTask int `yaml:"maxRequestsPerTask"`
	MaxExtensionDays   int `yaml:"maxExtensionDays"`
}

func DefaultExtensionPolicy() ExtensionPolicy {
	return ExtensionPolicy{MaxRequestsPerTask: 3, MaxExtensionDays: 30}
}

// ExtensionInput is an employee's request to move the due date.
type ExtensionInput struct {
	RequestID        string
	RequesterID      string
	RequestedDueDate time.Time
	Reason           string
}

// RequestExtension validates in against the task, its previous requests and
// policy, and returns a new pending request. The task is not modified.
func RequestExtension(task *domain.Task, in ExtensionInput, existing []domain.ExtensionRequest, policy ExtensionPolicy, now time.Time) (*domain.ExtensionRequest, error) {
	if err := task.Can(domain.ActionRequestExtension); err != nil {
		return nil, err
	}

	v := &domain.ValidationError{}
	reason := strings.TrimSpace(in.Reason)
	switch {
	case reason == "":
		v.Add("reason", "reason is required")
	case utf8.RuneCountInString(reason) > maxExtensionReasonLength:
		v.Add("reason", "reason cannot exceed 500 characters")
	}
	if !in.RequestedDueDate.After(now) {
		v.Add("requestedDueDate", "requested due date must be in the future")
	}
	if task.DueDate != nil {
		if !in.RequestedDueDate.After(*task.DueDate) {
			v.Add("requestedDueDate", "requested due date must be after the current due date")
		} else if policy.MaxExtensionDays > 0 && in.RequestedDueDate.Sub(*task.DueDate) > time.Duration(policy.MaxExtensionDays)*24*time.Hour {
			v.Add("requestedDueDate", fmt.Sprintf("extension cannot exceed %d days", policy.MaxExtensionDays))
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if HasPending(existing) {
		return nil, fmt.Errorf("task already has a pending extension request: %w", domain.ErrConflict)
	}
	if policy.MaxRequestsPerTask > 0 && len(existing) >= policy.MaxRequestsPerTask {
		return nil, fmt.Errorf("task reached the limit of %d extension requests: %w", policy.MaxRequestsPerTask, domain.ErrConflict)
	}

	return &domain.ExtensionRequest{
		ID:               in.RequestID,
		TaskID:           task.ID,
		RequestedByID:    in.RequesterID,
		RequestedDueDate: in.RequestedDueDate,
		Reason:           reason,
		Status:           domain.ResolutionPending,
		CreatedAt:        now,
	}, nil
}

// ApproveExtension approves req and moves the task's deadline to the
// requested date. Both change together or neither changes.
func ApproveExtension(task *domain.Task, req *domain.ExtensionRequest, reviewerID, notes string, now time.Time) error {
	if req.TaskID != task.ID {
		return fmt.Errorf("extension request %s on task %s: %w", req.ID, task.ID, domain.ErrNotFound)
	}
	if req.Status != domain.ResolutionPending {
		return req.Approve(reviewerID, notes, now)
	}
	if err := task.ExtendDeadline(req.RequestedDueDate, req.Reason, now); err != nil {
		return err
	}
	return req.Approve(reviewerID, notes, now)
}

// RejectExtension only resolves the request; the task keeps its deadline.
func RejectExtension(task *domain.Task, req *domain.ExtensionRequest, reviewerID, notes string, now time.Time) error {
	if req.TaskID != task.ID {
		return fmt.Errorf("extension request %s on task %s: %w", req.ID, task.ID, domain.ErrNotFound)
	}
	return req.Reject(reviewerID, notes, now)
}

// HasPending reports whether any request in reqs is still open.
func HasPending(reqs []domain.ExtensionRequest) bool {
	for _, r := range reqs {
		if r.Status == domain.ResolutionPending {
			return true
		}
	}
	return false
}
