package service

import (
	"context"
	"fmt"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/events"
	"task-workflow-api/internal/storage"
	"task-workflow-api/internal/workflow"
)

func (s *Service) createTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd CreateTask) (*outcome, error) {
	now := s.now()
	var due = cmd.DueDate
	if due != nil {
		utc := due.UTC()
		due = &utc
	}
	task, err := domain.NewTask(domain.NewTaskParams{
		ID:          s.newID(),
		Title:       cmd.Title,
		Description: cmd.Description,
		Priority:    cmd.Priority,
		Kind:        cmd.Kind,
		DueDate:     due,
		CreatedByID: actor.UserID,
	}, now)
	if err != nil {
		return nil, err
	}

	var assignments []domain.TaskAssignment
	if len(cmd.AssigneeIDs) > 0 {
		rel := domain.RelationshipOf(task, nil, actor.UserID)
		if err := domain.Permit(domain.ActionAssign, task, actor, rel); err != nil {
			return nil, err
		}
		if err := s.checkAssignees(ctx, tx, actor, cmd.AssigneeIDs); err != nil {
			return nil, err
		}
		if err := task.Assign(cmd.AssigneeIDs[0], now); err != nil {
			return nil, err
		}
		assignments = s.newAssignments(task.ID, cmd.AssigneeIDs)
	}

	task.ReminderLevel = s.reminders.ForTask(task)
	if err := tx.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	if len(assignments) > 0 {
		if err := tx.ReplaceAssignments(ctx, task.ID, assignments); err != nil {
			return nil, err
		}
	}
	if err := s.appendHistory(ctx, tx, task, domain.StatusCreated, actor, "create", ""); err != nil {
		return nil, err
	}
	return &outcome{task: task, assignments: assignments, eventType: events.TypeTaskCreated}, nil
}

func (s *Service) assignTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd AssignTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionAssign)
	if err != nil {
		return nil, err
	}
	if err := st.task.Can(domain.ActionAssign); err != nil {
		return nil, err
	}
	if err := s.checkAssignees(ctx, tx, actor, cmd.UserIDs); err != nil {
		return nil, err
	}
	if err := st.task.Assign(cmd.UserIDs[0], s.now()); err != nil {
		return nil, err
	}
	return s.replaceAssignees(ctx, tx, st, actor, domain.ActionAssign, cmd.UserIDs)
}

func (s *Service) reassignTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd ReassignTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionReassign)
	if err != nil {
		return nil, err
	}
	if err := st.task.Can(domain.ActionReassign); err != nil {
		return nil, err
	}
	if err := s.checkAssignees(ctx, tx, actor, cmd.NewUserIDs); err != nil {
		return nil, err
	}
	if err := st.task.Reassign(cmd.NewUserIDs[0], s.now()); err != nil {
		return nil, err
	}
	return s.replaceAssignees(ctx, tx, st, actor, domain.ActionReassign, cmd.NewUserIDs)
}

func (s *Service) replaceAssignees(ctx context.Context, tx storage.Repository, st *taskState, actor domain.Actor, action domain.Action, userIDs []string) (*outcome, error) {
	st.assignments = s.newAssignments(st.task.ID, userIDs)
	if err := tx.ReplaceAssignments(ctx, st.task.ID, st.assignments); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, action, ""); err != nil {
		return nil, err
	}
	return st.outcome(events.TypeTaskAssigneeChanged), nil
}

func (s *Service) acceptTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd AcceptTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionAccept)
	if err != nil {
		return nil, err
	}
	if err := st.task.Accept(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionAccept, ""); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}

func (s *Service) rejectTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd RejectTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionReject)
	if err != nil {
		return nil, err
	}
	if err := st.task.Reject(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionReject, cmd.Reason); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}

func (s *Service) updateTaskProgress(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd UpdateTaskProgress) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionUpdateProgress)
	if err != nil {
		return nil, err
	}
	ledger, err := tx.ListProgressEntries(ctx, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	entry, err := workflow.UpdateProgress(st.task, ledger, workflow.ProgressUpdate{
		EntryID:            s.newID(),
		UpdaterID:          actor.UserID,
		Percentage:         cmd.Percentage,
		Notes:              cmd.Notes,
		RequiresAcceptance: !cmd.SubmitForReview,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := tx.CreateProgressEntry(ctx, *entry); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionUpdateProgress, fmt.Sprintf("%d%%", cmd.Percentage)); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeProgressUpdated)
	out.entityID = entry.ID
	return out, nil
}

func (s *Service) acceptTaskProgress(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd AcceptTaskProgress) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionAcceptProgress)
	if err != nil {
		return nil, err
	}
	entry, err := tx.GetProgressEntry(ctx, cmd.TaskID, cmd.ProgressHistoryID)
	if err != nil {
		return nil, err
	}
	if err := workflow.AcceptProgress(st.task, entry, actor.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateProgressEntry(ctx, *entry); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionAcceptProgress, fmt.Sprintf("%d%%", entry.Percentage)); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeProgressUpdated)
	out.entityID = entry.ID
	return out, nil
}

func (s *Service) rejectTaskProgress(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd RejectTaskProgress) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionRejectProgress)
	if err != nil {
		return nil, err
	}
	entry, err := tx.GetProgressEntry(ctx, cmd.TaskID, cmd.ProgressHistoryID)
	if err != nil {
		return nil, err
	}
	ledger, err := tx.ListProgressEntries(ctx, cmd.TaskID)
	if err != nil {
		return nil, err
	}
	if err := workflow.RejectProgress(st.task, entry, ledger, actor.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateProgressEntry(ctx, *entry); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionRejectProgress, fmt.Sprintf("%d%%", entry.Percentage)); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeProgressUpdated)
	out.entityID = entry.ID
	return out, nil
}

func (s *Service) requestDeadlineExtension(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd RequestDeadlineExtension) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionRequestExtension)
	if err != nil {
		return nil, err
	}
	existing, err := tx.ListExtensionRequests(ctx, storage.ExtensionFilter{TaskID: cmd.TaskID})
	if err != nil {
		return nil, err
	}
	req, err := workflow.RequestExtension(st.task, workflow.ExtensionInput{
		RequestID:        s.newID(),
		RequesterID:      actor.UserID,
		RequestedDueDate: cmd.RequestedDueDate.UTC(),
		Reason:           cmd.Reason,
	}, existing, s.policy, s.now())
	if err != nil {
		return nil, err
	}
	if err := tx.CreateExtensionRequest(ctx, *req); err != nil {
		return nil, err
	}
	// The task itself is unchanged; saving it bumps the version so two
	// concurrent requests cannot both pass the one-pending check.
	if err := s.save(ctx, tx, st, actor, domain.ActionRequestExtension, req.Reason); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeExtensionRequested)
	out.entityID = req.ID
	return out, nil
}

func (s *Service) approveExtensionRequest(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd ApproveExtensionRequest) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionApproveExtension)
	if err != nil {
		return nil, err
	}
	req, err := tx.GetExtensionRequest(ctx, cmd.TaskID, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if err := workflow.ApproveExtension(st.task, req, actor.UserID, cmd.Notes, s.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateExtensionRequest(ctx, *req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionApproveExtension, cmd.Notes); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeExtensionResolved)
	out.entityID = req.ID
	return out, nil
}

func (s *Service) rejectExtensionRequest(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd RejectExtensionRequest) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionRejectExtension)
	if err != nil {
		return nil, err
	}
	req, err := tx.GetExtensionRequest(ctx, cmd.TaskID, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if err := workflow.RejectExtension(st.task, req, actor.UserID, cmd.Notes, s.now()); err != nil {
		return nil, err
	}
	if err := tx.UpdateExtensionRequest(ctx, *req); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionRejectExtension, cmd.Notes); err != nil {
		return nil, err
	}
	out := st.outcome(events.TypeExtensionResolved)
	out.entityID = req.ID
	return out, nil
}

func (s *Service) markTaskCompleted(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd MarkTaskCompleted) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionMarkCompleted)
	if err != nil {
		return nil, err
	}
	if err := workflow.MarkCompleted(st.task, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionMarkCompleted, ""); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}

func (s *Service) reviewCompletedTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd ReviewCompletedTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionReviewCompleted)
	if err != nil {
		return nil, err
	}
	result, err := workflow.Review(st.task, workflow.ReviewInput{
		Accepted:          cmd.Accepted,
		Rating:            cmd.Rating,
		Feedback:          cmd.Feedback,
		SendBackForRework: cmd.SendBackForRework,
	}, s.now())
	if err != nil {
		return nil, err
	}
	notes := string(result)
	if cmd.Feedback != "" {
		notes += ": " + cmd.Feedback
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionReviewCompleted, notes); err != nil {
		return nil, err
	}
	return st.outcome(events.TypeTaskReviewed), nil
}

func (s *Service) cancelTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd CancelTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionCancel)
	if err != nil {
		return nil, err
	}
	if err := st.task.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionCancel, cmd.Reason); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}

func (s *Service) updateTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd UpdateTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionUpdate)
	if err != nil {
		return nil, err
	}
	details := domain.Details{Title: cmd.Title, Description: cmd.Description, Priority: cmd.Priority}
	if cmd.DueDate != nil {
		due := cmd.DueDate.UTC()
		details.DueDate = &due
	}
	if err := st.task.UpdateDetails(details, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionUpdate, ""); err != nil {
		return nil, err
	}
	return st.outcome(events.TypeTaskUpdated), nil
}

func (s *Service) completeTask(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd CompleteTask) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionComplete)
	if err != nil {
		return nil, err
	}
	if err := st.task.Complete(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionComplete, ""); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}

func (s *Service) requestMoreInfo(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd RequestMoreInfo) (*outcome, error) {
	st, err := s.load(ctx, tx, cmd.TaskID, actor, domain.ActionRequestMoreInfo)
	if err != nil {
		return nil, err
	}
	if err := st.task.SetUnderReview(s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, tx, st, actor, domain.ActionRequestMoreInfo, cmd.Message); err != nil {
		return nil, err
	}
	return st.outcome(""), nil
}
