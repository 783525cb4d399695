// Package workflow holds the multi-step sub-workflows that operate on a task
// together with its ledgers: progress reporting, deadline extensions and the
// final manager review. Everything here is pure; callers load and persist.
package workflow

import (
	"fmt"
	"time"
	"unicode/utf8"

	"task-workflow-api/internal/domain"
)

// ProgressUpdate is one progress report from an assignee.
type ProgressUpdate struct {
	EntryID    string
	UpdaterID  string
	Percentage int
	Notes      string
	// RequiresAcceptance holds the update back without putting the task
	// under review. It only matters for WithAcceptedProgress tasks.
	RequiresAcceptance bool
}

const maxProgressNotesLength = 1000

// LastAccepted returns the percentage of the most recent accepted entry in
// ledger, or 0 when nothing was accepted yet.
func LastAccepted(ledger []domain.ProgressEntry) int {
	var (
		found bool
		last  domain.ProgressEntry
	)
	for _, e := range ledger {
		if e.Status != domain.ResolutionAccepted {
			continue
		}
		if !found || !e.CreatedAt.Before(last.CreatedAt) {
			last, found = e, true
		}
	}
	if !found {
		return 0
	}
	return last.Percentage
}

// progressFloor is the lowest percentage a new report may carry. Tasks that
// need acceptance measure from the last accepted entry; the rest also count
// whatever is currently on the task.
func progressFloor(task *domain.Task, ledger []domain.ProgressEntry) int {
	floor := LastAccepted(ledger)
	if !task.Kind.RequiresProgressAcceptance() && task.Progress() > floor {
		floor = task.Progress()
	}
	return floor
}

// UpdateProgress applies u to task and returns the new pending ledger entry.
// Kinds that do not track progress only take a zero report, which is still
// recorded in the ledger.
func UpdateProgress(task *domain.Task, ledger []domain.ProgressEntry, u ProgressUpdate, now time.Time) (*domain.ProgressEntry, error) {
	v := &domain.ValidationError{}
	if utf8.RuneCountInString(u.Notes) > maxProgressNotesLength {
		v.Add("notes", "notes cannot exceed 1000 characters")
	}
	if task.Kind.TracksProgress() {
		if floor := progressFloor(task, ledger); u.Percentage >= 0 && u.Percentage < floor {
			v.Add("percentage", fmt.Sprintf("percentage cannot be lower than the last accepted value (%d)", floor))
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := task.UpdateProgress(u.Percentage, u.RequiresAcceptance, now); err != nil {
		return nil, err
	}
	return &domain.ProgressEntry{
		ID:          u.EntryID,
		TaskID:      task.ID,
		UpdatedByID: u.UpdaterID,
		Percentage:  u.Percentage,
		Notes:       u.Notes,
		Status:      domain.ResolutionPending,
		CreatedAt:   now,
	}, nil
}

// AcceptProgress accepts entry and returns the task to Accepted. Like
// RejectProgress it needs a WithAcceptedProgress task under review, the same
// guard the available actions are derived from.
func AcceptProgress(task *domain.Task, entry *domain.ProgressEntry, acceptorID string, now time.Time) error {
	if entry.TaskID != task.ID {
		return fmt.Errorf("progress entry %s on task %s: %w", entry.ID, task.ID, domain.ErrNotFound)
	}
	if err := task.Can(domain.ActionAcceptProgress); err != nil {
		return err
	}
	if err := entry.Accept(acceptorID, now); err != nil {
		return err
	}
	return task.AcceptProgress(now)
}

// RejectProgress rejects entry and rolls the task back to the last accepted
// percentage. Only WithAcceptedProgress tasks under review qualify.
func RejectProgress(task *domain.Task, entry *domain.ProgressEntry, ledger []domain.ProgressEntry, rejectorID string, now time.Time) error {
	if entry.TaskID != task.ID {
		return fmt.Errorf("progress entry %s on task %s: %w", entry.ID, task.ID, domain.ErrNotFound)
	}
	if err := task.Can(domain.ActionRejectProgress); err != nil {
		return err
	}
	if err := entry.Reject(rejectorID, now); err != nil {
		return err
	}

	others := make([]domain.ProgressEntry, 0, len(ledger))
	for _, e := range ledger {
		if e.ID != entry.ID {
			others = append(others, e)
		}
	}
	return task.RevertProgress(LastAccepted(others), now)
}
