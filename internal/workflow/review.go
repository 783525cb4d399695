package workflow

import (
	"time"

	"task-workflow-api/internal/domain"
)

// ReviewInput is the manager's verdict on work an employee marked completed.
type ReviewInput struct {
	Accepted          bool
	Rating            *int
	Feedback          string
	SendBackForRework bool
}

// ReviewOutcome tells the caller how to label the history entry.
type ReviewOutcome string

const (
	OutcomeAccepted ReviewOutcome = "accepted"
	OutcomeRejected ReviewOutcome = "rejected"
	OutcomeSentBack ReviewOutcome = "sent-back-for-rework"
)

// MarkCompleted hands an assignee's finished task to the manager.
func MarkCompleted(task *domain.Task, now time.Time) error {
	return task.MarkCompletedByEmployee(now)
}

// Review applies the manager's decision. A rejection that is not sent back
// still lands in Accepted; only the outcome label differs.
func Review(task *domain.Task, in ReviewInput, now time.Time) (ReviewOutcome, error) {
	err := task.ReviewByManager(domain.ReviewDecision{
		Accepted:          in.Accepted,
		Rating:            in.Rating,
		Feedback:          in.Feedback,
		SendBackForRework: in.SendBackForRework,
	}, now)
	if err != nil {
		return "", err
	}
	switch {
	case in.SendBackForRework:
		return OutcomeSentBack, nil
	case in.Accepted:
		return OutcomeAccepted, nil
	}
	return OutcomeRejected, nil
}
