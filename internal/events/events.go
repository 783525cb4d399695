// Package events carries notifications about task changes to whoever is
// listening: websocket clients, NATS subscribers, or nobody.
package events

import (
	"context"
	"errors"
	"time"

	"task-workflow-api/internal/log"
)

// Event types, one per successful command.
const (
	TypeTaskCreated         = "task_created"
	TypeTaskUpdated         = "task_updated"
	TypeTaskStatusChanged   = "task_status_changed"
	TypeProgressUpdated     = "task_progress_updated"
	TypeExtensionRequested  = "extension_requested"
	TypeExtensionResolved   = "extension_resolved"
	TypeTaskReviewed        = "task_reviewed"
	TypeTaskAssigneeChanged = "task_assignee_changed"
)

// Event is what subscribers receive. Recipients is the set of users
// involved in the task; it is used for routing and never serialised.
type Event struct {
	Type       string    `json:"type"`
	Command    string    `json:"command"`
	TaskID     string    `json:"taskId"`
	Status     string    `json:"status"`
	StatusCode int       `json:"statusCode"`
	Version    int64     `json:"version"`
	ActorID    string    `json:"actorId"`
	OccurredAt time.Time `json:"occurredAt"`
	Recipients []string  `json:"-"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Noop drops every event.
var Noop Publisher = PublisherFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every publisher. A failing publisher does not
// stop the others; failures are logged and returned joined.
type Multi struct {
	publishers []Publisher
	logger     log.Logger
}

// NewMulti returns a fan-out publisher. nil entries are skipped.
func NewMulti(logger log.Logger, publishers ...Publisher) *Multi {
	if logger == nil {
		logger = log.Noop
	}
	ps := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Multi{publishers: ps, logger: logger.WithValues(log.Kv{"svc": "events.Multi"})}
}

func (m *Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, e); err != nil {
			m.logger.WithCtxValues(ctx).Warningf("could not publish %s for task %s: %v", e.Type, e.TaskID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
