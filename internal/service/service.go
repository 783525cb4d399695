// Package service runs workflow commands and queries against the repository.
// Every command goes through the same pipeline: stateless validation, a
// transaction that loads the task, checks permissions, applies the workflow
// and persists the result, then metrics and event publication.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/events"
	"task-workflow-api/internal/log"
	"task-workflow-api/internal/metrics"
	"task-workflow-api/internal/reminder"
	"task-workflow-api/internal/storage"
	"task-workflow-api/internal/workflow"
)

// Config is the configuration for the workflow service.
type Config struct {
	Repo            storage.Repository
	Logger          log.Logger
	Clock           func() time.Time
	Reminder        *reminder.Options
	ExtensionPolicy *workflow.ExtensionPolicy
	Publisher       events.Publisher
	Metrics         metrics.Recorder
	IDGen           func() string
}

func (c *Config) defaults() error {
	if c.Repo == nil {
		return fmt.Errorf("repository is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "service.Workflow"})
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Reminder == nil {
		opts := reminder.DefaultOptions()
		c.Reminder = &opts
	}
	if err := c.Reminder.Validate(); err != nil {
		return err
	}
	if c.ExtensionPolicy == nil {
		p := workflow.DefaultExtensionPolicy()
		c.ExtensionPolicy = &p
	}
	if c.Publisher == nil {
		c.Publisher = events.Noop
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop
	}
	if c.IDGen == nil {
		c.IDGen = uuid.NewString
	}
	return nil
}

// Service is the workflow application service.
type Service struct {
	repo      storage.Repository
	logger    log.Logger
	now       func() time.Time
	reminders *reminder.Calculator
	policy    workflow.ExtensionPolicy
	publisher events.Publisher
	metrics   metrics.Recorder
	newID     func() string
	handlers  map[string]handlerFunc
}

// NewService returns a service with every command handler registered.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Service{
		repo:      cfg.Repo,
		logger:    cfg.Logger,
		now:       func() time.Time { return cfg.Clock().UTC() },
		policy:    *cfg.ExtensionPolicy,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		newID:     cfg.IDGen,
		handlers:  map[string]handlerFunc{},
	}
	s.reminders = reminder.NewCalculator(*cfg.Reminder, s.now)
	s.registerHandlers()
	return s, nil
}

// Result is what a successful command returns: the task as it now stands and,
// for commands that create a ledger row, that row's ID.
type Result struct {
	Task     TaskView `json:"task"`
	EntityID string   `json:"entityId,omitempty"`
}

// outcome is what a handler hands back to the pipeline.
type outcome struct {
	task        *domain.Task
	assignments []domain.TaskAssignment
	eventType   string
	entityID    string
}

type handlerFunc func(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd Command) (*outcome, error)

// register binds a typed handler to the command's name.
func register[C Command](s *Service, h func(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd C) (*outcome, error)) {
	var zero C
	name := zero.CommandName()
	if _, ok := s.handlers[name]; ok {
		panic(fmt.Sprintf("command %s registered twice", name))
	}
	s.handlers[name] = func(ctx context.Context, tx storage.Repository, actor domain.Actor, cmd Command) (*outcome, error) {
		c, ok := cmd.(C)
		if !ok {
			return nil, fmt.Errorf("command %s has unexpected type %T", name, cmd)
		}
		return h(ctx, tx, actor, c)
	}
}

func (s *Service) registerHandlers() {
	register(s, s.createTask)
	register(s, s.assignTask)
	register(s, s.reassignTask)
	register(s, s.acceptTask)
	register(s, s.rejectTask)
	register(s, s.updateTaskProgress)
	register(s, s.acceptTaskProgress)
	register(s, s.rejectTaskProgress)
	register(s, s.requestDeadlineExtension)
	register(s, s.approveExtensionRequest)
	register(s, s.rejectExtensionRequest)
	register(s, s.markTaskCompleted)
	register(s, s.reviewCompletedTask)
	register(s, s.cancelTask)
	register(s, s.updateTask)
	register(s, s.completeTask)
	register(s, s.requestMoreInfo)
}

// Commands lists the registered command names.
func (s *Service) Commands() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch runs cmd on behalf of actor.
func (s *Service) Dispatch(ctx context.Context, actor domain.Actor, cmd Command) (res *Result, err error) {
	if cmd == nil {
		return nil, fmt.Errorf("command is required: %w", domain.ErrValidation)
	}
	name := cmd.CommandName()
	logger := s.logger.WithCtxValues(ctx).WithValues(log.Kv{"command": name, "actor": actor.UserID})

	start := time.Now()
	defer func() {
		label := codeOK
		if err != nil {
			label = string(CodeOf(err))
		}
		s.metrics.ObserveCommand(ctx, name, label, time.Since(start))
		switch CodeOf(err) {
		case "":
			logger.Debugf("command handled")
		case CodeInternal:
			logger.Errorf("command failed: %v", err)
		default:
			logger.Infof("command refused: %v", err)
		}
	}()

	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown command %q: %w", name, domain.ErrValidation)
	}
	if actor.UserID == "" || !actor.Role.IsValid() {
		return nil, fmt.Errorf("unknown actor: %w", domain.ErrForbidden)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		out    *outcome
		view   TaskView
		hasExt bool
	)
	err = s.repo.WithinTx(ctx, func(tx storage.Repository) error {
		var err error
		out, err = handler(ctx, tx, actor, cmd)
		if err != nil {
			return err
		}
		if hasExt, err = s.hasPendingExtension(ctx, tx, out.task.ID); err != nil {
			return err
		}
		view = s.taskView(out.task, out.assignments, actor, hasExt)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, name, actor, out)
	return &Result{Task: view, EntityID: out.entityID}, nil
}

func (s *Service) publish(ctx context.Context, command string, actor domain.Actor, out *outcome) {
	recipients := []string{out.task.CreatedByID}
	if out.task.AssignedUserID != "" {
		recipients = append(recipients, out.task.AssignedUserID)
	}
	for _, a := range out.assignments {
		recipients = append(recipients, a.UserID)
	}
	e := events.Event{
		Type:       out.eventType,
		Command:    command,
		TaskID:     out.task.ID,
		Status:     out.task.Status.String(),
		StatusCode: int(out.task.Status),
		Version:    out.task.Version,
		ActorID:    actor.UserID,
		OccurredAt: s.now(),
		Recipients: recipients,
	}
	// Delivery is best effort; the command already committed.
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithCtxValues(ctx).Warningf("could not publish %s for task %s: %v", e.Type, e.TaskID, err)
	}
}

// taskState is a task loaded for a command together with what the actor is to it.
type taskState struct {
	task        *domain.Task
	assignments []domain.TaskAssignment
	from        domain.Status
}

// load reads the task and checks that actor may attempt action on it.
func (s *Service) load(ctx context.Context, tx storage.Repository, taskID string, actor domain.Actor, action domain.Action) (*taskState, error) {
	task, err := tx.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	assignments, err := tx.ListAssignments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	rel := domain.RelationshipOf(task, assignments, actor.UserID)
	if err := domain.Permit(action, task, actor, rel); err != nil {
		return nil, err
	}
	return &taskState{task: task, assignments: assignments, from: task.Status}, nil
}

// save refreshes the cached reminder level, writes the task under its version
// check and appends the audit entry.
func (s *Service) save(ctx context.Context, tx storage.Repository, st *taskState, actor domain.Actor, action domain.Action, notes string) error {
	st.task.ReminderLevel = s.reminders.ForTask(st.task)
	if err := tx.UpdateTask(ctx, st.task); err != nil {
		return err
	}
	return s.appendHistory(ctx, tx, st.task, st.from, actor, string(action), notes)
}

func (s *Service) appendHistory(ctx context.Context, tx storage.Repository, task *domain.Task, from domain.Status, actor domain.Actor, action, notes string) error {
	return tx.AppendHistory(ctx, domain.HistoryEntry{
		ID:          s.newID(),
		TaskID:      task.ID,
		FromStatus:  from,
		ToStatus:    task.Status,
		Action:      action,
		PerformedBy: actor.UserID,
		Notes:       notes,
		CreatedAt:   s.now(),
	})
}

func (st *taskState) outcome(eventType string) *outcome {
	if eventType == "" {
		eventType = events.TypeTaskUpdated
		if st.task.Status != st.from {
			eventType = events.TypeTaskStatusChanged
		}
	}
	return &outcome{task: st.task, assignments: st.assignments, eventType: eventType}
}

// checkAssignees makes sure every user exists, is active and, unless the actor
// is an admin, is managed by the actor.
func (s *Service) checkAssignees(ctx context.Context, tx storage.Repository, actor domain.Actor, userIDs []string) error {
	v := &domain.ValidationError{}
	for _, id := range userIDs {
		u, err := tx.GetUser(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		if !u.IsActive {
			v.Add("userIds", fmt.Sprintf("user %s is not active", id))
			continue
		}
		if actor.Role == domain.RoleAdmin {
			continue
		}
		managed, err := tx.IsManagerOf(ctx, actor.UserID, id)
		if err != nil {
			return err
		}
		if !managed {
			return fmt.Errorf("user %s is not managed by %s: %w", id, actor.UserID, domain.ErrForbidden)
		}
	}
	return v.OrNil()
}

func (s *Service) newAssignments(taskID string, userIDs []string) []domain.TaskAssignment {
	now := s.now()
	as := make([]domain.TaskAssignment, 0, len(userIDs))
	for i, id := range userIDs {
		as = append(as, domain.TaskAssignment{TaskID: taskID, UserID: id, IsPrimary: i == 0, CreatedAt: now})
	}
	return as
}

func (s *Service) hasPendingExtension(ctx context.Context, repo storage.Repository, taskID string) (bool, error) {
	pending := domain.ResolutionPending
	reqs, err := repo.ListExtensionRequests(ctx, storage.ExtensionFilter{TaskID: taskID, Status: &pending})
	if err != nil {
		return false, err
	}
	return len(reqs) > 0, nil
}

func (s *Service) taskView(task *domain.Task, assignments []domain.TaskAssignment, actor domain.Actor, hasPendingExtension bool) TaskView {
	rel := domain.RelationshipOf(task, assignments, actor.UserID)
	actions := domain.AvailableActions(task, actor, rel, domain.ActionContext{HasPendingExtension: hasPendingExtension})
	return newTaskView(task, assignments, s.reminders.ForTask(task), actions)
}
