package service_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/events"
	"task-workflow-api/internal/service"
	"task-workflow-api/internal/storage/sqlite"
	"task-workflow-api/internal/testutil"
)

var t0 = time.Date(2025, 5, 5, 9, 0, 0, 0, time.UTC)

var (
	admin   = domain.Actor{UserID: "adm-1", Role: domain.RoleAdmin}
	manager = domain.Actor{UserID: "mgr-1", Role: domain.RoleManager}
	emma    = domain.Actor{UserID: "emp-1", Role: domain.RoleEmployee}
	eli     = domain.Actor{UserID: "emp-2", Role: domain.RoleEmployee}
	olive   = domain.Actor{UserID: "emp-9", Role: domain.RoleEmployee}
)

type recorded struct {
	command string
	outcome string
}

type fakeMetrics struct {
	mu    sync.Mutex
	calls []recorded
}

func (m *fakeMetrics) ObserveCommand(_ context.Context, command, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recorded{command: command, outcome: outcome})
}

type fixture struct {
	svc     *service.Service
	now     time.Time
	events  []events.Event
	metrics *fakeMetrics
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	require.NoError(t, testutil.SeedUsers(db))
	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{DB: db})
	require.NoError(t, err)

	f := &fixture{now: t0, metrics: &fakeMetrics{}}
	var seq int
	svc, err := service.NewService(service.Config{
		Repo:  repo,
		Clock: func() time.Time { return f.now },
		IDGen: func() string {
			seq++
			return fmt.Sprintf("id-%04d", seq)
		},
		Publisher: events.PublisherFunc(func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		}),
		Metrics: f.metrics,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) dispatch(t *testing.T, actor domain.Actor, cmd service.Command) *service.Result {
	t.Helper()
	res, err := f.svc.Dispatch(context.Background(), actor, cmd)
	require.NoError(t, err)
	return res
}

func (f *fixture) createAssigned(t *testing.T, kind domain.Kind, due *time.Time, assignees ...string) string {
	t.Helper()
	res := f.dispatch(t, manager, service.CreateTask{
		Title: "Quarterly report", Priority: domain.PriorityHigh, Kind: kind, DueDate: due, AssigneeIDs: assignees,
	})
	return res.Task.ID
}

func at(d time.Duration) *time.Time {
	v := t0.Add(d)
	return &v
}

func intp(v int) *int { return &v }

func TestProgressAcceptanceScenario(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithAcceptedProgress, nil, "emp-1")
	f.dispatch(t, emma, service.AcceptTask{TaskID: id})

	held := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 40})
	require.Equal("Accepted", held.Task.Status)
	require.Equal(40, *held.Task.ProgressPercentage)
	require.NotEmpty(held.EntityID)

	submitted := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 50, SubmitForReview: true})
	require.Equal("UnderReview", submitted.Task.Status)
	require.Equal(int(domain.StatusUnderReview), submitted.Task.StatusCode)

	accepted := f.dispatch(t, manager, service.AcceptTaskProgress{TaskID: id, ProgressHistoryID: submitted.EntityID})
	require.Equal("Accepted", accepted.Task.Status)
	require.Equal(submitted.EntityID, accepted.EntityID)

	ledger, err := f.svc.ProgressHistory(context.Background(), emma, id)
	require.NoError(err)
	require.Len(ledger, 2)
	require.Equal("Pending", ledger[0].Status)
	require.Equal("Accepted", ledger[1].Status)
	require.Equal("mgr-1", ledger[1].AcceptedByID)
}

func TestRejectProgressRevertsToLastAccepted(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithAcceptedProgress, nil, "emp-1")
	f.dispatch(t, emma, service.AcceptTask{TaskID: id})
	first := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 30, SubmitForReview: true})
	f.dispatch(t, manager, service.AcceptTaskProgress{TaskID: id, ProgressHistoryID: first.EntityID})
	second := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 70, SubmitForReview: true})

	res := f.dispatch(t, manager, service.RejectTaskProgress{TaskID: id, ProgressHistoryID: second.EntityID})
	require.Equal("Accepted", res.Task.Status)
	require.Equal(30, *res.Task.ProgressPercentage)

	_, err := f.svc.Dispatch(context.Background(), emma, service.UpdateTaskProgress{TaskID: id, Percentage: 20})
	require.ErrorIs(err, domain.ErrValidation)
}

func TestProgressActionsMatchCommands(t *testing.T) {
	tests := map[string]struct {
		kind      domain.Kind
		submit    bool
		expListed bool
	}{
		"A report submitted for review should be acceptable.": {
			kind:      domain.KindWithAcceptedProgress,
			submit:    true,
			expListed: true,
		},
		"A held report should not be acceptable.": {
			kind: domain.KindWithAcceptedProgress,
		},
		"A report on a task without acceptance should not be acceptable.": {
			kind:   domain.KindWithProgress,
			submit: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			f := newFixture(t)
			ctx := context.Background()

			id := f.createAssigned(t, test.kind, nil, "emp-1")
			f.dispatch(t, emma, service.AcceptTask{TaskID: id})
			entryID := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 40, SubmitForReview: test.submit}).EntityID

			actions, err := f.svc.AvailableActions(ctx, manager, id)
			require.NoError(err)
			require.Equal(test.expListed, slices.Contains(actions, domain.ActionAcceptProgress))
			require.Equal(test.expListed, slices.Contains(actions, domain.ActionRejectProgress))

			_, err = f.svc.Dispatch(ctx, manager, service.AcceptTaskProgress{TaskID: id, ProgressHistoryID: entryID})
			require.Equal(test.expListed, err == nil, err)
			if test.expListed {
				return
			}
			require.ErrorIs(err, domain.ErrInvariantViolation)
			_, err = f.svc.Dispatch(ctx, manager, service.RejectTaskProgress{TaskID: id, ProgressHistoryID: entryID})
			require.ErrorIs(err, domain.ErrInvariantViolation)

			ledger, err := f.svc.ProgressHistory(ctx, manager, id)
			require.NoError(err)
			require.Len(ledger, 1)
			require.Equal("Pending", ledger[0].Status)
		})
	}
}

func TestZeroProgressOnSimpleTaskIsRecorded(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
	res := f.dispatch(t, emma, service.UpdateTaskProgress{TaskID: id, Percentage: 0, Notes: "not started"})
	require.NotEmpty(res.EntityID)
	require.Nil(res.Task.ProgressPercentage)

	ledger, err := f.svc.ProgressHistory(context.Background(), emma, id)
	require.NoError(err)
	require.Len(ledger, 1)
	require.Equal(res.EntityID, ledger[0].ID)
	require.Equal(0, ledger[0].Percentage)
	require.Equal("not started", ledger[0].Notes)
}

func TestCompletionReviewScenario(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithProgress, at(24*time.Hour), "emp-1")

	marked := f.dispatch(t, emma, service.MarkTaskCompleted{TaskID: id})
	require.Equal("PendingManagerReview", marked.Task.Status)
	require.Equal(100, *marked.Task.ProgressPercentage)

	reviewed := f.dispatch(t, manager, service.ReviewCompletedTask{TaskID: id, Accepted: true, Rating: intp(5), Feedback: "great"})
	require.Equal("Accepted", reviewed.Task.Status)
	require.Equal(5, *reviewed.Task.ManagerRating)

	history, err := f.svc.TaskHistory(context.Background(), manager, id)
	require.NoError(err)
	require.Len(history, 3)
	require.Equal("review-completed", history[2].Action)
	require.Equal("accepted: great", history[2].Notes)
	require.Equal("PendingManagerReview", history[2].FromStatus)
}

func TestReviewRejectionLandsInAccepted(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
	f.dispatch(t, emma, service.MarkTaskCompleted{TaskID: id})

	_, err := f.svc.Dispatch(context.Background(), manager, service.ReviewCompletedTask{TaskID: id, Accepted: true, SendBackForRework: true})
	require.ErrorIs(err, domain.ErrValidation)

	res := f.dispatch(t, manager, service.ReviewCompletedTask{TaskID: id})
	require.Equal("Accepted", res.Task.Status)
	require.Nil(res.Task.ProgressPercentage)
}

func TestExtensionScenario(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	due := at(5 * 24 * time.Hour)
	id := f.createAssigned(t, domain.KindWithDueDate, due, "emp-1")

	_, err := f.svc.Dispatch(ctx, emma, service.RequestDeadlineExtension{TaskID: id, RequestedDueDate: *at(60 * 24 * time.Hour), Reason: "scope grew"})
	require.ErrorIs(err, domain.ErrValidation)

	req := f.dispatch(t, emma, service.RequestDeadlineExtension{TaskID: id, RequestedDueDate: *at(10 * 24 * time.Hour), Reason: "scope grew"})
	require.NotEmpty(req.EntityID)

	_, err = f.svc.Dispatch(ctx, emma, service.RequestDeadlineExtension{TaskID: id, RequestedDueDate: *at(12 * 24 * time.Hour), Reason: "again"})
	require.ErrorIs(err, domain.ErrConflict)

	_, err = f.svc.Dispatch(ctx, eli, service.RequestDeadlineExtension{TaskID: id, RequestedDueDate: *at(12 * 24 * time.Hour), Reason: "me too"})
	require.ErrorIs(err, domain.ErrForbidden)

	pending, err := f.svc.PendingExtensionRequests(ctx, manager)
	require.NoError(err)
	require.Len(pending, 1)
	require.Equal(req.EntityID, pending[0].ID)

	_, err = f.svc.PendingExtensionRequests(ctx, emma)
	require.ErrorIs(err, domain.ErrForbidden)

	view, err := f.svc.GetTask(ctx, manager, id)
	require.NoError(err)
	require.Contains(view.AvailableActions, domain.ActionApproveExtension)

	approved := f.dispatch(t, manager, service.ApproveExtensionRequest{TaskID: id, RequestID: req.EntityID, Notes: "ok"})
	require.True(approved.Task.DueDate.Equal(*at(10 * 24 * time.Hour)))
	require.True(approved.Task.OriginalDueDate.Equal(*due))
	require.NotContains(approved.Task.AvailableActions, domain.ActionApproveExtension)

	_, err = f.svc.Dispatch(ctx, manager, service.RejectExtensionRequest{TaskID: id, RequestID: req.EntityID})
	require.ErrorIs(err, domain.ErrInvariantViolation)

	reqs, err := f.svc.ExtensionRequests(ctx, emma, id)
	require.NoError(err)
	require.Len(reqs, 1)
	require.Equal("Approved", reqs[0].Status)
	require.Equal("mgr-1", reqs[0].ReviewedByID)

	stored, err := f.svc.GetTask(ctx, emma, id)
	require.NoError(err)
	require.True(stored.DueDate.Equal(*at(10 * 24 * time.Hour)))
}

func TestRejectExtensionKeepsDeadline(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	due := at(5 * 24 * time.Hour)
	id := f.createAssigned(t, domain.KindWithDueDate, due, "emp-1")
	req := f.dispatch(t, emma, service.RequestDeadlineExtension{TaskID: id, RequestedDueDate: *at(8 * 24 * time.Hour), Reason: "sick"})

	res := f.dispatch(t, manager, service.RejectExtensionRequest{TaskID: id, RequestID: req.EntityID, Notes: "no"})
	require.True(res.Task.DueDate.Equal(*due))
	require.Nil(res.Task.OriginalDueDate)
	require.Equal(events.TypeExtensionResolved, f.events[len(f.events)-1].Type)
}

func TestDispatchErrors(t *testing.T) {
	tests := map[string]struct {
		actor  domain.Actor
		cmd    func(taskID string) service.Command
		expErr error
	}{
		"An employee should not be able to assign.": {
			actor:  emma,
			cmd:    func(id string) service.Command { return service.ReassignTask{TaskID: id, NewUserIDs: []string{"emp-2"}} },
			expErr: domain.ErrForbidden,
		},
		"A manager should not assign someone they do not manage.": {
			actor:  manager,
			cmd:    func(id string) service.Command { return service.ReassignTask{TaskID: id, NewUserIDs: []string{"emp-9"}} },
			expErr: domain.ErrForbidden,
		},
		"Assigning an inactive user should fail validation.": {
			actor:  manager,
			cmd:    func(id string) service.Command { return service.ReassignTask{TaskID: id, NewUserIDs: []string{"emp-off"}} },
			expErr: domain.ErrValidation,
		},
		"Assigning an unknown user should fail as not found.": {
			actor:  manager,
			cmd:    func(id string) service.Command { return service.ReassignTask{TaskID: id, NewUserIDs: []string{"ghost"}} },
			expErr: domain.ErrNotFound,
		},
		"Assigning an already assigned task should violate the state machine.": {
			actor:  manager,
			cmd:    func(id string) service.Command { return service.AssignTask{TaskID: id, UserIDs: []string{"emp-2"}} },
			expErr: domain.ErrInvariantViolation,
		},
		"An unknown task should fail as not found.": {
			actor:  manager,
			cmd:    func(string) service.Command { return service.CancelTask{TaskID: "missing"} },
			expErr: domain.ErrNotFound,
		},
		"An out of range percentage should fail validation.": {
			actor:  emma,
			cmd:    func(id string) service.Command { return service.UpdateTaskProgress{TaskID: id, Percentage: 150} },
			expErr: domain.ErrValidation,
		},
		"A non assignee should not report progress.": {
			actor:  olive,
			cmd:    func(id string) service.Command { return service.UpdateTaskProgress{TaskID: id, Percentage: 10} },
			expErr: domain.ErrForbidden,
		},
		"Progress above zero on a simple task should fail validation.": {
			actor:  emma,
			cmd:    func(id string) service.Command { return service.UpdateTaskProgress{TaskID: id, Percentage: 10} },
			expErr: domain.ErrValidation,
		},
		"An actor without a role should be forbidden.": {
			actor:  domain.Actor{UserID: "emp-1"},
			cmd:    func(id string) service.Command { return service.AcceptTask{TaskID: id} },
			expErr: domain.ErrForbidden,
		},
		"Reviewing a task that is not pending review should violate the state machine.": {
			actor:  manager,
			cmd:    func(id string) service.Command { return service.ReviewCompletedTask{TaskID: id, Accepted: true} },
			expErr: domain.ErrInvariantViolation,
		},
		"Asking for more information without a message should fail validation.": {
			actor:  emma,
			cmd:    func(id string) service.Command { return service.RequestMoreInfo{TaskID: id} },
			expErr: domain.ErrValidation,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			f := newFixture(t)
			id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
			before, err := f.svc.GetTask(context.Background(), manager, id)
			require.NoError(err)

			_, err = f.svc.Dispatch(context.Background(), test.actor, test.cmd(id))
			require.ErrorIs(err, test.expErr)

			after, err := f.svc.GetTask(context.Background(), manager, id)
			require.NoError(err)
			require.Equal(before.Version, after.Version)
			require.Equal(before.Status, after.Status)
		})
	}
}

func TestAdminAssignsAnyone(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	res := f.dispatch(t, admin, service.CreateTask{Title: "Audit", AssigneeIDs: []string{"emp-9", "emp-1"}})
	require.Equal("Assigned", res.Task.Status)
	require.Equal("emp-9", res.Task.AssignedUserID)
	require.Equal([]service.AssigneeView{{UserID: "emp-9", IsPrimary: true}, {UserID: "emp-1"}}, res.Task.Assignees)

	// The secondary assignee can work on it too.
	accepted := f.dispatch(t, emma, service.AcceptTask{TaskID: res.Task.ID})
	require.Equal("Accepted", accepted.Task.Status)
}

func TestReassignAfterRejection(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
	rejected := f.dispatch(t, emma, service.RejectTask{TaskID: id, Reason: "on leave"})
	require.Equal("Rejected", rejected.Task.Status)

	res := f.dispatch(t, manager, service.ReassignTask{TaskID: id, NewUserIDs: []string{"emp-2"}})
	require.Equal("Assigned", res.Task.Status)
	require.Equal("emp-2", res.Task.AssignedUserID)
	require.Equal([]service.AssigneeView{{UserID: "emp-2", IsPrimary: true}}, res.Task.Assignees)

	_, err := f.svc.Dispatch(context.Background(), emma, service.AcceptTask{TaskID: id})
	require.ErrorIs(err, domain.ErrForbidden)

	last := f.events[len(f.events)-1]
	require.Equal(events.TypeTaskAssigneeChanged, last.Type)
	require.ElementsMatch([]string{"mgr-1", "emp-2", "emp-2"}, last.Recipients)
}

func TestCancelIsTerminal(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithProgress, nil, "emp-1")
	res := f.dispatch(t, manager, service.CancelTask{TaskID: id, Reason: "not needed"})
	require.Equal("Cancelled", res.Task.Status)
	require.Empty(res.Task.AvailableActions)

	for _, cmd := range []service.Command{
		service.AcceptTask{TaskID: id},
		service.CompleteTask{TaskID: id},
		service.CancelTask{TaskID: id},
	} {
		actor := manager
		if cmd.CommandName() == "AcceptTask" {
			actor = emma
		}
		_, err := f.svc.Dispatch(context.Background(), actor, cmd)
		require.ErrorIs(err, domain.ErrInvariantViolation, cmd.CommandName())
	}
}

func TestCompleteTwiceFails(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithProgress, nil)
	res := f.dispatch(t, manager, service.CompleteTask{TaskID: id})
	require.Equal("Completed", res.Task.Status)
	require.Equal(100, *res.Task.ProgressPercentage)

	_, err := f.svc.Dispatch(context.Background(), manager, service.CompleteTask{TaskID: id})
	require.ErrorIs(err, domain.ErrInvariantViolation)
	require.Equal(service.CodeInvariantViolation, service.CodeOf(err))
}

func TestUpdateTask(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil)
	title := "  Renamed  "
	prio := domain.PriorityCritical
	res := f.dispatch(t, manager, service.UpdateTask{TaskID: id, Title: &title, Priority: &prio, DueDate: at(48 * time.Hour)})
	require.Equal("Renamed", res.Task.Title)
	require.Equal("Critical", res.Task.Priority)
	require.Equal("Created", res.Task.Status)
	require.Equal(events.TypeTaskUpdated, f.events[len(f.events)-1].Type)

	_, err := f.svc.Dispatch(context.Background(), manager, service.UpdateTask{TaskID: id})
	require.ErrorIs(err, domain.ErrValidation)
}

func TestRequestMoreInfo(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
	res := f.dispatch(t, emma, service.RequestMoreInfo{TaskID: id, Message: "which quarter?"})
	require.Equal("UnderReview", res.Task.Status)

	history, err := f.svc.TaskHistory(context.Background(), emma, id)
	require.NoError(err)
	require.Equal("which quarter?", history[len(history)-1].Notes)

	// A manager can accept on the assignee's behalf while it is under review.
	accepted := f.dispatch(t, manager, service.AcceptTask{TaskID: id})
	require.Equal("Accepted", accepted.Task.Status)
}

func TestAvailableActionsForAssignee(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindWithDueDate, at(72*time.Hour), "emp-1")
	actions, err := f.svc.AvailableActions(context.Background(), emma, id)
	require.NoError(err)
	require.Equal([]domain.Action{
		domain.ActionAccept,
		domain.ActionReject,
		domain.ActionRequestExtension,
		domain.ActionRequestMoreInfo,
		domain.ActionMarkCompleted,
	}, actions)

	_, err = f.svc.AvailableActions(context.Background(), olive, id)
	require.ErrorIs(err, domain.ErrForbidden)
}

func TestListTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	var ids []string
	ids = append(ids, f.createAssigned(t, domain.KindSimple, nil, "emp-1"))
	ids = append(ids, f.createAssigned(t, domain.KindSimple, nil, "emp-2"))
	ids = append(ids, f.createAssigned(t, domain.KindSimple, nil))
	f.dispatch(t, emma, service.AcceptTask{TaskID: ids[0]})

	tests := map[string]struct {
		actor    domain.Actor
		query    service.ListTasksQuery
		expIDs   []string
		expTotal int64
	}{
		"Managers should see every task, newest first.": {
			actor:    manager,
			expIDs:   []string{ids[2], ids[1], ids[0]},
			expTotal: 3,
		},
		"Employees should only see tasks they are involved in.": {
			actor:    emma,
			expIDs:   []string{ids[0]},
			expTotal: 1,
		},
		"Outsiders should see nothing.": {
			actor:    olive,
			expIDs:   []string{},
			expTotal: 0,
		},
		"Pages should be sliced after sorting.": {
			actor:    manager,
			query:    service.ListTasksQuery{Page: 2, Limit: 2, SortAsc: true},
			expIDs:   []string{ids[2]},
			expTotal: 3,
		},
		"A status filter should narrow the list.": {
			actor:    manager,
			query:    service.ListTasksQuery{Statuses: []domain.Status{domain.StatusAssigned}},
			expIDs:   []string{ids[1]},
			expTotal: 1,
		},
		"An assignee filter should narrow the list.": {
			actor:    manager,
			query:    service.ListTasksQuery{AssignedTo: "emp-2"},
			expIDs:   []string{ids[1]},
			expTotal: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			page, err := f.svc.ListTasks(ctx, test.actor, test.query)
			require.NoError(err)

			got := []string{}
			for _, v := range page.Tasks {
				got = append(got, v.ID)
			}
			require.Equal(test.expIDs, got)
			require.Equal(test.expTotal, page.Total)
			require.Equal(len(got), page.Count)
		})
	}
}

func TestDashboardAndReminders(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFixture(t)

	soon := f.createAssigned(t, domain.KindWithDueDate, at(48*time.Hour), "emp-1")
	later := f.createAssigned(t, domain.KindWithDueDate, at(10*24*time.Hour), "emp-1")
	dropped := f.createAssigned(t, domain.KindWithDueDate, at(24*time.Hour), "emp-1")
	f.dispatch(t, emma, service.AcceptTask{TaskID: later})
	f.dispatch(t, manager, service.CancelTask{TaskID: dropped})

	stats, err := f.svc.DashboardStats(ctx, emma)
	require.NoError(err)
	require.Equal(service.DashboardStats{NearDue: 1, InProgress: 2, PendingAcceptance: 1}, *stats)

	stats, err = f.svc.DashboardStats(ctx, manager)
	require.NoError(err)
	require.Equal(int64(3), stats.Created)

	f.advance(4 * 24 * time.Hour)

	stats, err = f.svc.DashboardStats(ctx, emma)
	require.NoError(err)
	require.Equal(int64(0), stats.NearDue)
	require.Equal(int64(1), stats.Delayed)

	critical, err := f.svc.ListTasksByReminderLevel(ctx, emma, domain.ReminderCritical)
	require.NoError(err)
	require.Len(critical, 1)
	require.Equal(soon, critical[0].ID)
	require.Equal("Critical", critical[0].ReminderLevel)

	low, err := f.svc.ListTasksByReminderLevel(ctx, manager, domain.ReminderLow)
	require.NoError(err)
	require.Len(low, 1)
	require.Equal(later, low[0].ID)
}

func TestEventsAndMetrics(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	id := f.createAssigned(t, domain.KindSimple, nil, "emp-1")
	_, err := f.svc.Dispatch(context.Background(), olive, service.AcceptTask{TaskID: id})
	require.Error(err)
	f.dispatch(t, emma, service.AcceptTask{TaskID: id})

	require.Len(f.events, 2)
	created := f.events[0]
	require.Equal(events.TypeTaskCreated, created.Type)
	require.Equal("CreateTask", created.Command)
	require.Equal(int64(1), created.Version)
	require.Contains(created.Recipients, "emp-1")
	require.Contains(created.Recipients, "mgr-1")

	changed := f.events[1]
	require.Equal(events.TypeTaskStatusChanged, changed.Type)
	require.Equal("Accepted", changed.Status)
	require.Equal("emp-1", changed.ActorID)
	require.Equal(int64(2), changed.Version)

	require.Equal([]recorded{
		{command: "CreateTask", outcome: "OK"},
		{command: "AcceptTask", outcome: "FORBIDDEN"},
		{command: "AcceptTask", outcome: "OK"},
	}, f.metrics.calls)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	require := require.New(t)
	db, err := testutil.NewInMemoryDB()
	require.NoError(err)
	require.NoError(testutil.SeedUsers(db))
	repo, err := sqlite.NewRepository(sqlite.RepositoryConfig{DB: db})
	require.NoError(err)
	svc, err := service.NewService(service.Config{
		Repo: repo,
		Publisher: events.PublisherFunc(func(context.Context, events.Event) error {
			return errors.New("broker down")
		}),
	})
	require.NoError(err)

	res, err := svc.Dispatch(context.Background(), manager, service.CreateTask{Title: "Still saved"})
	require.NoError(err)
	_, err = svc.GetTask(context.Background(), manager, res.Task.ID)
	require.NoError(err)
}

func TestUsersAndAuthentication(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("Users", func(t *testing.T) {
		require := require.New(t)
		users, err := f.svc.Users(ctx)
		require.NoError(err)
		require.Len(users, 6)

		managed, err := f.svc.ManagedEmployees(ctx, manager)
		require.NoError(err)
		got := []string{}
		for _, u := range managed {
			got = append(got, u.ID)
		}
		require.Equal([]string{"emp-2", "emp-1", "emp-off"}, got)

		all, err := f.svc.ManagedEmployees(ctx, admin)
		require.NoError(err)
		require.Len(all, 3)

		_, err = f.svc.ManagedEmployees(ctx, emma)
		require.ErrorIs(err, domain.ErrForbidden)
	})

	tests := map[string]struct {
		email    string
		password string
		expID    string
		expErr   error
	}{
		"Valid credentials should return the user.": {
			email: "Emma@Example.com", password: testutil.Password, expID: "emp-1",
		},
		"A wrong password should be refused.": {
			email: "emma@example.com", password: "nope", expErr: auth.ErrInvalidCredentials,
		},
		"An unknown email should be refused.": {
			email: "who@example.com", password: testutil.Password, expErr: auth.ErrInvalidCredentials,
		},
		"An inactive user should be refused.": {
			email: "gone@example.com", password: testutil.Password, expErr: auth.ErrInvalidCredentials,
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			u, err := f.svc.Authenticate(ctx, test.email, test.password)
			if test.expErr != nil {
				require.ErrorIs(err, test.expErr)
				return
			}
			require.NoError(err)
			require.Equal(test.expID, u.ID)
		})
	}
}

func TestErrorDetails(t *testing.T) {
	tests := map[string]struct {
		err        error
		expCode    service.ErrorCode
		expDetails []service.ErrorDetail
	}{
		"Validation errors should list every field.": {
			err: func() error {
				v := &domain.ValidationError{}
				v.Add("title", "title is required")
				v.Add("priority", "unknown priority")
				return v
			}(),
			expCode: service.CodeValidation,
			expDetails: []service.ErrorDetail{
				{Code: service.CodeValidation, Message: "title is required", Field: "title"},
				{Code: service.CodeValidation, Message: "unknown priority", Field: "priority"},
			},
		},
		"Wrapped sentinels should keep their code.": {
			err:        fmt.Errorf("task x: %w", domain.ErrNotFound),
			expCode:    service.CodeNotFound,
			expDetails: []service.ErrorDetail{{Code: service.CodeNotFound, Message: "task x: not found"}},
		},
		"Unknown errors should be internal and hide their message.": {
			err:        errors.New("disk on fire"),
			expCode:    service.CodeInternal,
			expDetails: []service.ErrorDetail{{Code: service.CodeInternal, Message: "internal error"}},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expCode, service.CodeOf(test.err))
			assert.Equal(t, test.expDetails, service.ErrorDetails(test.err))
		})
	}
}

func TestCommandsAreRegistered(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []string{
		"CreateTask", "AssignTask", "ReassignTask", "AcceptTask", "RejectTask",
		"UpdateTaskProgress", "AcceptTaskProgress", "RejectTaskProgress",
		"RequestDeadlineExtension", "ApproveExtensionRequest", "RejectExtensionRequest",
		"MarkTaskCompleted", "ReviewCompletedTask", "CancelTask", "UpdateTask",
		"CompleteTask", "RequestMoreInfo",
	}, f.svc.Commands())
}
