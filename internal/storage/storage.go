package storage

import (
	"context"
	"time"

	"task-workflow-api/internal/domain"
)

// TaskFilter narrows task listings and counts. Zero values mean "no filter".
type TaskFilter struct {
	Statuses        []domain.Status
	ExcludeStatuses []domain.Status
	// AssignedTo matches the primary assignee or any assignment row.
	AssignedTo string
	CreatedBy  string
	// InvolvedUser matches the creator or any assignee.
	InvolvedUser string
	// DueFrom and DueTo are inclusive; DueBefore is exclusive.
	DueFrom   *time.Time
	DueTo     *time.Time
	DueBefore *time.Time
	HasDue    bool
	Offset    int
	Limit     int
	SortAsc   bool
}

// ExtensionFilter narrows extension request listings.
type ExtensionFilter struct {
	TaskID string
	Status *domain.ResolutionStatus
}

// TaskRepository persists tasks and the ledgers hanging off them.
type TaskRepository interface {
	CreateTask(ctx context.Context, t *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	// UpdateTask writes t only if the stored version still equals t.Version,
	// then bumps t.Version. A stale write returns domain.ErrConflict.
	UpdateTask(ctx context.Context, t *domain.Task) error
	ListTasks(ctx context.Context, f TaskFilter) ([]domain.Task, int64, error)
	CountTasks(ctx context.Context, f TaskFilter) (int64, error)

	ListAssignments(ctx context.Context, taskID string) ([]domain.TaskAssignment, error)
	ReplaceAssignments(ctx context.Context, taskID string, as []domain.TaskAssignment) error

	CreateProgressEntry(ctx context.Context, e domain.ProgressEntry) error
	UpdateProgressEntry(ctx context.Context, e domain.ProgressEntry) error
	GetProgressEntry(ctx context.Context, taskID, id string) (*domain.ProgressEntry, error)
	ListProgressEntries(ctx context.Context, taskID string) ([]domain.ProgressEntry, error)

	CreateExtensionRequest(ctx context.Context, r domain.ExtensionRequest) error
	UpdateExtensionRequest(ctx context.Context, r domain.ExtensionRequest) error
	GetExtensionRequest(ctx context.Context, taskID, id string) (*domain.ExtensionRequest, error)
	ListExtensionRequests(ctx context.Context, f ExtensionFilter) ([]domain.ExtensionRequest, error)

	AppendHistory(ctx context.Context, h domain.HistoryEntry) error
	ListHistory(ctx context.Context, taskID string) ([]domain.HistoryEntry, error)
}

// UserRepository persists users and who manages whom.
type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	AddManagedEmployee(ctx context.Context, managerID, employeeID string) error
	ListManagedEmployees(ctx context.Context, managerID string) ([]domain.User, error)
	IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error)
}

// Repository is the full persistence surface. WithinTx runs fn against a
// repository bound to one transaction; fn returning an error rolls it back.
type Repository interface {
	TaskRepository
	UserRepository
	WithinTx(ctx context.Context, fn func(r Repository) error) error
}
