package models

import "time"

// Task is the persisted form of a task. Status, priority, type and reminder
// level are stored as their numeric codes.
type Task struct {
	ID                 string     `json:"id" gorm:"primaryKey"`
	Title              string     `json:"title" gorm:"not null"`
	Description        string     `json:"description"`
	Status             int        `json:"status" gorm:"not null;index"`
	Priority           int        `json:"priority" gorm:"not null"`
	TaskType           int        `json:"type" gorm:"column:task_type;not null"`
	DueDate            *time.Time `json:"dueDate" gorm:"column:due_date;index"`
	OriginalDueDate    *time.Time `json:"originalDueDate" gorm:"column:original_due_date"`
	ExtendedDueDate    *time.Time `json:"extendedDueDate" gorm:"column:extended_due_date"`
	AssignedUserID     string     `json:"assignedUserId" gorm:"column:assigned_user_id;index"`
	CreatedByID        string     `json:"createdById" gorm:"column:created_by_id;not null;index"`
	ProgressPercentage *int       `json:"progressPercentage" gorm:"column:progress_percentage"`
	ReminderLevel      int        `json:"reminderLevel" gorm:"column:reminder_level"`
	ManagerRating      *int       `json:"managerRating" gorm:"column:manager_rating"`
	ManagerFeedback    string     `json:"managerFeedback" gorm:"column:manager_feedback"`
	Version            int64      `json:"version" gorm:"not null"`
	CreatedAt          time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time  `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// TaskAssignment links a task to one of its assignees
type TaskAssignment struct {
	TaskID    string    `json:"taskId" gorm:"primaryKey;column:task_id"`
	UserID    string    `json:"userId" gorm:"primaryKey;column:user_id;index"`
	IsPrimary bool      `json:"isPrimary" gorm:"column:is_primary;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for TaskAssignment Model
func (TaskAssignment) TableName() string {
	return "task_assignments"
}

// TaskProgressHistory is one progress report
type TaskProgressHistory struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	TaskID       string     `json:"taskId" gorm:"column:task_id;not null;index"`
	UpdatedByID  string     `json:"updatedById" gorm:"column:updated_by_id;not null"`
	Percentage   int        `json:"percentage" gorm:"not null"`
	Notes        string     `json:"notes"`
	Status       int        `json:"status" gorm:"not null"`
	AcceptedByID string     `json:"acceptedById" gorm:"column:accepted_by_id"`
	AcceptedAt   *time.Time `json:"acceptedAt" gorm:"column:accepted_at"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TableName specifies the table name for TaskProgressHistory Model
func (TaskProgressHistory) TableName() string {
	return "task_progress_history"
}

// DeadlineExtensionRequest is an employee's request to move a due date
type DeadlineExtensionRequest struct {
	ID               string     `json:"id" gorm:"primaryKey"`
	TaskID           string     `json:"taskId" gorm:"column:task_id;not null;index"`
	RequestedByID    string     `json:"requestedById" gorm:"column:requested_by_id;not null"`
	RequestedDueDate time.Time  `json:"requestedDueDate" gorm:"column:requested_due_date;not null"`
	Reason           string     `json:"reason" gorm:"not null"`
	Status           int        `json:"status" gorm:"not null;index"`
	ReviewedByID     string     `json:"reviewedById" gorm:"column:reviewed_by_id"`
	ReviewedAt       *time.Time `json:"reviewedAt" gorm:"column:reviewed_at"`
	ReviewNotes      string     `json:"reviewNotes" gorm:"column:review_notes"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// TableName specifies the table name for DeadlineExtensionRequest Model
func (DeadlineExtensionRequest) TableName() string {
	return "deadline_extension_requests"
}

// TaskHistory is one audit line
type TaskHistory struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	TaskID      string    `json:"taskId" gorm:"column:task_id;not null;index"`
	FromStatus  int       `json:"fromStatus" gorm:"column:from_status"`
	ToStatus    int       `json:"toStatus" gorm:"column:to_status"`
	Action      string    `json:"action" gorm:"not null"`
	PerformedBy string    `json:"performedBy" gorm:"column:performed_by;not null"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
}

// TableName specifies the table name for TaskHistory Model
func (TaskHistory) TableName() string {
	return "task_history"
}

// All lists every model for migrations.
func All() []any {
	return []any{
		&User{},
		&ManagerEmployee{},
		&Task{},
		&TaskAssignment{},
		&TaskProgressHistory{},
		&DeadlineExtensionRequest{},
		&TaskHistory{},
	}
}
