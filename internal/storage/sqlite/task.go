package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/models"
	"task-workflow-api/internal/storage"
)

func toTaskRow(t *domain.Task) models.Task {
	return models.Task{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Status:             int(t.Status),
		Priority:           int(t.Priority),
		TaskType:           int(t.Kind),
		DueDate:            utcPtr(t.DueDate),
		OriginalDueDate:    utcPtr(t.OriginalDueDate),
		ExtendedDueDate:    utcPtr(t.ExtendedDueDate),
		AssignedUserID:     t.AssignedUserID,
		CreatedByID:        t.CreatedByID,
		ProgressPercentage: t.ProgressPercentage,
		ReminderLevel:      int(t.ReminderLevel),
		ManagerRating:      t.ManagerRating,
		ManagerFeedback:    t.ManagerFeedback,
		Version:            t.Version,
		CreatedAt:          utc(t.CreatedAt),
		UpdatedAt:          utc(t.UpdatedAt),
	}
}

func fromTaskRow(m models.Task) domain.Task {
	return domain.Task{
		ID:                 m.ID,
		Title:              m.Title,
		Description:        m.Description,
		Status:             domain.Status(m.Status),
		Priority:           domain.Priority(m.Priority),
		Kind:               domain.Kind(m.TaskType),
		DueDate:            utcPtr(m.DueDate),
		OriginalDueDate:    utcPtr(m.OriginalDueDate),
		ExtendedDueDate:    utcPtr(m.ExtendedDueDate),
		AssignedUserID:     m.AssignedUserID,
		CreatedByID:        m.CreatedByID,
		ProgressPercentage: m.ProgressPercentage,
		ReminderLevel:      domain.ReminderLevel(m.ReminderLevel),
		ManagerRating:      m.ManagerRating,
		ManagerFeedback:    m.ManagerFeedback,
		Version:            m.Version,
		CreatedAt:          utc(m.CreatedAt),
		UpdatedAt:          utc(m.UpdatedAt),
	}
}

// CreateTask implements storage.TaskRepository. The stored version starts at 1.
func (r *Repository) CreateTask(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", domain.ErrValidation)
	}
	row := toTaskRow(t)
	row.Version = 1
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return wrapErr(err, "could not create task %s", t.ID)
	}
	t.Version = row.Version
	return nil
}

// GetTask implements storage.TaskRepository.
func (r *Repository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var row models.Task
	if err := r.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, wrapErr(err, "task %s", id)
	}
	t := fromTaskRow(row)
	return &t, nil
}

// UpdateTask implements storage.TaskRepository.
func (r *Repository) UpdateTask(ctx context.Context, t *domain.Task) error {
	row := toTaskRow(t)
	res := r.conn(ctx).Model(&models.Task{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]any{
			"title":               row.Title,
			"description":         row.Description,
			"status":              row.Status,
			"priority":            row.Priority,
			"task_type":           row.TaskType,
			"due_date":            row.DueDate,
			"original_due_date":   row.OriginalDueDate,
			"extended_due_date":   row.ExtendedDueDate,
			"assigned_user_id":    row.AssignedUserID,
			"progress_percentage": row.ProgressPercentage,
			"reminder_level":      row.ReminderLevel,
			"manager_rating":      row.ManagerRating,
			"manager_feedback":    row.ManagerFeedback,
			"updated_at":          row.UpdatedAt,
			"version":             t.Version + 1,
		})
	if res.Error != nil {
		return wrapErr(res.Error, "could not update task %s", t.ID)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.conn(ctx).Model(&models.Task{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
			return wrapErr(err, "could not check task %s", t.ID)
		}
		if count == 0 {
			return fmt.Errorf("task %s: %w", t.ID, domain.ErrNotFound)
		}
		r.logger.Debugf("stale write on task %s at version %d", t.ID, t.Version)
		return fmt.Errorf("task %s was modified concurrently: %w", t.ID, domain.ErrConflict)
	}
	t.Version++
	return nil
}

func (r *Repository) taskQuery(ctx context.Context, f storage.TaskFilter) *gorm.DB {
	q := r.conn(ctx).Model(&models.Task{})
	assignedTo := func(userID string) *gorm.DB {
		return r.db.Session(&gorm.Session{NewDB: true}).
			Model(&models.TaskAssignment{}).Select("task_id").Where("user_id = ?", userID)
	}

	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", statusCodes(f.Statuses))
	}
	if len(f.ExcludeStatuses) > 0 {
		q = q.Where("status NOT IN ?", statusCodes(f.ExcludeStatuses))
	}
	if f.AssignedTo != "" {
		q = q.Where("(assigned_user_id = ? OR id IN (?))", f.AssignedTo, assignedTo(f.AssignedTo))
	}
	if f.CreatedBy != "" {
		q = q.Where("created_by_id = ?", f.CreatedBy)
	}
	if f.InvolvedUser != "" {
		q = q.Where("(created_by_id = ? OR assigned_user_id = ? OR id IN (?))",
			f.InvolvedUser, f.InvolvedUser, assignedTo(f.InvolvedUser))
	}
	if f.HasDue {
		q = q.Where("due_date IS NOT NULL")
	}
	if f.DueFrom != nil {
		q = q.Where("due_date >= ?", f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		q = q.Where("due_date <= ?", f.DueTo.UTC())
	}
	if f.DueBefore != nil {
		q = q.Where("due_date < ?", f.DueBefore.UTC())
	}
	return q
}

// ListTasks implements storage.TaskRepository. It returns the page and the
// total number of matches ignoring pagination.
func (r *Repository) ListTasks(ctx context.Context, f storage.TaskFilter) ([]domain.Task, int64, error) {
	q := r.taskQuery(ctx, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrapErr(err, "could not count tasks")
	}

	order := "created_at desc, id desc"
	if f.SortAsc {
		order = "created_at asc, id asc"
	}
	page := q.Session(&gorm.Session{}).Order(order)
	if f.Limit > 0 {
		page = page.Limit(f.Limit)
	}
	if f.Offset > 0 {
		page = page.Offset(f.Offset)
	}

	var rows []models.Task
	if err := page.Find(&rows).Error; err != nil {
		return nil, 0, wrapErr(err, "could not list tasks")
	}
	tasks := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, fromTaskRow(row))
	}
	return tasks, total, nil
}

// CountTasks implements storage.TaskRepository.
func (r *Repository) CountTasks(ctx context.Context, f storage.TaskFilter) (int64, error) {
	var total int64
	if err := r.taskQuery(ctx, f).Count(&total).Error; err != nil {
		return 0, wrapErr(err, "could not count tasks")
	}
	return total, nil
}

// ListAssignments implements storage.TaskRepository. The primary assignee comes first.
func (r *Repository) ListAssignments(ctx context.Context, taskID string) ([]domain.TaskAssignment, error) {
	var rows []models.TaskAssignment
	err := r.conn(ctx).Where("task_id = ?", taskID).Order("is_primary desc, created_at asc, user_id asc").Find(&rows).Error
	if err != nil {
		return nil, wrapErr(err, "could not list assignments of task %s", taskID)
	}
	as := make([]domain.TaskAssignment, 0, len(rows))
	for _, row := range rows {
		as = append(as, domain.TaskAssignment{
			TaskID:    row.TaskID,
			UserID:    row.UserID,
			IsPrimary: row.IsPrimary,
			CreatedAt: utc(row.CreatedAt),
		})
	}
	return as, nil
}

// ReplaceAssignments implements storage.TaskRepository.
func (r *Repository) ReplaceAssignments(ctx context.Context, taskID string, as []domain.TaskAssignment) error {
	db := r.conn(ctx)
	if err := db.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
		return wrapErr(err, "could not clear assignments of task %s", taskID)
	}
	if len(as) == 0 {
		return nil
	}
	rows := make([]models.TaskAssignment, 0, len(as))
	for _, a := range as {
		rows = append(rows, models.TaskAssignment{
			TaskID:    taskID,
			UserID:    a.UserID,
			IsPrimary: a.IsPrimary,
			CreatedAt: utc(a.CreatedAt),
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return wrapErr(err, "could not assign task %s", taskID)
	}
	return nil
}

func statusCodes(ss []domain.Status) []int {
	codes := make([]int, 0, len(ss))
	for _, s := range ss {
		codes = append(codes, int(s))
	}
	return codes
}
