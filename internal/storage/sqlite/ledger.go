package sqlite

import (
	"context"

	"gorm.io/gorm"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/models"
	"task-workflow-api/internal/storage"
)

func toProgressRow(e domain.ProgressEntry) models.TaskProgressHistory {
	return models.TaskProgressHistory{
		ID:           e.ID,
		TaskID:       e.TaskID,
		UpdatedByID:  e.UpdatedByID,
		Percentage:   e.Percentage,
		Notes:        e.Notes,
		Status:       int(e.Status),
		AcceptedByID: e.AcceptedByID,
		AcceptedAt:   utcPtr(e.AcceptedAt),
		CreatedAt:    utc(e.CreatedAt),
	}
}

func fromProgressRow(m models.TaskProgressHistory) domain.ProgressEntry {
	return domain.ProgressEntry{
		ID:           m.ID,
		TaskID:       m.TaskID,
		UpdatedByID:  m.UpdatedByID,
		Percentage:   m.Percentage,
		Notes:        m.Notes,
		Status:       domain.ResolutionStatus(m.Status),
		AcceptedByID: m.AcceptedByID,
		AcceptedAt:   utcPtr(m.AcceptedAt),
		CreatedAt:    utc(m.CreatedAt),
	}
}

// CreateProgressEntry implements storage.TaskRepository.
func (r *Repository) CreateProgressEntry(ctx context.Context, e domain.ProgressEntry) error {
	row := toProgressRow(e)
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return wrapErr(err, "could not create progress entry")
	}
	return nil
}

// UpdateProgressEntry implements storage.TaskRepository. Only the resolution
// fields are written.
func (r *Repository) UpdateProgressEntry(ctx context.Context, e domain.ProgressEntry) error {
	row := toProgressRow(e)
	res := r.conn(ctx).Model(&models.TaskProgressHistory{}).
		Where("id = ? AND task_id = ?", e.ID, e.TaskID).
		Updates(map[string]any{
			"status":         row.Status,
			"accepted_by_id": row.AcceptedByID,
			"accepted_at":    row.AcceptedAt,
		})
	if res.Error != nil {
		return wrapErr(res.Error, "could not update progress entry %s", e.ID)
	}
	if res.RowsAffected == 0 {
		return wrapErr(gorm.ErrRecordNotFound, "progress entry %s", e.ID)
	}
	return nil
}

// GetProgressEntry implements storage.TaskRepository.
func (r *Repository) GetProgressEntry(ctx context.Context, taskID, id string) (*domain.ProgressEntry, error) {
	var row models.TaskProgressHistory
	if err := r.conn(ctx).Where("id = ? AND task_id = ?", id, taskID).First(&row).Error; err != nil {
		return nil, wrapErr(err, "progress entry %s", id)
	}
	e := fromProgressRow(row)
	return &e, nil
}

// ListProgressEntries implements storage.TaskRepository, oldest first.
func (r *Repository) ListProgressEntries(ctx context.Context, taskID string) ([]domain.ProgressEntry, error) {
	var rows []models.TaskProgressHistory
	if err := r.conn(ctx).Where("task_id = ?", taskID).Order("created_at asc, rowid asc").Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "could not list progress of task %s", taskID)
	}
	es := make([]domain.ProgressEntry, 0, len(rows))
	for _, row := range rows {
		es = append(es, fromProgressRow(row))
	}
	return es, nil
}

func toExtensionRow(e domain.ExtensionRequest) models.DeadlineExtensionRequest {
	return models.DeadlineExtensionRequest{
		ID:               e.ID,
		TaskID:           e.TaskID,
		RequestedByID:    e.RequestedByID,
		RequestedDueDate: utc(e.RequestedDueDate),
		Reason:           e.Reason,
		Status:           int(e.Status),
		ReviewedByID:     e.ReviewedByID,
		ReviewedAt:       utcPtr(e.ReviewedAt),
		ReviewNotes:      e.ReviewNotes,
		CreatedAt:        utc(e.CreatedAt),
	}
}

func fromExtensionRow(m models.DeadlineExtensionRequest) domain.ExtensionRequest {
	return domain.ExtensionRequest{
		ID:               m.ID,
		TaskID:           m.TaskID,
		RequestedByID:    m.RequestedByID,
		RequestedDueDate: utc(m.RequestedDueDate),
		Reason:           m.Reason,
		Status:           domain.ResolutionStatus(m.Status),
		ReviewedByID:     m.ReviewedByID,
		ReviewedAt:       utcPtr(m.ReviewedAt),
		ReviewNotes:      m.ReviewNotes,
		CreatedAt:        utc(m.CreatedAt),
	}
}

// CreateExtensionRequest implements storage.TaskRepository.
func (r *Repository) CreateExtensionRequest(ctx context.Context, e domain.ExtensionRequest) error {
	row := toExtensionRow(e)
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return wrapErr(err, "could not create extension request")
	}
	return nil
}

// UpdateExtensionRequest implements storage.TaskRepository. Only the review
// fields are written.
func (r *Repository) UpdateExtensionRequest(ctx context.Context, e domain.ExtensionRequest) error {
	row := toExtensionRow(e)
	res := r.conn(ctx).Model(&models.DeadlineExtensionRequest{}).
		Where("id = ? AND task_id = ?", e.ID, e.TaskID).
		Updates(map[string]any{
			"status":         row.Status,
			"reviewed_by_id": row.ReviewedByID,
			"reviewed_at":    row.ReviewedAt,
			"review_notes":   row.ReviewNotes,
		})
	if res.Error != nil {
		return wrapErr(res.Error, "could not update extension request %s", e.ID)
	}
	if res.RowsAffected == 0 {
		return wrapErr(gorm.ErrRecordNotFound, "extension request %s", e.ID)
	}
	return nil
}

// GetExtensionRequest implements storage.TaskRepository.
func (r *Repository) GetExtensionRequest(ctx context.Context, taskID, id string) (*domain.ExtensionRequest, error) {
	var row models.DeadlineExtensionRequest
	if err := r.conn(ctx).Where("id = ? AND task_id = ?", id, taskID).First(&row).Error; err != nil {
		return nil, wrapErr(err, "extension request %s", id)
	}
	e := fromExtensionRow(row)
	return &e, nil
}

// ListExtensionRequests implements storage.TaskRepository, oldest first.
func (r *Repository) ListExtensionRequests(ctx context.Context, f storage.ExtensionFilter) ([]domain.ExtensionRequest, error) {
	q := r.conn(ctx).Model(&models.DeadlineExtensionRequest{})
	if f.TaskID != "" {
		q = q.Where("task_id = ?", f.TaskID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", int(*f.Status))
	}
	var rows []models.DeadlineExtensionRequest
	if err := q.Order("created_at asc, rowid asc").Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "could not list extension requests")
	}
	es := make([]domain.ExtensionRequest, 0, len(rows))
	for _, row := range rows {
		es = append(es, fromExtensionRow(row))
	}
	return es, nil
}

// AppendHistory implements storage.TaskRepository.
func (r *Repository) AppendHistory(ctx context.Context, h domain.HistoryEntry) error {
	row := models.TaskHistory{
		ID:          h.ID,
		TaskID:      h.TaskID,
		FromStatus:  int(h.FromStatus),
		ToStatus:    int(h.ToStatus),
		Action:      h.Action,
		PerformedBy: h.PerformedBy,
		Notes:       h.Notes,
		CreatedAt:   utc(h.CreatedAt),
	}
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return wrapErr(err, "could not append history of task %s", h.TaskID)
	}
	return nil
}

// ListHistory implements storage.TaskRepository, oldest first.
func (r *Repository) ListHistory(ctx context.Context, taskID string) ([]domain.HistoryEntry, error) {
	var rows []models.TaskHistory
	if err := r.conn(ctx).Where("task_id = ?", taskID).Order("created_at asc, rowid asc").Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "could not list history of task %s", taskID)
	}
	hs := make([]domain.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		hs = append(hs, domain.HistoryEntry{
			ID:          row.ID,
			TaskID:      row.TaskID,
			FromStatus:  domain.Status(row.FromStatus),
			ToStatus:    domain.Status(row.ToStatus),
			Action:      row.Action,
			PerformedBy: row.PerformedBy,
			Notes:       row.Notes,
			CreatedAt:   utc(row.CreatedAt),
		})
	}
	return hs, nil
}
