package sqlite

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm/clause"

	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/models"
)

func toUserRow(u domain.User) models.User {
	return models.User{
		ID:        u.ID,
		Email:     strings.ToLower(strings.TrimSpace(u.Email)),
		Name:      u.Name,
		Password:  u.PasswordHash,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: utc(u.CreatedAt),
	}
}

func fromUserRow(m models.User) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		Role:         domain.Role(m.Role),
		IsActive:     m.IsActive,
		PasswordHash: m.Password,
		CreatedAt:    utc(m.CreatedAt),
	}
}

// CreateUser implements storage.UserRepository.
func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	if u.ID == "" || u.Email == "" {
		return fmt.Errorf("user id and email are required: %w", domain.ErrValidation)
	}
	if !u.Role.IsValid() {
		return fmt.Errorf("unknown role %q: %w", u.Role, domain.ErrValidation)
	}
	row := toUserRow(u)
	if err := r.conn(ctx).Create(&row).Error; err != nil {
		return wrapErr(err, "could not create user %s", u.Email)
	}
	r.users.Delete(u.ID)
	return nil
}

// GetUser implements storage.UserRepository. Lookups go through the user cache.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := r.users.GetOrLoad(id, func() (domain.User, error) {
		var row models.User
		if err := r.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
			return domain.User{}, wrapErr(err, "user %s", id)
		}
		return fromUserRow(row), nil
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail implements storage.UserRepository. Emails are matched case-insensitively.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row models.User
	err := r.conn(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&row).Error
	if err != nil {
		return nil, wrapErr(err, "user %s", email)
	}
	u := fromUserRow(row)
	return &u, nil
}

// ListUsers implements storage.UserRepository.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []models.User
	if err := r.conn(ctx).Order("name asc, email asc").Find(&rows).Error; err != nil {
		return nil, wrapErr(err, "could not list users")
	}
	return usersFromRows(rows), nil
}

// AddManagedEmployee implements storage.UserRepository. Adding an existing
// link is a no-op.
func (r *Repository) AddManagedEmployee(ctx context.Context, managerID, employeeID string) error {
	row := models.ManagerEmployee{ManagerID: managerID, EmployeeID: employeeID}
	err := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return wrapErr(err, "could not link manager %s to employee %s", managerID, employeeID)
	}
	return nil
}

// ListManagedEmployees implements storage.UserRepository.
func (r *Repository) ListManagedEmployees(ctx context.Context, managerID string) ([]domain.User, error) {
	var rows []models.User
	err := r.conn(ctx).
		Joins("JOIN manager_employees me ON me.employee_id = users.id").
		Where("me.manager_id = ?", managerID).
		Order("users.name asc, users.email asc").
		Find(&rows).Error
	if err != nil {
		return nil, wrapErr(err, "could not list employees of %s", managerID)
	}
	return usersFromRows(rows), nil
}

// IsManagerOf implements storage.UserRepository.
func (r *Repository) IsManagerOf(ctx context.Context, managerID, employeeID string) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&models.ManagerEmployee{}).
		Where("manager_id = ? AND employee_id = ?", managerID, employeeID).
		Count(&count).Error
	if err != nil {
		return false, wrapErr(err, "could not check manager of %s", employeeID)
	}
	return count > 0, nil
}

func usersFromRows(rows []models.User) []domain.User {
	us := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		us = append(us, fromUserRow(row))
	}
	return us
}
