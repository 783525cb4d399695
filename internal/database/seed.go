package database

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task-workflow-api/internal/auth"
	"task-workflow-api/internal/models"
)

// SeedUser describes a user to insert by Seed. ManagedBy links the user to
// the manager with that ID.
type SeedUser struct {
	ID        string
	Email     string
	Name      string
	Password  string
	Role      string
	Inactive  bool
	ManagedBy string
}

// DemoUsers is the fixture set loaded by `seed`: one admin, one manager with
// two employees and an employee nobody manages.
func DemoUsers() []SeedUser {
	return []SeedUser{
		{ID: "adm-1", Email: "admin@example.com", Name: "Ada Admin", Password: "password", Role: "Admin"},
		{ID: "mgr-1", Email: "manager@example.com", Name: "Max Manager", Password: "password", Role: "Manager"},
		{ID: "emp-1", Email: "emma@example.com", Name: "Emma Employee", Password: "password", Role: "Employee", ManagedBy: "mgr-1"},
		{ID: "emp-2", Email: "eli@example.com", Name: "Eli Employee", Password: "password", Role: "Employee", ManagedBy: "mgr-1"},
		{ID: "emp-9", Email: "olive@example.com", Name: "Olive Outsider", Password: "password", Role: "Employee"},
	}
}

// Seed inserts users and manager links. Existing rows are left untouched so
// seeding twice is harmless. cost is the bcrypt cost; 0 means the default.
func Seed(db *gorm.DB, users []SeedUser, cost int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, u := range users {
			hash, err := auth.HashPassword(u.Password, cost)
			if err != nil {
				return err
			}
			row := models.User{
				ID:        u.ID,
				Email:     strings.ToLower(u.Email),
				Name:      u.Name,
				Password:  hash,
				Role:      u.Role,
				IsActive:  !u.Inactive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("could not seed user %s: %w", u.Email, err)
			}
		}
		for _, u := range users {
			if u.ManagedBy == "" {
				continue
			}
			link := models.ManagerEmployee{ManagerID: u.ManagedBy, EmployeeID: u.ID, CreatedAt: now}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return fmt.Errorf("could not link %s to %s: %w", u.ID, u.ManagedBy, err)
			}
		}
		return nil
	})
}
