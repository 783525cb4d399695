package testutil

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"task-workflow-api/internal/database"
)

// Password is the plain password of every seeded user.
const Password = "password"

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	return database.Open(database.Config{Path: ":memory:", LogLevel: "silent"})
}

// SeedUsers loads database.DemoUsers plus an inactive employee managed by
// mgr-1 ("emp-off"). Hashing uses the minimum bcrypt cost to keep tests fast.
func SeedUsers(db *gorm.DB) error {
	users := append(database.DemoUsers(), database.SeedUser{
		ID: "emp-off", Email: "gone@example.com", Name: "Gone Employee",
		Password: Password, Role: "Employee", Inactive: true, ManagedBy: "mgr-1",
	})
	return database.Seed(db, users, bcrypt.MinCost)
}
