package domain

import "time"

// User is a member of the organisation who can create or work on tasks.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	IsActive     bool
	PasswordHash string
	CreatedAt    time.Time
}

// Actor returns the user as a command issuer.
func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}
