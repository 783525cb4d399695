package models

import "time"

// User represents a user in the system
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name"`
	Password  string    `json:"-" gorm:"not null"`
	Role      string    `json:"role" gorm:"not null;index"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}

// ManagerEmployee links a manager to an employee they manage
type ManagerEmployee struct {
	ManagerID  string    `json:"managerId" gorm:"primaryKey;column:manager_id"`
	EmployeeID string    `json:"employeeId" gorm:"primaryKey;column:employee_id;index"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName specifies the table name for ManagerEmployee Model
func (ManagerEmployee) TableName() string {
	return "manager_employees"
}
