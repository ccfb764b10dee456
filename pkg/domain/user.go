package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role within a tenant.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
	RoleFinance    Role = "finance"
	RoleSuperadmin Role = "superadmin"
)

// ValidRole reports whether r is an assignable role.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin, RoleFinance, RoleSuperadmin:
		return true
	}
	return false
}

// RoleSet is a named set of roles consumed by the authorization guard.
// Handlers declare role sets; nothing else compares role strings.
type RoleSet []Role

// The role sets used across handlers.
var (
	InstructorOrAbove = RoleSet{RoleInstructor, RoleAdmin, RoleSuperadmin}
	AdminOrAbove      = RoleSet{RoleAdmin, RoleSuperadmin}
	FinanceOrAbove    = RoleSet{RoleFinance, RoleAdmin, RoleSuperadmin}
)

// Contains reports whether the set includes r.
func (s RoleSet) Contains(r Role) bool {
	for _, member := range s {
		if member == r {
			return true
		}
	}
	return false
}

// UserStatus represents the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

// User represents an identity owned by exactly one tenant.
// (tenant_id, email) is unique.
type User struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         Role
	Status       UserStatus
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsActive returns true if the user may authenticate and act.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive && u.DeletedAt == nil
}
