package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents a student or an admin
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name        string `gorm:"not null;default:''"`
	Role        string `gorm:"not null;default:'student'"` // enum: 'student' or 'admin'
	Onboarded   bool   `gorm:"not null;default:false"`
	LastLoginAt *time.Time

	// Associations
	AuthIdentities []AuthIdentity `gorm:"constraint:OnDelete:CASCADE;"`
}

// IsAdmin reports whether the user may triage cases and publish journal entries
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
