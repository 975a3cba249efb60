package models

import (
	"time"

	"gorm.io/gorm"
)

// AuthIdentity represents a user's OAuth identity with encrypted token storage
type AuthIdentity struct {
	gorm.Model
	UserID         uint            `gorm:"not null;index"`
	User           User            `gorm:"constraint:OnDelete:CASCADE;"`
	Provider       string          `gorm:"not null"`                                                                        // e.g., "google"
	ProviderUserID string          `gorm:"not null;uniqueIndex:idx_auth_identities_provider_user,where:deleted_at IS NULL"` // partial unique index
	AccessToken    EncryptedString `gorm:"type:text"`
	RefreshToken   EncryptedString `gorm:"type:text"`
	TokenExpiry    *time.Time
}
