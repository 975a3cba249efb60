package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdvisorChat is a persisted conversation between a user and the AI advisor
type AdvisorChat struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	OwnerID   uint           `gorm:"not null;index"`
	Owner     User           `gorm:"constraint:OnDelete:CASCADE;"`
	History   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a UUID when the caller did not
func (c *AdvisorChat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// ChatTurn is one message in an advisor chat. Role is "user" or "model".
type ChatTurn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}

// Chat roles
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)
