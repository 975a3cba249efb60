package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog is an operator-facing record of case and journal events,
// written by the activity stream consumer
type ActivityLog struct {
	gorm.Model
	EventID    string `gorm:"uniqueIndex;not null"`
	Type       string `gorm:"not null;index"`
	CaseID     string `gorm:"index"`
	JournalID  string `gorm:"index"`
	ActorID    uint
	Detail     datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt time.Time      `gorm:"not null;index"`
}
