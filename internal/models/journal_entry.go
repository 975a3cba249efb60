package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JournalEntry is a published anonymized news entry. Rows are written once
// and never updated.
type JournalEntry struct {
	ID              string         `gorm:"type:uuid;primaryKey"`
	Title           string         `gorm:"not null"`
	Content         string         `gorm:"type:text;not null"`
	RelatedCaseIDs  datatypes.JSON `gorm:"column:related_case_ids;type:jsonb;not null"`
	EvidenceSummary datatypes.JSON `gorm:"column:evidence_summary;type:jsonb;not null"`
	PublishedAt     time.Time      `gorm:"not null;index"`
}

// BeforeCreate assigns the ID and publication time
func (j *JournalEntry) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.PublishedAt.IsZero() {
		j.PublishedAt = time.Now().UTC()
	}
	return nil
}
