package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Case status constants, in lifecycle order
const (
	CaseStatusSubmitted   = "Submitted"
	CaseStatusUnderReview = "Under Review"
	CaseStatusResolved    = "Resolved"
	CaseStatusClosed      = "Closed"
)

// Case categories
const (
	CategoryAcademics  = "Academics"
	CategoryBullying   = "Bullying"
	CategoryFacilities = "Facilities"
	CategoryPolicy     = "Policy"
	CategoryOther      = "Other"
)

// Categories lists the allowed case categories
var Categories = []string{
	CategoryAcademics,
	CategoryBullying,
	CategoryFacilities,
	CategoryPolicy,
	CategoryOther,
}

// Case is an incident report filed by a student. Description holds the
// student's own words and is encrypted at rest; only RedactedDescription
// may ever be shown outside the case.
type Case struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	StudentID uint   `gorm:"not null;index"`
	Student   User   `gorm:"constraint:OnDelete:CASCADE;"`
	Title     string `gorm:"not null"`
	// TitleDerived marks a title the student left blank. It is filled from
	// the redacted description once redaction lands.
	TitleDerived        bool            `gorm:"not null;default:false"`
	Category            string          `gorm:"not null;default:'Other';index"`
	Description         EncryptedString `gorm:"type:text;not null"`
	RedactedDescription string          `gorm:"type:text;not null;default:''"`
	Redacted            bool            `gorm:"not null;default:false"`
	Status              string          `gorm:"not null;default:'Submitted';index"`
	ResolutionNote      string          `gorm:"type:text;not null;default:''"`

	// Evidence is stored in whichever shape the uploader produced.
	EvidenceURL       string         `gorm:"column:evidence_url;type:text"`
	EvidenceType      string         `gorm:"column:evidence_type"`
	EvidenceURLs      datatypes.JSON `gorm:"column:evidence_urls;type:jsonb"`
	EvidenceAggregate datatypes.JSON `gorm:"column:evidence_aggregate;type:jsonb"`

	History   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"index"`
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// BeforeCreate assigns a UUID when the caller did not
func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CaseMessage is one entry of a case's conversation history
type CaseMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"` // "Student" or "Admin"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Message senders
const (
	SenderStudent = "Student"
	SenderAdmin   = "Admin"
)
