package streams

import (
	"time"

	"github.com/google/uuid"
)

// Stream name constants
const (
	StreamActivity = "activity:events"
)

// Consumer group constants
const (
	GroupActivityLoggers = "activity-loggers"
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Event types
const (
	EventJournalPublished  = "journal.published"
	EventCaseSubmitted     = "case.submitted"
	EventCaseStatusChanged = "case.status_changed"
)

// Event is one operator-facing activity record. Detail must never carry raw
// descriptions or evidence links.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	CaseID     string         `json:"case_id,omitempty"`
	JournalID  string         `json:"journal_id,omitempty"`
	ActorID    uint           `json:"actor_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent stamps a new event with an ID and the current time
func NewEvent(eventType string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}
