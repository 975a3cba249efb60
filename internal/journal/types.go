// Package journal selects resolved cases for the next anonymized journal
// entry and guards the feed against near-duplicate output.
package journal

import "time"

// StatusResolved is the only case status eligible for journal summaries.
const StatusResolved = "Resolved"

// CaseRecord is a resolved case as seen by the journal generator.
// RedactedDescription has already been stripped of personal data upstream.
type CaseRecord struct {
	ID                  string
	Category            string
	RedactedDescription string
	Status              string
	CreatedAt           time.Time
	Evidence            Evidence
}

// CaseStub is the only shape that crosses the summarizer boundary.
type CaseStub struct {
	ID                  string `json:"id"`
	Category            string `json:"category"`
	RedactedDescription string `json:"redactedDescription"`
}

// RecentEntry is the slice of a published entry needed for repetition checks.
type RecentEntry struct {
	ID             string
	Content        string
	RelatedCaseIDs []string
}

// EvidenceSummary describes the evidence of one summarized case without links.
type EvidenceSummary struct {
	CaseID        string   `json:"caseId"`
	EvidenceCount int      `json:"evidenceCount"`
	EvidenceTypes []string `json:"evidenceTypes"`
}

// NewEntry is handed to the entry store for persistence. The store assigns
// the ID and PublishedAt.
type NewEntry struct {
	Title           string
	Content         string
	RelatedCaseIDs  []string
	EvidenceSummary []EvidenceSummary
}

// Entry is a persisted journal entry.
type Entry struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Content         string            `json:"content"`
	RelatedCaseIDs  []string          `json:"relatedCaseIds"`
	EvidenceSummary []EvidenceSummary `json:"evidenceSummary"`
	PublishedAt     time.Time         `json:"publishedAt"`
}

// Stub strips a case record down to its anonymized fields.
func (c CaseRecord) Stub() CaseStub {
	return CaseStub{
		ID:                  c.ID,
		Category:            c.Category,
		RedactedDescription: c.RedactedDescription,
	}
}
