// Package cases implements the incident-report lifecycle: submission,
// triage, conversation history and the resolved-case source for the journal.
package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jimdaga/casebook/internal/models"
	"github.com/jimdaga/casebook/internal/streams"
	"gorm.io/datatypes"
)

// Case errors
var (
	ErrNotFound          = errors.New("case not found")
	ErrForbidden         = errors.New("not allowed to access this case")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid case input")
)

const (
	titleMaxRunes  = 60
	defaultTitle   = "Issue report"
	submittedNote  = "Case submitted."
	maxMessageSize = 4000
)

var statusRank = map[string]int{
	models.CaseStatusSubmitted:   0,
	models.CaseStatusUnderReview: 1,
	models.CaseStatusResolved:    2,
	models.CaseStatusClosed:      3,
}

// RedactionEnqueuer schedules asynchronous PII redaction of a case
type RedactionEnqueuer interface {
	EnqueueRedaction(ctx context.Context, caseID string) error
}

// EventPublisher records activity events
type EventPublisher interface {
	Publish(ctx context.Context, ev streams.Event) error
}

// Viewer is the signed-in user acting on cases
type Viewer struct {
	UserID uint
	Admin  bool
}

// ViewerOf builds a Viewer from a user record
func ViewerOf(u models.User) Viewer {
	return Viewer{UserID: u.ID, Admin: u.IsAdmin()}
}

// SubmitInput is a new report from a student
type SubmitInput struct {
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Description  string   `json:"description"`
	EvidenceURL  string   `json:"evidenceUrl"`
	EvidenceMIME string   `json:"evidenceMime"`
	EvidenceURLs []string `json:"evidenceUrls"`
}

// Service coordinates case persistence with redaction and activity events
type Service struct {
	repo      *Repository
	redactor  RedactionEnqueuer
	publisher EventPublisher
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates a case service
func NewService(log *slog.Logger, repo *Repository, redactor RedactionEnqueuer, publisher EventPublisher) *Service {
	if publisher == nil {
		publisher = streams.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		redactor:  redactor,
		publisher: publisher,
		log:       log.With("component", "cases"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Repository exposes the underlying repository
func (s *Service) Repository() *Repository { return s.repo }

// Submit files a new case for the viewer and schedules redaction
func (s *Service) Submit(ctx context.Context, viewer Viewer, in SubmitInput) (*models.Case, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidInput)
	}

	now := s.now()
	c := &models.Case{
		StudentID:    viewer.UserID,
		Title:        DeriveTitle(in.Title, ""),
		TitleDerived: strings.TrimSpace(in.Title) == "",
		Category:     NormalizeCategory(in.Category),
		Description:  models.EncryptedString(description),
		Status:       models.CaseStatusSubmitted,
		CreatedAt:    now,
	}

	if url := strings.TrimSpace(in.EvidenceURL); url != "" {
		c.EvidenceURL = url
		if in.EvidenceMIME != "" {
			c.EvidenceType = GuessEvidenceType(in.EvidenceMIME)
		}
	}
	if urls := nonEmpty(in.EvidenceURLs); len(urls) > 0 {
		b, err := json.Marshal(urls)
		if err != nil {
			return nil, fmt.Errorf("failed to encode evidence: %w", err)
		}
		c.EvidenceURLs = datatypes.JSON(b)
	}

	history, err := encodeHistory([]models.CaseMessage{newMessage(models.SenderStudent, submittedNote, now)})
	if err != nil {
		return nil, err
	}
	c.History = history

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	// A failed enqueue leaves the case stored and unredacted
	if s.redactor != nil {
		if err := s.redactor.EnqueueRedaction(ctx, c.ID); err != nil {
			s.log.Error("Failed to enqueue redaction", "case_id", c.ID, "error", err)
		}
	}

	ev := streams.NewEvent(streams.EventCaseSubmitted)
	ev.CaseID = c.ID
	ev.ActorID = viewer.UserID
	ev.Detail = map[string]any{"category": c.Category}
	s.publish(ctx, ev)

	s.log.Info("Case submitted", "case_id", c.ID, "category", c.Category)
	return c, nil
}

// ListForStudent returns the viewer's own cases
func (s *Service) ListForStudent(ctx context.Context, viewer Viewer) ([]models.Case, error) {
	return s.repo.ListByStudent(ctx, viewer.UserID)
}

// ListAll returns every case for admins
func (s *Service) ListAll(ctx context.Context, viewer Viewer, status string) ([]models.Case, error) {
	if !viewer.Admin {
		return nil, ErrForbidden
	}
	if status != "" {
		if _, ok := statusRank[status]; !ok {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
		}
	}
	return s.repo.ListAll(ctx, status)
}

// Get returns a case visible to the viewer
func (s *Service) Get(ctx context.Context, viewer Viewer, id string) (*models.Case, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(viewer, c) {
		return nil, ErrNotFound
	}
	return c, nil
}

// visible hides a case from other students without leaking its existence
func visible(viewer Viewer, c *models.Case) bool {
	return viewer.Admin || c.StudentID == viewer.UserID
}

// AddMessage appends a message to the case conversation
func (s *Service) AddMessage(ctx context.Context, viewer Viewer, id, text string) (*models.Case, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > maxMessageSize {
		return nil, fmt.Errorf("%w: message must be 1-%d characters", ErrInvalidInput, maxMessageSize)
	}

	return s.repo.Mutate(ctx, id, func(c *models.Case) (map[string]interface{}, error) {
		if !visible(viewer, c) {
			return nil, ErrNotFound
		}
		if c.Status == models.CaseStatusClosed {
			return nil, fmt.Errorf("%w: case is closed", ErrInvalidTransition)
		}

		sender := models.SenderStudent
		if viewer.Admin && c.StudentID != viewer.UserID {
			sender = models.SenderAdmin
		}

		history, err := appendHistory(c.History, newMessage(sender, text, s.now()))
		if err != nil {
			return nil, err
		}
		c.History = history
		return map[string]interface{}{"history": history}, nil
	})
}

// UpdateStatus moves a case forward in its lifecycle. The note, when given,
// is appended to the history and becomes the resolution note on the first
// move to Resolved.
func (s *Service) UpdateStatus(ctx context.Context, viewer Viewer, id, status, note string) (*models.Case, error) {
	if !viewer.Admin {
		return nil, ErrForbidden
	}

	var from string
	c, err := s.repo.Mutate(ctx, id, func(c *models.Case) (map[string]interface{}, error) {
		if err := CheckTransition(c.Status, status); err != nil {
			return nil, err
		}

		note = strings.TrimSpace(note)
		text := note
		if text == "" {
			text = fmt.Sprintf("Status changed to %s.", status)
		}
		history, err := appendHistory(c.History, newMessage(models.SenderAdmin, text, s.now()))
		if err != nil {
			return nil, err
		}

		updates := map[string]interface{}{"status": status, "history": history}
		if status == models.CaseStatusResolved && c.ResolutionNote == "" {
			updates["resolution_note"] = note
			c.ResolutionNote = note
		}
		from = c.Status
		c.Status = status
		c.History = history
		return updates, nil
	})
	if err != nil {
		return nil, err
	}

	ev := streams.NewEvent(streams.EventCaseStatusChanged)
	ev.CaseID = c.ID
	ev.ActorID = viewer.UserID
	ev.Detail = map[string]any{"from": from, "to": status}
	s.publish(ctx, ev)

	s.log.Info("Case status changed", "case_id", c.ID, "from", from, "to", status)
	return c, nil
}

// Description returns the raw description of a case for the redaction worker
func (s *Service) Description(ctx context.Context, id string) (string, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.Description.String(), nil
}

// ApplyRedaction stores the PII-free rendition of a case description. A
// title the student left blank is derived from it.
func (s *Service) ApplyRedaction(ctx context.Context, id, redacted string) error {
	_, err := s.repo.Mutate(ctx, id, func(c *models.Case) (map[string]interface{}, error) {
		updates := map[string]interface{}{
			"redacted_description": redacted,
			"redacted":             true,
		}
		if c.TitleDerived {
			updates["title"] = DeriveTitle("", redacted)
		}
		return updates, nil
	})
	return err
}

// CheckTransition allows only forward moves through the lifecycle
func CheckTransition(from, to string) error {
	fromRank, ok := statusRank[from]
	if !ok {
		return fmt.Errorf("%w: unknown current status %q", ErrInvalidTransition, from)
	}
	toRank, ok := statusRank[to]
	if !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}
	if toRank <= fromRank {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// DeriveTitle returns the explicit title, or a capped rendition of the
// description when the title is blank
func DeriveTitle(title, description string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	d := strings.TrimSpace(description)
	if d == "" {
		return defaultTitle
	}
	if utf8.RuneCountInString(d) <= titleMaxRunes {
		return d
	}
	r := []rune(d)
	return string(r[:titleMaxRunes]) + "…"
}

// NormalizeCategory maps free text onto the allowed categories
func NormalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	for _, allowed := range models.Categories {
		if strings.EqualFold(c, allowed) {
			return allowed
		}
	}
	return models.CategoryOther
}

// History decodes a case's conversation history
func History(c *models.Case) []models.CaseMessage {
	var out []models.CaseMessage
	if len(c.History) > 0 {
		_ = json.Unmarshal(c.History, &out)
	}
	return out
}

func (s *Service) publish(ctx context.Context, ev streams.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("Failed to publish activity event", "type", ev.Type, "error", err)
	}
}

func newMessage(sender, text string, at time.Time) models.CaseMessage {
	return models.CaseMessage{ID: uuid.NewString(), Sender: sender, Text: text, Timestamp: at}
}

func appendHistory(raw datatypes.JSON, msg models.CaseMessage) (datatypes.JSON, error) {
	var history []models.CaseMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &history); err != nil {
			return nil, fmt.Errorf("failed to decode case history: %w", err)
		}
	}
	return encodeHistory(append(history, msg))
}

func encodeHistory(history []models.CaseMessage) (datatypes.JSON, error) {
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode case history: %w", err)
	}
	return datatypes.JSON(b), nil
}
