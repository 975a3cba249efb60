// Package feed persists published journal entries and serves the
// anonymised news feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the GORM-backed journal entry store
type Store struct {
	db *gorm.DB
}

// NewStore creates a journal entry store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Recent returns the newest limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]journal.RecentEntry, error) {
	rows, err := s.newest(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]journal.RecentEntry, 0, len(rows))
	for _, row := range rows {
		ids, err := decodeIDs(row.RelatedCaseIDs)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		out = append(out, journal.RecentEntry{ID: row.ID, Content: row.Content, RelatedCaseIDs: ids})
	}
	return out, nil
}

// Create persists a new entry. The store assigns the ID and publication time.
func (s *Store) Create(ctx context.Context, e journal.NewEntry) (*journal.Entry, error) {
	ids := e.RelatedCaseIDs
	if ids == nil {
		ids = []string{}
	}
	summary := e.EvidenceSummary
	if summary == nil {
		summary = []journal.EvidenceSummary{}
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode related case ids: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evidence summary: %w", err)
	}

	row := models.JournalEntry{
		Title:           e.Title,
		Content:         e.Content,
		RelatedCaseIDs:  datatypes.JSON(idsJSON),
		EvidenceSummary: datatypes.JSON(summaryJSON),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}

	return &journal.Entry{
		ID:              row.ID,
		Title:           row.Title,
		Content:         row.Content,
		RelatedCaseIDs:  ids,
		EvidenceSummary: summary,
		PublishedAt:     row.PublishedAt,
	}, nil
}

// List returns the newest limit entries for the public feed
func (s *Store) List(ctx context.Context, limit int) ([]journal.Entry, error) {
	rows, err := s.newest(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]journal.Entry, 0, len(rows))
	for _, row := range rows {
		ids, err := decodeIDs(row.RelatedCaseIDs)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", row.ID, err)
		}
		summary := []journal.EvidenceSummary{}
		if len(row.EvidenceSummary) > 0 {
			if err := json.Unmarshal(row.EvidenceSummary, &summary); err != nil {
				return nil, fmt.Errorf("entry %s: failed to decode evidence summary: %w", row.ID, err)
			}
		}
		out = append(out, journal.Entry{
			ID:              row.ID,
			Title:           row.Title,
			Content:         row.Content,
			RelatedCaseIDs:  ids,
			EvidenceSummary: summary,
			PublishedAt:     row.PublishedAt,
		})
	}
	return out, nil
}

func (s *Store) newest(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	var rows []models.JournalEntry
	err := s.db.WithContext(ctx).
		Order("published_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	return rows, nil
}

func decodeIDs(raw datatypes.JSON) ([]string, error) {
	ids := []string{}
	if len(raw) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode related case ids: %w", err)
	}
	return ids, nil
}
