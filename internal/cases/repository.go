package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// redactedPlaceholder stands in for a resolved case whose redaction has not
// landed yet. The raw description never leaves this package.
const redactedPlaceholder = "[REDACTED]"

// Repository persists cases with GORM
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a case repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new case
func (r *Repository) Create(ctx context.Context, c *models.Case) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

// Get loads one case by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load case: %w", err)
	}
	return &c, nil
}

// ListByStudent returns a student's cases, newest first
func (r *Repository) ListByStudent(ctx context.Context, studentID uint) ([]models.Case, error) {
	var out []models.Case
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return out, nil
}

// ListAll returns every case, newest first, optionally filtered by status
func (r *Repository) ListAll(ctx context.Context, status string) ([]models.Case, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []models.Case
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	return out, nil
}

// Mutate loads a case under a row lock, asks fn for the columns to change and
// writes them in the same transaction. fn sees the locked row and may update
// it in place to match; returning an error rolls back.
func (r *Repository) Mutate(ctx context.Context, id string, fn func(c *models.Case) (map[string]interface{}, error)) (*models.Case, error) {
	var c models.Case
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load case: %w", err)
		}

		updates, err := fn(&c)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Case{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update case: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ResolvedForJournal returns up to limit resolved cases, newest first, in the
// journal's anonymized shape. Evidence columns are resolved here, once.
func (r *Repository) ResolvedForJournal(ctx context.Context, limit int) ([]journal.CaseRecord, error) {
	var rows []models.Case
	err := r.db.WithContext(ctx).
		Omit("description").
		Where("status = ?", models.CaseStatusResolved).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load resolved cases: %w", err)
	}

	out := make([]journal.CaseRecord, 0, len(rows))
	for _, row := range rows {
		redacted := row.RedactedDescription
		if redacted == "" {
			redacted = redactedPlaceholder
		}
		out = append(out, journal.CaseRecord{
			ID:                  row.ID,
			Category:            row.Category,
			RedactedDescription: redacted,
			Status:              row.Status,
			CreatedAt:           row.CreatedAt,
			Evidence:            evidenceOf(row),
		})
	}
	return out, nil
}
