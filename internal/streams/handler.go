package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersistActivity returns a handler that stores events as ActivityLog rows.
// Redelivered events are ignored by their unique event ID.
func PersistActivity(db *gorm.DB) func(context.Context, Event) error {
	return func(ctx context.Context, ev Event) error {
		var detail datatypes.JSON
		if len(ev.Detail) > 0 {
			b, err := json.Marshal(ev.Detail)
			if err != nil {
				return fmt.Errorf("failed to marshal event detail: %w", err)
			}
			detail = datatypes.JSON(b)
		}

		row := models.ActivityLog{
			EventID:    ev.ID,
			Type:       ev.Type,
			CaseID:     ev.CaseID,
			JournalID:  ev.JournalID,
			ActorID:    ev.ActorID,
			Detail:     detail,
			OccurredAt: ev.OccurredAt,
		}

		err := db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to persist activity: %w", err)
		}

		slog.Debug("Activity recorded", "event_id", ev.ID, "type", ev.Type)
		return nil
	}
}
