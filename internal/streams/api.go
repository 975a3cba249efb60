package streams

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/gorm"
)

const defaultActivityLimit = 50

// ListActivity returns the newest activity rows, optionally filtered by type
func ListActivity(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultActivityLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 500 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500", "code": "invalid_request"})
				return
			}
			limit = n
		}

		q := db.WithContext(c.Request.Context()).Order("occurred_at DESC").Limit(limit)
		if t := c.Query("type"); t != "" {
			q = q.Where("type = ?", t)
		}

		var rows []models.ActivityLog
		if err := q.Find(&rows).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity", "code": "internal"})
			return
		}

		out := make([]gin.H, 0, len(rows))
		for _, r := range rows {
			out = append(out, gin.H{
				"id":         r.EventID,
				"type":       r.Type,
				"caseId":     r.CaseID,
				"journalId":  r.JournalID,
				"actorId":    r.ActorID,
				"detail":     r.Detail,
				"occurredAt": r.OccurredAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"activity": out})
	}
}
