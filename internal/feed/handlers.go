package feed

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/journal"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// Enqueuer schedules a background generation run and returns the task ID
type Enqueuer interface {
	EnqueueJournal(ctx context.Context) (string, error)
}

// Handlers serves the journal feed and admin generation endpoints
type Handlers struct {
	svc      *Service
	enqueuer Enqueuer
}

// NewHandlers creates feed handlers. A nil enqueuer disables the enqueue route.
func NewHandlers(svc *Service, enqueuer Enqueuer) *Handlers {
	return &Handlers{svc: svc, enqueuer: enqueuer}
}

// Register mounts the feed on rg and the generation routes on admin
func (h *Handlers) Register(rg, admin *gin.RouterGroup) {
	rg.GET("/journal", h.List)
	admin.POST("/journal/generate", h.Generate)
	admin.POST("/journal/enqueue", h.Enqueue)
}

// List handles GET /api/journal
func (h *Handlers) List(c *gin.Context) {
	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxFeedLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100", "code": "invalid_request"})
			return
		}
		limit = n
	}

	entries, err := h.svc.Store().List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load journal", "code": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// Generate handles POST /api/admin/journal/generate
func (h *Handlers) Generate(c *gin.Context) {
	res, err := h.svc.Generate(c.Request.Context(), "manual")
	if err != nil {
		kind := journal.KindOf(err)
		msg := err.Error()
		if !kind.Expected() {
			msg = "journal generation failed"
		}
		c.JSON(StatusFor(kind), gin.H{"error": msg, "code": kind.Code()})
		return
	}

	body := gin.H{
		"entry":      res.Entry,
		"toppedUp":   res.Selection.ToppedUp,
		"sameAsLast": res.Selection.SameAsLast,
	}
	if res.Similarity != nil {
		body["similarity"] = *res.Similarity
	}
	c.JSON(http.StatusCreated, body)
}

// Enqueue handles POST /api/admin/journal/enqueue
func (h *Handlers) Enqueue(c *gin.Context) {
	if h.enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "background worker not configured", "code": "unavailable"})
		return
	}
	id, err := h.enqueuer.EnqueueJournal(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to enqueue journal generation", "code": "unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"taskId": id})
}

// StatusFor maps a generation outcome to an HTTP status
func StatusFor(kind journal.Kind) int {
	switch kind {
	case journal.KindOK:
		return http.StatusCreated
	case journal.KindNoEligibleCases, journal.KindNoNewCandidates, journal.KindDuplicateContent, journal.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
