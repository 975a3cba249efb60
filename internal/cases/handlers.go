package cases

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/auth"
	"github.com/jimdaga/casebook/internal/models"
)

// caseView is the API shape of a case. Students see their own raw
// description; admins see only the redacted rendition.
type caseView struct {
	ID                  string               `json:"id"`
	StudentID           uint                 `json:"studentId"`
	Title               string               `json:"title"`
	Category            string               `json:"category"`
	Description         string               `json:"description,omitempty"`
	RedactedDescription string               `json:"redactedDescription"`
	Redacted            bool                 `json:"redacted"`
	Status              string               `json:"status"`
	ResolutionNote      string               `json:"resolutionNote"`
	EvidenceURL         string               `json:"evidenceUrl,omitempty"`
	EvidenceType        string               `json:"evidenceType,omitempty"`
	History             []models.CaseMessage `json:"history"`
	CreatedAt           time.Time            `json:"createdAt"`
}

func toView(c *models.Case, viewer Viewer) caseView {
	v := caseView{
		ID:                  c.ID,
		StudentID:           c.StudentID,
		Title:               c.Title,
		Category:            c.Category,
		RedactedDescription: c.RedactedDescription,
		Redacted:            c.Redacted,
		Status:              c.Status,
		ResolutionNote:      c.ResolutionNote,
		EvidenceURL:         c.EvidenceURL,
		EvidenceType:        c.EvidenceType,
		History:             History(c),
		CreatedAt:           c.CreatedAt,
	}
	if c.StudentID == viewer.UserID {
		v.Description = c.Description.String()
	}
	if v.History == nil {
		v.History = []models.CaseMessage{}
	}
	return v
}

func toViews(list []models.Case, viewer Viewer) []caseView {
	out := make([]caseView, 0, len(list))
	for i := range list {
		out = append(out, toView(&list[i], viewer))
	}
	return out
}

// Handlers exposes the case service over HTTP
type Handlers struct {
	svc *Service
}

// NewHandlers creates case handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts student routes on rg and admin routes on admin
func (h *Handlers) Register(rg, admin *gin.RouterGroup) {
	rg.POST("/cases", h.Submit)
	rg.GET("/cases", h.ListMine)
	rg.GET("/cases/:id", h.Get)
	rg.POST("/cases/:id/messages", h.AddMessage)

	admin.GET("/cases", h.ListAll)
	admin.PATCH("/cases/:id/status", h.UpdateStatus)
}

// Submit handles POST /api/cases
func (h *Handlers) Submit(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	var in SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	created, err := h.svc.Submit(c.Request.Context(), viewer, in)
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(created, viewer))
}

// ListMine handles GET /api/cases
func (h *Handlers) ListMine(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	list, err := h.svc.ListForStudent(c.Request.Context(), viewer)
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": toViews(list, viewer)})
}

// ListAll handles GET /api/admin/cases
func (h *Handlers) ListAll(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	list, err := h.svc.ListAll(c.Request.Context(), viewer, c.Query("status"))
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": toViews(list, viewer)})
}

// Get handles GET /api/cases/:id
func (h *Handlers) Get(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	found, err := h.svc.Get(c.Request.Context(), viewer, c.Param("id"))
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(found, viewer))
}

// AddMessage handles POST /api/cases/:id/messages
func (h *Handlers) AddMessage(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	updated, err := h.svc.AddMessage(c.Request.Context(), viewer, c.Param("id"), body.Text)
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(updated, viewer))
}

// UpdateStatus handles PATCH /api/admin/cases/:id/status
func (h *Handlers) UpdateStatus(c *gin.Context) {
	viewer, ok := viewerFrom(c)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}
	updated, err := h.svc.UpdateStatus(c.Request.Context(), viewer, c.Param("id"), body.Status, body.Note)
	if err != nil {
		writeCaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, toView(updated, viewer))
}

func viewerFrom(c *gin.Context) (Viewer, bool) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "unauthenticated", "sign in required")
		return Viewer{}, false
	}
	return ViewerOf(user), true
}

func writeCaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(c, http.StatusNotFound, "case_not_found", err.Error())
	case errors.Is(err, ErrForbidden):
		writeError(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ErrInvalidInput):
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		writeError(c, http.StatusConflict, "invalid_transition", err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal", "failed to process case")
	}
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}
