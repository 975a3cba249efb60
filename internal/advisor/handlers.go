package advisor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/ai"
	"github.com/jimdaga/casebook/internal/auth"
)

// Handlers serves the advisor API
type Handlers struct {
	svc *Service
}

// NewHandlers creates advisor handlers
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts the advisor routes on rg
func (h *Handlers) Register(rg *gin.RouterGroup) {
	rg.POST("/advisor/chat", h.Chat)
	rg.POST("/advisor/prefill", h.Prefill)
}

type chatRequest struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// Chat handles POST /api/advisor/chat
func (h *Handlers) Chat(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in required", "code": "unauthenticated"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "code": "invalid_request"})
		return
	}
	reply, err := h.svc.Chat(c.Request.Context(), user.ID, req.ChatID, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// Prefill handles POST /api/advisor/prefill
func (h *Handlers) Prefill(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body", "code": "invalid_request"})
		return
	}
	draft, err := h.svc.Prefill(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "empty_message"})
	case errors.Is(err, ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "chat_not_found"})
	case errors.Is(err, ai.ErrInvalidOutput), errors.Is(err, ai.ErrEmptyResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": "the advisor returned an unusable response", "code": "ai_invalid_output"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": "the advisor is unavailable", "code": "ai_unavailable"})
	}
}
