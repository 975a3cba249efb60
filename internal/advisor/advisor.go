// Package advisor persists conversations with the AI school-life advisor
// and drafts reports from free-text messages.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jimdaga/casebook/internal/ai"
	"github.com/jimdaga/casebook/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Errors
var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyMessage = errors.New("message is required")
)

// maxHistoryTurns bounds the history sent back to the model
const maxHistoryTurns = 40

// Model is the subset of the ai client the advisor needs
type Model interface {
	Advise(ctx context.Context, history []ai.Message, message string) (string, error)
	Prefill(ctx context.Context, text string) (*ai.ReportPrefill, error)
}

// Service runs advisor chats
type Service struct {
	db    *gorm.DB
	model Model
	log   *slog.Logger
	now   func() time.Time
}

// NewService creates an advisor service
func NewService(log *slog.Logger, db *gorm.DB, model Model) *Service {
	return &Service{
		db:    db,
		model: model,
		log:   log.With("component", "advisor"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Reply is the outcome of one chat turn
type Reply struct {
	ChatID  string            `json:"chatId"`
	Reply   string            `json:"reply"`
	History []models.ChatTurn `json:"history"`
}

// Chat sends message to the advisor, continuing chatID when set. Chats
// belong to their owner; another user's chat ID is reported as not found.
func (s *Service) Chat(ctx context.Context, ownerID uint, chatID, message string) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	chat := models.AdvisorChat{OwnerID: ownerID}
	var history []models.ChatTurn
	if chatID != "" {
		err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", chatID, ownerID).First(&chat).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load chat: %w", err)
		}
		if len(chat.History) > 0 {
			if err := json.Unmarshal(chat.History, &history); err != nil {
				return nil, fmt.Errorf("failed to decode chat history: %w", err)
			}
		}
	}

	text, err := s.model.Advise(ctx, toMessages(history), message)
	if err != nil {
		s.log.Error("Advisor reply failed", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("failed to get advisor reply: %w", err)
	}

	now := s.now()
	history = append(history,
		models.ChatTurn{Role: models.ChatRoleUser, Text: message, Timestamp: now},
		models.ChatTurn{Role: models.ChatRoleModel, Text: text, Timestamp: now},
	)
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}
	chat.History = datatypes.JSON(raw)

	if err := s.db.WithContext(ctx).Save(&chat).Error; err != nil {
		return nil, fmt.Errorf("failed to save chat: %w", err)
	}

	return &Reply{ChatID: chat.ID, Reply: text, History: history}, nil
}

// Prefill drafts a report from a free-text message
func (s *Service) Prefill(ctx context.Context, message string) (*ai.ReportPrefill, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	return s.model.Prefill(ctx, message)
}

func toMessages(history []models.ChatTurn) []ai.Message {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	out := make([]ai.Message, 0, len(history))
	for _, turn := range history {
		role := ai.RoleUser
		if turn.Role == models.ChatRoleModel {
			role = ai.RoleModel
		}
		out = append(out, ai.Message{Role: role, Text: turn.Text})
	}
	return out
}
