package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/models"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"
)

// Session keys
const (
	sessionUserID = "user_id"
	sessionEmail  = "user_email"
)

// HandleLogin initiates the Google OAuth flow
func HandleLogin(c *gin.Context) {
	withProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleCallback completes the OAuth flow, upserts the user and stores the
// user ID in the session
func HandleCallback(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		withProvider(c)

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			slog.Warn("OAuth callback failed", "error", err)
			c.Redirect(http.StatusFound, "/login?error=auth_failed")
			return
		}

		user, err := UpsertUser(db, gothUser, cfg.Auth.IsAdminEmail(gothUser.Email))
		if err != nil {
			slog.Error("Failed to upsert user", "error", err)
			c.Redirect(http.StatusFound, "/login?error=user_failed")
			return
		}

		session := sessions.Default(c)
		session.Set(sessionUserID, user.ID)
		session.Set(sessionEmail, user.Email)
		if err := session.Save(); err != nil {
			slog.Error("Session save failed", "error", err)
			c.Redirect(http.StatusFound, "/login?error=session_failed")
			return
		}

		slog.Info("User authenticated", "user_id", user.ID, "role", user.Role)
		c.Redirect(http.StatusFound, "/")
	}
}

// HandleLogout clears the session
func HandleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		slog.Error("Session clear failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// HandleMe returns the signed-in user's profile
func HandleMe(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in", "code": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"name":      user.Name,
		"role":      user.Role,
		"onboarded": user.Onboarded,
	})
}

// HandleOnboarded marks the signed-in user as onboarded
func HandleOnboarded(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not signed in", "code": "unauthenticated"})
			return
		}
		if err := db.WithContext(c.Request.Context()).Model(&user).Update("onboarded", true).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user", "code": "internal"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// UpsertUser creates or refreshes the user for an OAuth identity. Admin
// allow-listed emails are promoted; existing admins are never demoted here.
func UpsertUser(db *gorm.DB, gothUser goth.User, admin bool) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		return nil, errors.New("OAuth identity has no email")
	}

	now := time.Now()
	var user models.User
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("email = ?", email).First(&user)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			user = models.User{
				Email:       email,
				Name:        gothUser.Name,
				Role:        models.RoleStudent,
				LastLoginAt: &now,
			}
			if admin {
				user.Role = models.RoleAdmin
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}
		case result.Error != nil:
			return fmt.Errorf("failed to find user: %w", result.Error)
		default:
			updates := map[string]interface{}{"name": gothUser.Name, "last_login_at": now}
			if admin && user.Role != models.RoleAdmin {
				updates["role"] = models.RoleAdmin
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		return upsertIdentity(tx, user.ID, gothUser)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func upsertIdentity(tx *gorm.DB, userID uint, gothUser goth.User) error {
	if gothUser.UserID == "" {
		return nil
	}

	var expiry *time.Time
	if !gothUser.ExpiresAt.IsZero() {
		e := gothUser.ExpiresAt
		expiry = &e
	}

	var identity models.AuthIdentity
	result := tx.Where("provider_user_id = ?", gothUser.UserID).First(&identity)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		identity = models.AuthIdentity{
			UserID:         userID,
			Provider:       gothUser.Provider,
			ProviderUserID: gothUser.UserID,
			AccessToken:    models.EncryptedString(gothUser.AccessToken),
			RefreshToken:   models.EncryptedString(gothUser.RefreshToken),
			TokenExpiry:    expiry,
		}
		if err := tx.Create(&identity).Error; err != nil {
			return fmt.Errorf("failed to create auth identity: %w", err)
		}
		return nil
	}
	if result.Error != nil {
		return fmt.Errorf("failed to find auth identity: %w", result.Error)
	}

	identity.AccessToken = models.EncryptedString(gothUser.AccessToken)
	identity.RefreshToken = models.EncryptedString(gothUser.RefreshToken)
	identity.TokenExpiry = expiry
	if err := tx.Save(&identity).Error; err != nil {
		return fmt.Errorf("failed to update auth identity: %w", err)
	}
	return nil
}

// Gothic requires the "provider" query parameter
func withProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()
}
