// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/advisor"
	"github.com/jimdaga/casebook/internal/auth"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/feed"
	"github.com/jimdaga/casebook/internal/health"
	"github.com/jimdaga/casebook/internal/streams"
	"gorm.io/gorm"
)

const sessionName = "casebook_session"

// RouterConfig holds everything the router mounts
type RouterConfig struct {
	Config  *config.Config
	DB      *gorm.DB
	Cases   *cases.Handlers
	Feed    *feed.Handlers
	Advisor *advisor.Handlers
}

// NewRouter builds the gin engine. Routes under /api require a session;
// routes under /api/admin also require the admin role.
func NewRouter(rc RouterConfig) *gin.Engine {
	if rc.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     rc.Config.CORS.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(rc.Config.Auth.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   rc.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, store))

	// Public
	router.GET("/health", gin.WrapF(health.Handler))
	router.GET("/auth/google", auth.HandleLogin)
	router.GET("/auth/google/callback", auth.HandleCallback(rc.DB, rc.Config))
	router.POST("/auth/logout", auth.HandleLogout)

	// Signed in
	api := router.Group("/api")
	api.Use(auth.RequireAuth(rc.DB))
	api.GET("/me", auth.HandleMe)
	api.POST("/me/onboarded", auth.HandleOnboarded(rc.DB))

	// Admin
	admin := api.Group("/admin")
	admin.Use(auth.RequireAdmin())
	admin.GET("/activity", streams.ListActivity(rc.DB))

	rc.Cases.Register(api, admin)
	rc.Feed.Register(api, admin)
	rc.Advisor.Register(api)

	return router
}
