package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/advisor"
	"github.com/jimdaga/casebook/internal/ai"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/database"
	"github.com/jimdaga/casebook/internal/feed"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry, err := prompts.Load("")
	require.NoError(t, err)
	model, err := ai.New(log, config.AIConfig{Provider: config.ProviderStub}, registry)
	require.NoError(t, err)

	repo := cases.NewRepository(db)
	store := feed.NewStore(db)
	gen := journal.NewGenerator(log, repo, store, model, journal.DefaultConfig())

	cfg := &config.Config{
		Auth: config.AuthConfig{SessionSecret: "test-secret-test-secret-test-sec"},
		CORS: config.CORSConfig{AllowedOriginsRaw: "http://localhost:3000"},
	}
	return NewRouter(RouterConfig{
		Config:  cfg,
		DB:      db,
		Cases:   cases.NewHandlers(cases.NewService(log, repo, nil, nil)),
		Feed:    feed.NewHandlers(feed.NewService(log, gen, store, nil), nil),
		Advisor: advisor.NewHandlers(advisor.NewService(log, db, model)),
	})
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_APIRequiresSession(t *testing.T) {
	r := newTestRouter(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/me"},
		{http.MethodGet, "/api/cases"},
		{http.MethodGet, "/api/journal"},
		{http.MethodPost, "/api/advisor/chat"},
		{http.MethodGet, "/api/admin/activity"},
		{http.MethodPost, "/api/admin/journal/generate"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/cases", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
