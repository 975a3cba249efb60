package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/database"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/models"
	"github.com/jimdaga/casebook/internal/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixedSummarizer struct {
	text  string
	err   error
	calls int
}

func (f *fixedSummarizer) Summarize(context.Context, []journal.CaseStub) (string, error) {
	f.calls++
	return f.text, f.err
}

type recordingPublisher struct {
	events []streams.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev streams.Event) error {
	r.events = append(r.events, ev)
	return nil
}

type mockEnqueuer struct {
	id  string
	err error
}

func (m mockEnqueuer) EnqueueJournal(context.Context) (string, error) { return m.id, m.err }

type env struct {
	db    *gorm.DB
	store *Store
	svc   *Service
	sum   *fixedSummarizer
	pub   *recordingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := &env{
		db:    db,
		store: NewStore(db),
		sum:   &fixedSummarizer{text: "Facilities issues dominated this week."},
		pub:   &recordingPublisher{},
	}
	gen := journal.NewGenerator(log, cases.NewRepository(db), e.store, e.sum, journal.DefaultConfig())
	e.svc = NewService(log, gen, e.store, e.pub)
	return e
}

func (e *env) resolvedCase(t *testing.T, at time.Time, evidenceURL string) string {
	t.Helper()
	student := models.User{Email: at.Format("150405.000") + "@school.test"}
	require.NoError(t, e.db.Create(&student).Error)
	c := models.Case{
		StudentID:           student.ID,
		Title:               "t",
		Category:            models.CategoryFacilities,
		Description:         "Raw text naming Sarah",
		RedactedDescription: "Raw text naming [REDACTED_STUDENT]",
		Status:              models.CaseStatusResolved,
		EvidenceURL:         evidenceURL,
		History:             datatypes.JSON(`[]`),
		CreatedAt:           at,
	}
	require.NoError(t, e.db.Create(&c).Error)
	return c.ID
}

func TestStore_CreateRecentList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.store.Create(ctx, journal.NewEntry{Title: "News Update - 2026-01-01", Content: "one", RelatedCaseIDs: []string{"a"}})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.PublishedAt.IsZero())
	assert.Equal(t, []journal.EvidenceSummary{}, first.EvidenceSummary)

	time.Sleep(5 * time.Millisecond)
	_, err = e.store.Create(ctx, journal.NewEntry{
		Title:           "News Update - 2026-01-02",
		Content:         "two",
		RelatedCaseIDs:  []string{"b", "c"},
		EvidenceSummary: []journal.EvidenceSummary{{CaseID: "b", EvidenceCount: 1, EvidenceTypes: []string{"pdf"}}},
	})
	require.NoError(t, err)

	recent, err := e.store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "two", recent[0].Content)
	assert.Equal(t, []string{"b", "c"}, recent[0].RelatedCaseIDs)

	none, err := e.store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	list, err := e.store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pdf", list[0].EvidenceSummary[0].EvidenceTypes[0])
}

func TestService_GenerateThenDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	older := e.resolvedCase(t, base, "https://files/a/photo.png")
	newer := e.resolvedCase(t, base.Add(time.Hour), "")

	res, err := e.svc.Generate(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, []string{newer, older}, res.Entry.RelatedCaseIDs)
	assert.Equal(t, 1, res.Entry.EvidenceSummary[1].EvidenceCount)
	assert.Equal(t, []string{"image"}, res.Entry.EvidenceSummary[1].EvidenceTypes)

	require.Len(t, e.pub.events, 1)
	assert.Equal(t, streams.EventJournalPublished, e.pub.events[0].Type)
	assert.Equal(t, res.Entry.ID, e.pub.events[0].JournalID)

	// Same cases and same text again: rejected, nothing written
	_, err = e.svc.Generate(ctx, "manual")
	assert.ErrorIs(t, err, journal.ErrDuplicateContent)

	var count int64
	require.NoError(t, e.db.Model(&models.JournalEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, e.pub.events, 1)

	// Entry text never carries evidence links
	list, err := e.store.List(ctx, 1)
	require.NoError(t, err)
	raw, _ := json.Marshal(list[0])
	assert.NotContains(t, string(raw), "https://")
}

func router(e *env, enq Enqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandlers(e.svc, enq).Register(r.Group("/api"), r.Group("/api/admin"))
	return r
}

func TestHandlers(t *testing.T) {
	e := newEnv(t)

	w := httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/generate", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "no_eligible_cases")

	e.resolvedCase(t, time.Now().UTC(), "")
	w = httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/generate", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Entries []journal.Entry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Entries, 1)
	assert.Contains(t, body.Entries[0].Title, "News Update - ")

	w = httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/journal?limit=1000", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/enqueue", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	router(e, mockEnqueuer{id: "task-1"}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/enqueue", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "task-1")

	w = httptest.NewRecorder()
	router(e, mockEnqueuer{err: errors.New("redis down")}).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/enqueue", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandlers_GenerateFailureHidesCause(t *testing.T) {
	e := newEnv(t)
	e.resolvedCase(t, time.Now().UTC(), "")
	e.sum.err = errors.New(`POST "https://api.anthropic.com/v1/messages": 401 invalid x-api-key`)

	w := httptest.NewRecorder()
	router(e, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/journal/generate", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"journal generation failed","code":"generation_failed"}`, w.Body.String())

	var count int64
	require.NoError(t, e.db.Model(&models.JournalEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, StatusFor(journal.KindNoNewCandidates))
	assert.Equal(t, http.StatusConflict, StatusFor(journal.KindBusy))
	assert.Equal(t, http.StatusConflict, StatusFor(journal.KindDuplicateContent))
	assert.Equal(t, http.StatusBadGateway, StatusFor(journal.KindFailed))
}
