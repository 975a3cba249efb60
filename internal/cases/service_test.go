package cases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jimdaga/casebook/internal/database"
	"github.com/jimdaga/casebook/internal/models"
	"github.com/jimdaga/casebook/internal/streams"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type mockEnqueuer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (m *mockEnqueuer) EnqueueRedaction(_ context.Context, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, caseID)
	return m.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []streams.Event
}

func (m *mockPublisher) Publish(_ context.Context, ev streams.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type fixture struct {
	db      *gorm.DB
	svc     *Service
	enq     *mockEnqueuer
	pub     *mockPublisher
	student Viewer
	other   Viewer
	admin   Viewer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	users := []models.User{
		{Email: "s1@school.test", Role: models.RoleStudent},
		{Email: "s2@school.test", Role: models.RoleStudent},
		{Email: "admin@school.test", Role: models.RoleAdmin},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}

	f := &fixture{
		db:      db,
		enq:     &mockEnqueuer{},
		pub:     &mockPublisher{},
		student: ViewerOf(users[0]),
		other:   ViewerOf(users[1]),
		admin:   ViewerOf(users[2]),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(log, NewRepository(db), f.enq, f.pub)
	return f
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, f.student, SubmitInput{
		Category:     "facilities",
		Description:  "  The heating in room 4 has not worked since Monday.  ",
		EvidenceURL:  "https://files/heater.jpg",
		EvidenceMIME: "image/jpeg",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.CategoryFacilities, c.Category)
	assert.Equal(t, models.CaseStatusSubmitted, c.Status)
	assert.Equal(t, "Issue report", c.Title, "raw text never becomes the title")
	assert.True(t, c.TitleDerived)
	assert.Equal(t, "image", c.EvidenceType)
	assert.Equal(t, []string{c.ID}, f.enq.ids)

	history := History(c)
	require.Len(t, history, 1)
	assert.Equal(t, "Case submitted.", history[0].Text)
	assert.Equal(t, models.SenderStudent, history[0].Sender)

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, streams.EventCaseSubmitted, f.pub.events[0].Type)

	stored, err := f.svc.Get(ctx, f.student, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "The heating in room 4 has not worked since Monday.", stored.Description.String())
}

func TestSubmit_RejectsEmptyDescription(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submit(context.Background(), f.student, SubmitInput{Description: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.enq.ids)
}

func TestSubmit_EnqueueFailureKeepsCase(t *testing.T) {
	f := newFixture(t)
	f.enq.err = errors.New("redis down")

	c, err := f.svc.Submit(context.Background(), f.student, SubmitInput{Description: "Lights out in hall"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.Case{}).Where("id = ?", c.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: "Locker broken"})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.other, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Get(ctx, f.admin, c.ID)
	assert.NoError(t, err)

	_, err = f.svc.ListAll(ctx, f.student, "")
	assert.ErrorIs(t, err, ErrForbidden)

	mine, err := f.svc.ListForStudent(ctx, f.other)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: "Library closes too early"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.student, c.ID, models.CaseStatusResolved, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// Skipping Under Review is a forward move
	updated, err := f.svc.UpdateStatus(ctx, f.admin, c.ID, models.CaseStatusResolved, "Opening hours extended.")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusResolved, updated.Status)
	assert.Equal(t, "Opening hours extended.", updated.ResolutionNote)

	history := History(updated)
	require.Len(t, history, 2)
	assert.Equal(t, models.SenderAdmin, history[1].Sender)

	_, err = f.svc.UpdateStatus(ctx, f.admin, c.ID, models.CaseStatusUnderReview, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	closed, err := f.svc.UpdateStatus(ctx, f.admin, c.ID, models.CaseStatusClosed, "")
	require.NoError(t, err)
	assert.Equal(t, "Status changed to Closed.", History(closed)[2].Text)
	assert.Equal(t, "Opening hours extended.", closed.ResolutionNote)

	_, err = f.svc.UpdateStatus(ctx, f.admin, c.ID, models.CaseStatusResolved, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, f.admin, c.ID, "Archived", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var changes int
	for _, ev := range f.pub.events {
		if ev.Type == streams.EventCaseStatusChanged {
			changes++
		}
	}
	assert.Equal(t, 2, changes)
}

func TestAddMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: "Bus late every day"})
	require.NoError(t, err)

	_, err = f.svc.AddMessage(ctx, f.student, c.ID, "It was late again today.")
	require.NoError(t, err)
	updated, err := f.svc.AddMessage(ctx, f.admin, c.ID, "We have contacted the bus company.")
	require.NoError(t, err)

	history := History(updated)
	require.Len(t, history, 3)
	assert.Equal(t, models.SenderStudent, history[1].Sender)
	assert.Equal(t, models.SenderAdmin, history[2].Sender)

	_, err = f.svc.AddMessage(ctx, f.other, c.ID, "hello")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.AddMessage(ctx, f.student, c.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestResolvedForJournal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	var ids []string
	for i, desc := range []string{"Ms Jones shouted in class", "Toilets flooded", "Unfair detention"} {
		f.svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		c, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: desc, EvidenceURL: "https://f/doc.pdf"})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	require.NoError(t, f.svc.ApplyRedaction(ctx, ids[0], "A teacher shouted in class"))
	for _, id := range ids[:2] {
		_, err := f.svc.UpdateStatus(ctx, f.admin, id, models.CaseStatusResolved, "")
		require.NoError(t, err)
	}

	records, err := f.svc.Repository().ResolvedForJournal(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first
	assert.Equal(t, ids[1], records[0].ID)
	assert.Equal(t, ids[0], records[1].ID)
	assert.Equal(t, redactedPlaceholder, records[0].RedactedDescription)
	assert.Equal(t, "A teacher shouted in class", records[1].RedactedDescription)
	for _, r := range records {
		assert.NotContains(t, r.RedactedDescription, "Jones")
		assert.Equal(t, models.CaseStatusResolved, r.Status)
	}

	limited, err := f.svc.Repository().ResolvedForJournal(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestApplyRedaction_DerivesBlankTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blank, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: "Mr Brown took my phone in room 12"})
	require.NoError(t, err)
	titled, err := f.svc.Submit(ctx, f.student, SubmitInput{Title: "Phone taken", Description: "Mr Brown took my phone"})
	require.NoError(t, err)

	stored, err := f.svc.Repository().Get(ctx, blank.ID)
	require.NoError(t, err)
	assert.Equal(t, "Issue report", stored.Title)

	require.NoError(t, f.svc.ApplyRedaction(ctx, blank.ID, "A teacher took a phone in a classroom"))
	require.NoError(t, f.svc.ApplyRedaction(ctx, titled.ID, "A teacher took a phone"))

	stored, err = f.svc.Repository().Get(ctx, blank.ID)
	require.NoError(t, err)
	assert.Equal(t, "A teacher took a phone in a classroom", stored.Title)
	assert.True(t, stored.Redacted)

	stored, err = f.svc.Repository().Get(ctx, titled.ID)
	require.NoError(t, err)
	assert.Equal(t, "Phone taken", stored.Title)

	assert.ErrorIs(t, f.svc.ApplyRedaction(ctx, "missing", "x"), ErrNotFound)
}

func TestAddMessage_ConcurrentPostsAreAllKept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Submit(ctx, f.student, SubmitInput{Description: "Lockers broken"})
	require.NoError(t, err)

	const posts = 12
	var wg sync.WaitGroup
	errs := make(chan error, posts)
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			viewer := f.student
			if i%2 == 1 {
				viewer = f.admin
			}
			_, err := f.svc.AddMessage(ctx, viewer, c.ID, "message")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.svc.Repository().Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, History(stored), posts+1)
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "Given", DeriveTitle(" Given ", "whatever"))
	assert.Equal(t, "Issue report", DeriveTitle("", "   "))
	long := strings.Repeat("é", 70)
	got := DeriveTitle("", long)
	assert.Equal(t, strings.Repeat("é", 60)+"…", got)
}

func TestNormalizeCategory(t *testing.T) {
	assert.Equal(t, models.CategoryBullying, NormalizeCategory(" bullying "))
	assert.Equal(t, models.CategoryOther, NormalizeCategory("Sports"))
	assert.Equal(t, models.CategoryOther, NormalizeCategory(""))
}

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to string
		wantErr  error
	}{
		{models.CaseStatusSubmitted, models.CaseStatusUnderReview, nil},
		{models.CaseStatusSubmitted, models.CaseStatusClosed, nil},
		{models.CaseStatusUnderReview, models.CaseStatusResolved, nil},
		{models.CaseStatusResolved, models.CaseStatusSubmitted, ErrInvalidTransition},
		{models.CaseStatusClosed, models.CaseStatusClosed, ErrInvalidTransition},
		{models.CaseStatusSubmitted, models.CaseStatusSubmitted, ErrInvalidTransition},
		{models.CaseStatusSubmitted, "Done", ErrInvalidInput},
	}
	for _, tt := range tests {
		err := CheckTransition(tt.from, tt.to)
		if tt.wantErr == nil {
			assert.NoError(t, err, "%s -> %s", tt.from, tt.to)
		} else {
			assert.ErrorIs(t, err, tt.wantErr, "%s -> %s", tt.from, tt.to)
		}
	}
}
