package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/jimdaga/casebook/internal/cases"
	"github.com/jimdaga/casebook/internal/config"
	"github.com/jimdaga/casebook/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeGenerator struct {
	trigger string
	res     *journal.Result
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, trigger string) (*journal.Result, error) {
	f.trigger = trigger
	return f.res, f.err
}

type fakeRedactor struct {
	out string
	err error
	in  string
}

func (f *fakeRedactor) Redact(_ context.Context, text string) (string, error) {
	f.in = text
	return f.out, f.err
}

type fakeCases struct {
	descriptions map[string]string
	applied      map[string]string
	loadErr      error
}

func (f *fakeCases) Description(_ context.Context, id string) (string, error) {
	if f.loadErr != nil {
		return "", f.loadErr
	}
	d, ok := f.descriptions[id]
	if !ok {
		return "", cases.ErrNotFound
	}
	return d, nil
}

func (f *fakeCases) ApplyRedaction(_ context.Context, id, redacted string) error {
	if f.applied == nil {
		f.applied = map[string]string{}
	}
	f.applied[id] = redacted
	return nil
}

func TestNewGenerateJournalTask(t *testing.T) {
	task, err := NewGenerateJournalTask(TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, TaskGenerateJournal, task.Type())

	var p journalPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, TriggerManual, p.Trigger)
}

func TestNewRedactCaseTask(t *testing.T) {
	task, err := NewRedactCaseTask("case-1")
	require.NoError(t, err)
	assert.Equal(t, TaskRedactCase, task.Type())
	assert.JSONEq(t, `{"case_id":"case-1"}`, string(task.Payload()))
}

func TestHandleGenerateJournal_Success(t *testing.T) {
	gen := &fakeGenerator{res: &journal.Result{Entry: &journal.Entry{ID: "j1", RelatedCaseIDs: []string{"a", "b"}}}}
	h := handleGenerateJournal(discardLogger(), gen)

	task, err := NewGenerateJournalTask(TriggerManual)
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))
	assert.Equal(t, TriggerManual, gen.trigger)
}

func TestHandleGenerateJournal_EmptyPayloadIsScheduled(t *testing.T) {
	gen := &fakeGenerator{res: &journal.Result{Entry: &journal.Entry{ID: "j1"}}}
	h := handleGenerateJournal(discardLogger(), gen)

	require.NoError(t, h(context.Background(), asynq.NewTask(TaskGenerateJournal, nil)))
	assert.Equal(t, TriggerScheduled, gen.trigger)
}

func TestHandleGenerateJournal_NeverRetries(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"no eligible cases", journal.ErrNoEligibleCases},
		{"no new candidates", journal.ErrNoNewCandidates},
		{"duplicate content", journal.ErrDuplicateContent},
		{"busy", journal.ErrGenerationInProgress},
		{"model failure", errors.Join(journal.ErrGenerationFailed, errors.New("timeout"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handleGenerateJournal(discardLogger(), &fakeGenerator{err: tt.err})
			err := h(context.Background(), asynq.NewTask(TaskGenerateJournal, nil))
			require.Error(t, err)
			assert.ErrorIs(t, err, asynq.SkipRetry)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestHandleGenerateJournal_InvalidPayload(t *testing.T) {
	gen := &fakeGenerator{}
	h := handleGenerateJournal(discardLogger(), gen)

	err := h(context.Background(), asynq.NewTask(TaskGenerateJournal, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, gen.trigger)
}

func TestHandleRedactCase(t *testing.T) {
	store := &fakeCases{descriptions: map[string]string{"c1": "Jane Doe was bullied"}}
	redactor := &fakeRedactor{out: "  [NAME] was bullied \n"}
	h := handleRedactCase(discardLogger(), redactor, store)

	task, err := NewRedactCaseTask("c1")
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))

	assert.Equal(t, "Jane Doe was bullied", redactor.in)
	assert.Equal(t, "[NAME] was bullied", store.applied["c1"])
}

func TestHandleRedactCase_MissingCaseSkipsRetry(t *testing.T) {
	h := handleRedactCase(discardLogger(), &fakeRedactor{out: "x"}, &fakeCases{})

	task, err := NewRedactCaseTask("gone")
	require.NoError(t, err)
	assert.ErrorIs(t, h(context.Background(), task), asynq.SkipRetry)
}

func TestHandleRedactCase_RetriesTransientFailures(t *testing.T) {
	store := &fakeCases{descriptions: map[string]string{"c1": "text"}}

	t.Run("model error", func(t *testing.T) {
		h := handleRedactCase(discardLogger(), &fakeRedactor{err: errors.New("503")}, store)
		task, _ := NewRedactCaseTask("c1")
		err := h(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("blank output", func(t *testing.T) {
		h := handleRedactCase(discardLogger(), &fakeRedactor{out: "   "}, store)
		task, _ := NewRedactCaseTask("c1")
		err := h(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
		assert.NotContains(t, store.applied, "c1")
	})

	t.Run("database error", func(t *testing.T) {
		broken := &fakeCases{loadErr: errors.New("connection reset")}
		h := handleRedactCase(discardLogger(), &fakeRedactor{out: "x"}, broken)
		task, _ := NewRedactCaseTask("c1")
		err := h(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleRedactCase_InvalidPayload(t *testing.T) {
	h := handleRedactCase(discardLogger(), &fakeRedactor{}, &fakeCases{})
	err := h(context.Background(), asynq.NewTask(TaskRedactCase, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestStartScheduler_DisabledWithoutSchedule(t *testing.T) {
	stop, err := StartScheduler(discardLogger(), "redis://localhost:6379/0", config.JournalConfig{})
	require.NoError(t, err)
	require.NotNil(t, stop)
	stop()
}

func TestNewMux(t *testing.T) {
	mux := NewMux(discardLogger(), Deps{Journal: &fakeGenerator{}, Redactor: &fakeRedactor{}, Cases: &fakeCases{}})
	_, pattern := mux.Handler(asynq.NewTask(TaskRedactCase, nil))
	assert.Equal(t, TaskRedactCase, pattern)
	_, pattern = mux.Handler(asynq.NewTask(TaskGenerateJournal, nil))
	assert.Equal(t, TaskGenerateJournal, pattern)
}
