package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// CaseSource supplies resolved cases, newest first.
type CaseSource interface {
	ResolvedForJournal(ctx context.Context, limit int) ([]CaseRecord, error)
}

// EntryStore reads recent journal entries and persists new ones.
type EntryStore interface {
	Recent(ctx context.Context, limit int) ([]RecentEntry, error)
	Create(ctx context.Context, entry NewEntry) (*Entry, error)
}

// Summarizer turns anonymized case stubs into journal text.
type Summarizer interface {
	Summarize(ctx context.Context, cases []CaseStub) (string, error)
}

// Locker serializes generation runs across processes. Acquire returns
// ErrGenerationInProgress when another run holds the lock.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// Config holds the generation tunables.
type Config struct {
	MaxCases            int
	RecentWindow        int
	CandidatePoolSize   int
	SimilarityThreshold float64
	LockTTL             time.Duration
}

// DefaultConfig returns the tunables the feed has always used.
func DefaultConfig() Config {
	return Config{
		MaxCases:            2,
		RecentWindow:        2,
		CandidatePoolSize:   50,
		SimilarityThreshold: 0.98,
		LockTTL:             2 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxCases <= 0 {
		c.MaxCases = d.MaxCases
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.CandidatePoolSize <= 0 {
		c.CandidatePoolSize = d.CandidatePoolSize
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	return c
}

const lockKey = "journal:generate:lock"

// Option customizes a Generator.
type Option func(*Generator)

// WithLocker guards each run with an advisory lock.
func WithLocker(l Locker) Option {
	return func(g *Generator) { g.locker = l }
}

// WithClock overrides the time source used for entry titles.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// Generator runs one read-select-summarize-write cycle per call. It keeps no
// state between calls.
type Generator struct {
	log        *slog.Logger
	cases      CaseSource
	entries    EntryStore
	summarizer Summarizer
	locker     Locker
	cfg        Config
	now        func() time.Time
}

// NewGenerator wires a Generator. Zero-valued config fields fall back to
// DefaultConfig.
func NewGenerator(log *slog.Logger, cases CaseSource, entries EntryStore, summarizer Summarizer, cfg Config, opts ...Option) *Generator {
	g := &Generator{
		log:        log.With("component", "journal"),
		cases:      cases,
		entries:    entries,
		summarizer: summarizer,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result describes a successful run.
type Result struct {
	Entry     *Entry
	Selection Selection
	// Similarity is set only when the duplicate guard ran.
	Similarity *float64
}

// Generate selects cases, summarizes them and persists one journal entry.
// Every failure leaves the entry store untouched.
func (g *Generator) Generate(ctx context.Context) (*Result, error) {
	if g.locker != nil {
		release, err := g.locker.Acquire(ctx, lockKey, g.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, ErrGenerationInProgress) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: failed to acquire lock: %w", ErrGenerationFailed, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				g.log.Warn("Failed to release generation lock", "error", err)
			}
		}()
	}

	recent, err := g.entries.Recent(ctx, g.cfg.RecentWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load recent entries: %w", ErrGenerationFailed, err)
	}

	pool, err := g.cases.ResolvedForJournal(ctx, g.cfg.CandidatePoolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load resolved cases: %w", ErrGenerationFailed, err)
	}

	sel, err := Select(eligible(pool), recent, g.cfg.MaxCases)
	if err != nil {
		return nil, err
	}

	g.log.Info(
		"Selected journal candidates",
		"picked", sel.PickedIDs(),
		"pool_size", len(pool),
		"used_recently", len(sel.UsedRecently),
		"topped_up", sel.ToppedUp,
		"same_as_last", sel.SameAsLast,
	)

	summary, err := g.summarizer.Summarize(ctx, sel.Stubs())
	if err != nil {
		return nil, fmt.Errorf("%w: summarizer: %w", ErrGenerationFailed, err)
	}

	res := &Result{Selection: sel}
	if sel.SameAsLast {
		sim := Similarity(summary, recent[0].Content)
		res.Similarity = &sim
		if sim >= g.cfg.SimilarityThreshold {
			g.log.Warn(
				"Rejected duplicate journal content",
				"previous_entry_id", recent[0].ID,
				"similarity", sim,
			)
			return nil, ErrDuplicateContent
		}
	}

	entry, err := g.entries.Create(ctx, NewEntry{
		Title:           Title(g.now()),
		Content:         summary,
		RelatedCaseIDs:  sel.PickedIDs(),
		EvidenceSummary: evidenceFor(sel.Picked),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to persist entry: %w", ErrGenerationFailed, err)
	}
	res.Entry = entry

	g.log.Info("Journal entry published", "entry_id", entry.ID, "cases", entry.RelatedCaseIDs)
	return res, nil
}

// Title is the date-stamped label of an entry generated at t.
func Title(t time.Time) string {
	return "News Update - " + t.Format("2006-01-02")
}

func eligible(pool []CaseRecord) []CaseRecord {
	out := make([]CaseRecord, 0, len(pool))
	for _, c := range pool {
		if c.Status == StatusResolved {
			out = append(out, c)
		}
	}
	return out
}

func evidenceFor(picked []CaseRecord) []EvidenceSummary {
	out := make([]EvidenceSummary, 0, len(picked))
	for _, c := range picked {
		meta := SummarizeEvidence(c.Evidence)
		out = append(out, EvidenceSummary{
			CaseID:        c.ID,
			EvidenceCount: meta.Count,
			EvidenceTypes: meta.Types,
		})
	}
	return out
}
