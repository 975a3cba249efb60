package feed

import (
	"context"
	"log/slog"

	"github.com/jimdaga/casebook/internal/journal"
	"github.com/jimdaga/casebook/internal/streams"
)

// EventPublisher records activity events
type EventPublisher interface {
	Publish(ctx context.Context, ev streams.Event) error
}

// Service runs journal generation and announces published entries
type Service struct {
	gen       *journal.Generator
	store     *Store
	publisher EventPublisher
	log       *slog.Logger
}

// NewService wires a generator to the activity stream
func NewService(log *slog.Logger, gen *journal.Generator, store *Store, publisher EventPublisher) *Service {
	if publisher == nil {
		publisher = streams.NopPublisher{}
	}
	return &Service{gen: gen, store: store, publisher: publisher, log: log.With("component", "feed")}
}

// Generate runs one generation attempt. Expected outcomes such as "nothing
// new to summarize" come back as errors classified by journal.KindOf.
func (s *Service) Generate(ctx context.Context, trigger string) (*journal.Result, error) {
	res, err := s.gen.Generate(ctx)
	if err != nil {
		kind := journal.KindOf(err)
		if kind.Expected() {
			s.log.Info("Journal generation skipped", "trigger", trigger, "outcome", kind.Code())
		} else {
			s.log.Error("Journal generation failed", "trigger", trigger, "error", err)
		}
		return nil, err
	}

	ev := streams.NewEvent(streams.EventJournalPublished)
	ev.JournalID = res.Entry.ID
	ev.Detail = map[string]any{
		"trigger":    trigger,
		"caseCount":  len(res.Entry.RelatedCaseIDs),
		"toppedUp":   res.Selection.ToppedUp,
		"sameAsLast": res.Selection.SameAsLast,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("Failed to publish activity event", "type", ev.Type, "error", err)
	}
	return res, nil
}

// Store exposes the entry store
func (s *Service) Store() *Store { return s.store }
