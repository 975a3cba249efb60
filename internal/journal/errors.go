package journal

import "errors"

// Terminal outcomes of a single generation attempt. None of them are retried
// by the generator.
var (
	ErrNoEligibleCases      = errors.New("no resolved cases to summarize")
	ErrNoNewCandidates      = errors.New("no new cases to summarize")
	ErrDuplicateContent     = errors.New("generated journal content is too similar to the previous entry")
	ErrGenerationFailed     = errors.New("journal generation failed")
	ErrGenerationInProgress = errors.New("journal generation already in progress")
)

// Kind classifies the outcome of Generate so callers can branch without
// matching on error text.
type Kind int

const (
	KindOK Kind = iota
	KindNoEligibleCases
	KindNoNewCandidates
	KindDuplicateContent
	KindBusy
	KindFailed
)

// KindOf maps an error returned by Generate to its Kind. Unknown errors are
// reported as KindFailed.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrNoEligibleCases):
		return KindNoEligibleCases
	case errors.Is(err, ErrNoNewCandidates):
		return KindNoNewCandidates
	case errors.Is(err, ErrDuplicateContent):
		return KindDuplicateContent
	case errors.Is(err, ErrGenerationInProgress):
		return KindBusy
	default:
		return KindFailed
	}
}

// Code is a stable machine-readable identifier for the kind.
func (k Kind) Code() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoEligibleCases:
		return "no_eligible_cases"
	case KindNoNewCandidates:
		return "no_new_candidates"
	case KindDuplicateContent:
		return "duplicate_journal_content"
	case KindBusy:
		return "generation_in_progress"
	default:
		return "generation_failed"
	}
}

func (k Kind) String() string { return k.Code() }

// Expected reports whether the kind means "nothing to publish right now"
// rather than a collaborator failure.
func (k Kind) Expected() bool {
	switch k {
	case KindNoEligibleCases, KindNoNewCandidates, KindDuplicateContent, KindBusy:
		return true
	default:
		return false
	}
}
