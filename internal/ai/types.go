// Package ai wraps the generative backends behind the four operations the
// app needs: journal summaries, PII redaction, advisor chat and report
// prefill.
package ai

import "errors"

// Errors
var (
	ErrEmptyResponse = errors.New("ai returned an empty response")
	ErrInvalidOutput = errors.New("ai returned invalid output")
)

// Chat roles
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation sent to a backend
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Request is a rendered prompt ready for a backend
type Request struct {
	Task      string    `json:"task"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
	MaxTokens int64     `json:"max_tokens"`

	// Input is the structured operation input, for backends that work on
	// data rather than prose
	Input any `json:"input,omitempty"`
}

// ReportPrefill is the structured draft of a report extracted from a
// student's free-text message
type ReportPrefill struct {
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	KeyFacts    []string `json:"keyFacts"`
	Description string   `json:"description"`
}
