package domain

import "time"

// ClassificationIdentifier is the reserved identifier under which document
// type classification attempts are recorded. Question catalogs may not use it.
const ClassificationIdentifier = "DOCUMENT_TYPE"

// LabelUnknown is the taxonomy sentinel for "could not identify with
// confidence". It is always a valid classification answer.
const LabelUnknown = "UNKNOWN"

// QueryStatus is the lifecycle of one audit trail entry. An entry is born
// PENDING and transitions exactly once to COMPLETE or FAILED.
type QueryStatus string

const (
	QueryPending  QueryStatus = "PENDING"
	QueryComplete QueryStatus = "COMPLETE"
	QueryFailed   QueryStatus = "FAILED"
)

// Terminal reports whether the status can no longer change.
func (s QueryStatus) Terminal() bool {
	return s == QueryComplete || s == QueryFailed
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message in an LLM prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting reported by the model.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Query is one append-only audit trail entry: a single LLM call attempt for a
// (document, identifier) pair, with the full prompt it was dispatched with.
type Query struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	Identifier  string      `json:"identifier"`
	Model       string      `json:"model"`
	Prompt      []Message   `json:"prompt"`
	Status      QueryStatus `json:"status"`
	Result      *string     `json:"result"`
	IsValidated bool        `json:"is_validated"`
	Usage       *Usage      `json:"usage,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	AnsweredAt  *time.Time  `json:"answered_at,omitempty"`
	IsDeleted   bool        `json:"-"`
}

// QueryCompletion is the finalization payload for a successful call. Model
// may differ from the requested one when the provider substitutes a snapshot.
type QueryCompletion struct {
	Model       string
	Result      *string
	IsValidated bool
	Usage       *Usage
}

// ChatResult is the outcome of one model call.
type ChatResult struct {
	Message string
	Model   string
	Usage   Usage
}

// QuestionStatus is the per-identifier slice of the status snapshot.
type QuestionStatus struct {
	Identifier  string      `json:"identifier"`
	Status      QueryStatus `json:"status"`
	IsValidated bool        `json:"is_validated"`
}

// QuestionFailure pairs a question identifier with the error that kept it
// from producing a finalized answer.
type QuestionFailure struct {
	Identifier string
	Err        error
}

// Answer is one current answer joined with its display label.
type Answer struct {
	Value *string `json:"value"`
	Label string  `json:"label"`
}

// PolledAnswer is the result of a bounded wait for one answer.
type PolledAnswer struct {
	Result      *string
	IsValidated bool
}
