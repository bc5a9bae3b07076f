package ports

import (
	"context"
	"io"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// QueryStore is the append-only audit trail of LLM call attempts. Rows are
// inserted PENDING before a call is dispatched and finalized exactly once;
// nothing is ever overwritten or hard-deleted.
type QueryStore interface {
	Create(ctx context.Context, query *domain.Query) error
	// Complete transitions a live PENDING row to COMPLETE. Returns
	// domain.ErrQueryNotFound when the id does not reference a live pending row.
	Complete(ctx context.Context, id string, completion domain.QueryCompletion) error
	// Fail transitions a live PENDING row to FAILED, recording the cause.
	Fail(ctx context.Context, id string, cause string) error
	// GetCurrent returns the latest non-deleted row for the pair, or nil when
	// the pair has never been attempted. Absence is not an error.
	GetCurrent(ctx context.Context, documentID, identifier string) (*domain.Query, error)
	// ListByDocument returns the full non-deleted history, ascending by
	// creation time, for audit display.
	ListByDocument(ctx context.Context, documentID string) ([]domain.Query, error)
	// LatestPerIdentifier returns the most recent non-deleted row for each
	// distinct identifier, excluding the given identifiers.
	LatestPerIdentifier(ctx context.Context, documentID string, exclude ...string) ([]domain.Query, error)
	SoftDelete(ctx context.Context, id string) error
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveClassifiedType(ctx context.Context, id string, classifiedType string) error
	SaveExtracted(ctx context.Context, id string, extracted string) error
}

// ChatModel is the LLM transport: one fallible call per invocation. Transport
// retries, if any, live behind this port, never in the pipeline.
type ChatModel interface {
	Chat(ctx context.Context, messages []domain.Message, model string) (domain.ChatResult, error)
}

// ContentResolver produces the plaintext content of a stored document.
type ContentResolver interface {
	Resolve(ctx context.Context, doc *domain.Document) (string, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// PipelineTelemetry receives pipeline-level observations. Implementations
// must be safe for concurrent use; a nil telemetry is valid and means no-op.
type PipelineTelemetry interface {
	QueryFinalized(status domain.QueryStatus, model string, usage *domain.Usage)
	ClassificationEscalated()
	ValidationMiss(identifier string)
}
