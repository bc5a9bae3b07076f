package ports

import (
	"context"
	"io"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentClassifier determines a document's type from the configured
// taxonomy, escalating once to the strong model tier on ambiguous output.
type DocumentClassifier interface {
	Classify(ctx context.Context, documentID string) (string, error)
}

// QuestionRunner executes every configured question for a document's
// classified type. It returns the number of questions attempted and the
// per-question failures; partial failure is not an error.
type QuestionRunner interface {
	RunAll(ctx context.Context, documentID string) (int, []domain.QuestionFailure, error)
}

// StatusReader exposes the read models derived from the query history.
type StatusReader interface {
	Status(ctx context.Context, documentID string) (*DocumentStatusView, error)
	Answers(ctx context.Context, documentID string) (*DocumentAnswers, error)
	History(ctx context.Context, documentID string) ([]domain.Query, error)
}

// DocumentStatusView is the polling snapshot for one document.
type DocumentStatusView struct {
	IsProcessed    bool                    `json:"is_processed"`
	ClassifiedType string                  `json:"classified_type,omitempty"`
	Questions      []domain.QuestionStatus `json:"questions"`
	AllComplete    bool                    `json:"all_complete"`
}

// DocumentAnswers is the latest answers joined with catalog labels.
type DocumentAnswers struct {
	ClassifiedType string                   `json:"classified_type,omitempty"`
	Answers        map[string]domain.Answer `json:"answers"`
}

// AnswerPoller blocks until a specific answer is ready or the attempt budget
// is exhausted. A nil result without error means timeout.
type AnswerPoller interface {
	Poll(ctx context.Context, documentID, identifier string) (*domain.PolledAnswer, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
