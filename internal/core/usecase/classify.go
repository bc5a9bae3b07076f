package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auditstack/docuquery/internal/catalog"
	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

// classificationHeadChars bounds how much document content is sent for
// classification; a representative prefix is enough to identify the type.
const classificationHeadChars = 300

type ClassifyDocumentUseCase struct {
	docs         ports.DocumentRepository
	queries      ports.QueryStore
	llm          ports.ChatModel
	catalog      *catalog.Catalog
	defaultModel string
	strongModel  string
	telemetry    ports.PipelineTelemetry
}

func NewClassifyDocumentUseCase(
	docs ports.DocumentRepository,
	queries ports.QueryStore,
	llm ports.ChatModel,
	cat *catalog.Catalog,
	defaultModel, strongModel string,
	telemetry ports.PipelineTelemetry,
) *ClassifyDocumentUseCase {
	return &ClassifyDocumentUseCase{
		docs:         docs,
		queries:      queries,
		llm:          llm,
		catalog:      cat,
		defaultModel: defaultModel,
		strongModel:  strongModel,
		telemetry:    telemetry,
	}
}

// Classify determines the document's type and persists it. Every attempt is
// recorded as its own query row under the reserved DOCUMENT_TYPE identifier.
//
// The escalation policy is a fixed two-iteration loop: the default model
// first, then the strong model once if the first answer was invalid or
// UNKNOWN. A second UNKNOWN is accepted; a second invalid label is fatal.
// At most two model calls happen per invocation.
func (uc *ClassifyDocumentUseCase) Classify(ctx context.Context, documentID string) (string, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("fetch document by id: %w", err)
	}
	if !doc.IsExtracted() {
		return "", domain.WrapError(domain.ErrMissingContent, "classify document", errors.New(doc.ID))
	}

	tiers := []string{uc.defaultModel, uc.strongModel}
	for attempt, model := range tiers {
		if attempt > 0 && uc.telemetry != nil {
			uc.telemetry.ClassificationEscalated()
		}

		label, err := uc.attempt(ctx, doc, model)
		if err != nil {
			return "", err
		}

		valid := uc.catalog.Contains(label)
		lastAttempt := attempt == len(tiers)-1
		switch {
		case valid && label != domain.LabelUnknown:
			return uc.accept(ctx, doc, label, attempt+1)
		case valid && lastAttempt:
			// Escalation budget exhausted; UNKNOWN stands.
			return uc.accept(ctx, doc, label, attempt+1)
		case !valid && lastAttempt:
			return "", domain.WrapError(domain.ErrClassification, "classify document",
				fmt.Errorf("invalid label %q after escalation", label))
		}
	}
	return "", domain.WrapError(domain.ErrClassification, "classify document", errors.New("no attempts made"))
}

// attempt runs one classification call: insert the PENDING row, call the
// model, finalize the row. Transport errors finalize the row as FAILED and
// propagate.
func (uc *ClassifyDocumentUseCase) attempt(ctx context.Context, doc *domain.Document, model string) (string, error) {
	messages := uc.buildMessages(doc)

	query := &domain.Query{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Identifier: domain.ClassificationIdentifier,
		Model:      model,
		Prompt:     messages,
		Status:     domain.QueryPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.queries.Create(ctx, query); err != nil {
		return "", fmt.Errorf("create classification query: %w", err)
	}

	resp, err := uc.llm.Chat(ctx, messages, model)
	if err != nil {
		uc.failQuery(ctx, query.ID, err)
		return "", fmt.Errorf("classification call: %w", err)
	}

	label := normalizeLabel(resp.Message)
	completion := domain.QueryCompletion{
		Model:       resp.Model,
		Result:      &label,
		IsValidated: uc.catalog.Contains(label),
		Usage:       &resp.Usage,
	}
	if err := uc.queries.Complete(ctx, query.ID, completion); err != nil {
		return "", fmt.Errorf("finalize classification query: %w", err)
	}
	if uc.telemetry != nil {
		uc.telemetry.QueryFinalized(domain.QueryComplete, resp.Model, &resp.Usage)
	}
	return label, nil
}

func (uc *ClassifyDocumentUseCase) buildMessages(doc *domain.Document) []domain.Message {
	system := fmt.Sprintf(`You are a CPA reviewing uploaded business documents. You will be given a filename and the beginning of the document's text, delimited by triple quotes.
Classify the document as one of the following types. Each line is "- LABEL: description":

%s

Attempt to identify the document as one of the listed types. If it cannot be identified with confidence, answer UNKNOWN.`, uc.catalog.PromptList())

	head := catalog.HeadChars(doc.Extracted, classificationHeadChars)
	return []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: fmt.Sprintf("filename: %s\n\"\"\"%s\"\"\"", doc.Filename, head)},
		{Role: domain.RoleSystem, Content: "Answer with the label only, no other text."},
	}
}

func (uc *ClassifyDocumentUseCase) accept(ctx context.Context, doc *domain.Document, label string, attempts int) (string, error) {
	if err := uc.docs.SaveClassifiedType(ctx, doc.ID, label); err != nil {
		return "", fmt.Errorf("save classified type: %w", err)
	}
	slog.Info("document_classified",
		"document_id", doc.ID,
		"classified_type", label,
		"attempts", attempts,
	)
	return label, nil
}

func (uc *ClassifyDocumentUseCase) failQuery(ctx context.Context, id string, cause error) {
	if err := uc.queries.Fail(ctx, id, cause.Error()); err != nil {
		slog.Error("classification_query_fail_mark", "query_id", id, "error", err)
	}
	if uc.telemetry != nil {
		uc.telemetry.QueryFinalized(domain.QueryFailed, "", nil)
	}
}

// normalizeLabel reduces a model answer to an upper-case label token. Models
// occasionally append reasoning despite instructions; everything after the
// first whitespace is discarded.
func normalizeLabel(answer string) string {
	fields := strings.Fields(strings.TrimSpace(answer))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.Trim(fields[0], `"'.,:()`))
}
