package usecase

import (
	"context"
	"fmt"

	"github.com/auditstack/docuquery/internal/catalog"
	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

// StatusUseCase reduces the append-only query history into "one current
// answer per identifier" views. "Current" is always computed at read time as
// the latest row by creation time; it is never a mutated pointer.
type StatusUseCase struct {
	docs    ports.DocumentRepository
	queries ports.QueryStore
	catalog *catalog.Catalog
}

func NewStatusUseCase(docs ports.DocumentRepository, queries ports.QueryStore, cat *catalog.Catalog) *StatusUseCase {
	return &StatusUseCase{docs: docs, queries: queries, catalog: cat}
}

// Status returns the polling snapshot: the latest state per question
// identifier (classification rows excluded) and the overall completion flag.
// A document whose type has no configured questions is vacuously complete.
func (uc *StatusUseCase) Status(ctx context.Context, documentID string) (*ports.DocumentStatusView, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	rows, err := uc.queries.LatestPerIdentifier(ctx, documentID, domain.ClassificationIdentifier)
	if err != nil {
		return nil, fmt.Errorf("latest queries per identifier: %w", err)
	}

	view := &ports.DocumentStatusView{
		IsProcessed:    doc.IsExtracted(),
		ClassifiedType: doc.ClassifiedType,
		Questions:      make([]domain.QuestionStatus, 0, len(rows)),
		AllComplete:    true,
	}
	for _, row := range rows {
		view.Questions = append(view.Questions, domain.QuestionStatus{
			Identifier:  row.Identifier,
			Status:      row.Status,
			IsValidated: row.IsValidated,
		})
		if !row.Status.Terminal() {
			view.AllComplete = false
		}
	}
	return view, nil
}

// Answers joins the latest COMPLETE row per identifier with the catalog's
// display labels. Identifiers that were never completed are omitted, not
// zero-filled. A pending or failed re-run never hides an earlier completed
// answer; the previous result stays current until a newer COMPLETE row
// replaces it.
func (uc *StatusUseCase) Answers(ctx context.Context, documentID string) (*ports.DocumentAnswers, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}

	rows, err := uc.queries.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}

	// Rows come back ascending by creation time, so the last COMPLETE row
	// per identifier wins.
	answers := make(map[string]domain.Answer)
	for _, row := range rows {
		if row.Identifier == domain.ClassificationIdentifier || row.Status != domain.QueryComplete {
			continue
		}
		answers[row.Identifier] = domain.Answer{
			Value: row.Result,
			Label: uc.catalog.QuestionLabel(doc.ClassifiedType, row.Identifier),
		}
	}
	return &ports.DocumentAnswers{
		ClassifiedType: doc.ClassifiedType,
		Answers:        answers,
	}, nil
}

// History returns the full non-deleted query history in creation order, for
// the audit activity view.
func (uc *StatusUseCase) History(ctx context.Context, documentID string) ([]domain.Query, error) {
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	rows, err := uc.queries.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return rows, nil
}
