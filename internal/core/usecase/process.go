package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

// ProcessDocumentUseCase orchestrates the pipeline for one document: resolve
// content, classify, then run the configured questions. Classification must
// complete and be persisted before questions run, because question-set
// selection depends on the classified type. Documents never interact with
// each other; two documents may be processed fully in parallel.
type ProcessDocumentUseCase struct {
	docs       ports.DocumentRepository
	resolver   ports.ContentResolver
	classifier ports.DocumentClassifier
	questions  ports.QuestionRunner
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	resolver ports.ContentResolver,
	classifier ports.DocumentClassifier,
	questions ports.QuestionRunner,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		docs:       docs,
		resolver:   resolver,
		classifier: classifier,
		questions:  questions,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.runPipeline(ctx, documentID); err != nil {
		if failErr := uc.markStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) runPipeline(ctx context.Context, documentID string) error {
	if err := uc.ensureExtracted(ctx, documentID); err != nil {
		return err
	}

	label, err := uc.classifier.Classify(ctx, documentID)
	if err != nil {
		return fmt.Errorf("classify document: %w", err)
	}

	count, failures, err := uc.questions.RunAll(ctx, documentID)
	if err != nil {
		return fmt.Errorf("run questions: %w", err)
	}

	// Per-question failures are isolated outcomes, not pipeline faults: the
	// document still becomes ready and the failed identifiers stay visible
	// in the status view for re-triggering.
	for _, failure := range failures {
		slog.Error("question_failed",
			"document_id", documentID,
			"identifier", failure.Identifier,
			"error", failure.Err,
		)
	}
	slog.Info("document_processed",
		"document_id", documentID,
		"classified_type", label,
		"questions", count,
		"failed", len(failures),
	)
	return nil
}

// ensureExtracted resolves plaintext content on first touch and persists it,
// so re-runs (which only append new query rows) skip extraction.
func (uc *ProcessDocumentUseCase) ensureExtracted(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.IsExtracted() {
		return nil
	}

	text, err := uc.resolver.Resolve(ctx, doc)
	if err != nil {
		return fmt.Errorf("resolve content: %w", err)
	}
	if text == "" {
		return domain.WrapError(domain.ErrMissingContent, "resolve content", fmt.Errorf("empty content for %s", doc.Filename))
	}
	if err := uc.docs.SaveExtracted(ctx, documentID, text); err != nil {
		return fmt.Errorf("save extracted content: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.docs.UpdateStatus(ctx, documentID, status, errMessage)
}
