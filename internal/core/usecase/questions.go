package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/auditstack/docuquery/internal/catalog"
	"github.com/auditstack/docuquery/internal/core/domain"
	"github.com/auditstack/docuquery/internal/core/ports"
)

type RunQuestionsUseCase struct {
	docs         ports.DocumentRepository
	queries      ports.QueryStore
	llm          ports.ChatModel
	catalog      *catalog.Catalog
	defaultModel string
	telemetry    ports.PipelineTelemetry
}

func NewRunQuestionsUseCase(
	docs ports.DocumentRepository,
	queries ports.QueryStore,
	llm ports.ChatModel,
	cat *catalog.Catalog,
	defaultModel string,
	telemetry ports.PipelineTelemetry,
) *RunQuestionsUseCase {
	return &RunQuestionsUseCase{
		docs:         docs,
		queries:      queries,
		llm:          llm,
		catalog:      cat,
		defaultModel: defaultModel,
		telemetry:    telemetry,
	}
}

// RunAll executes every configured question for the document's classified
// type concurrently and waits for all of them. The returned count is the
// number of questions attempted; per-question failures are collected, never
// raised, so one question can never abort its siblings. A type with no
// configured questions yields (0, nil, nil).
func (uc *RunQuestionsUseCase) RunAll(ctx context.Context, documentID string) (int, []domain.QuestionFailure, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return 0, nil, fmt.Errorf("fetch document by id: %w", err)
	}
	if !doc.IsExtracted() {
		return 0, nil, domain.WrapError(domain.ErrMissingContent, "run questions", errors.New(doc.ID))
	}

	questions := uc.catalog.Questions(doc.ClassifiedType)
	if len(questions) == 0 {
		return 0, nil, nil
	}

	var (
		mu       sync.Mutex
		failures []domain.QuestionFailure
	)
	group := new(errgroup.Group)
	for _, question := range questions {
		group.Go(func() error {
			if err := uc.runOne(ctx, doc, question); err != nil {
				mu.Lock()
				failures = append(failures, domain.QuestionFailure{Identifier: question.Identifier, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	// Join everything: the group never carries errors, so Wait cannot
	// short-circuit a sibling question.
	_ = group.Wait()

	return len(questions), failures, nil
}

func (uc *RunQuestionsUseCase) runOne(ctx context.Context, doc *domain.Document, question catalog.Question) error {
	content := doc.Extracted
	if question.PreProcess != nil {
		content = question.PreProcess(content)
	}

	model := question.Model
	if model == "" {
		model = uc.defaultModel
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: question.Prompt},
		{Role: domain.RoleUser, Content: fmt.Sprintf("\"\"\"%s\"\"\"", content)},
	}

	query := &domain.Query{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Identifier: question.Identifier,
		Model:      model,
		Prompt:     messages,
		Status:     domain.QueryPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := uc.queries.Create(ctx, query); err != nil {
		return fmt.Errorf("create query: %w", err)
	}

	resp, err := uc.llm.Chat(ctx, messages, model)
	if err != nil {
		if failErr := uc.queries.Fail(ctx, query.ID, err.Error()); failErr != nil {
			slog.Error("query_fail_mark", "query_id", query.ID, "error", failErr)
		}
		if uc.telemetry != nil {
			uc.telemetry.QueryFinalized(domain.QueryFailed, model, nil)
		}
		return fmt.Errorf("question call: %w", err)
	}

	result, isValidated, validatorErr := uc.validate(doc, question, resp.Message)

	completion := domain.QueryCompletion{
		Model:       resp.Model,
		Result:      result,
		IsValidated: isValidated,
		Usage:       &resp.Usage,
	}
	if err := uc.queries.Complete(ctx, query.ID, completion); err != nil {
		return fmt.Errorf("finalize query: %w", err)
	}
	if uc.telemetry != nil {
		uc.telemetry.QueryFinalized(domain.QueryComplete, resp.Model, &resp.Usage)
	}
	return validatorErr
}

// validate applies the question's validator to the raw answer. A validation
// miss is a normal outcome: the row is still finalized, with no result and
// isValidated=false. A panicking validator is a configuration fault; the row
// is finalized the same way and the panic is surfaced as a failure.
func (uc *RunQuestionsUseCase) validate(doc *domain.Document, question catalog.Question, raw string) (result *string, isValidated bool, err error) {
	if question.Validate == nil {
		return &raw, false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			result, isValidated = nil, false
			err = fmt.Errorf("validator panic for %q: %v", question.Identifier, r)
		}
	}()

	value, validateErr := question.Validate(raw)
	if validateErr != nil {
		slog.Warn("validation_miss",
			"document_id", doc.ID,
			"identifier", question.Identifier,
			"error", validateErr,
		)
		if uc.telemetry != nil {
			uc.telemetry.ValidationMiss(question.Identifier)
		}
		return nil, false, nil
	}
	return &value, true, nil
}
