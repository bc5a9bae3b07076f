package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/auditstack/docuquery/internal/core/domain"
)

// queryStoreFake is an in-memory QueryStore with the same append-only
// semantics as the Postgres repository: rows are finalized at most once and
// "latest" ranks by created_at, with insertion order breaking ties.
type queryStoreFake struct {
	mu   sync.Mutex
	rows []*domain.Query

	createErr    error
	completeErr  error
	failErr      error
	getErr       error
	getCurrentFn func(documentID, identifier string) (*domain.Query, error)
}

func (f *queryStoreFake) Create(_ context.Context, query *domain.Query) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyQuery := *query
	f.rows = append(f.rows, &copyQuery)
	return nil
}

func (f *queryStoreFake) Complete(_ context.Context, id string, completion domain.QueryCompletion) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.pendingLocked(id)
	if row == nil {
		return domain.WrapError(domain.ErrQueryNotFound, "finalize query", errors.New(id))
	}
	row.Status = domain.QueryComplete
	row.Result = completion.Result
	row.IsValidated = completion.IsValidated
	row.Usage = completion.Usage
	if completion.Model != "" {
		row.Model = completion.Model
	}
	return nil
}

func (f *queryStoreFake) Fail(_ context.Context, id string, cause string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := f.pendingLocked(id)
	if row == nil {
		return domain.WrapError(domain.ErrQueryNotFound, "finalize query", errors.New(id))
	}
	row.Status = domain.QueryFailed
	row.Result = &cause
	return nil
}

func (f *queryStoreFake) pendingLocked(id string) *domain.Query {
	for _, row := range f.rows {
		if row.ID == id && !row.IsDeleted && row.Status == domain.QueryPending {
			return row
		}
	}
	return nil
}

func (f *queryStoreFake) GetCurrent(_ context.Context, documentID, identifier string) (*domain.Query, error) {
	if f.getCurrentFn != nil {
		return f.getCurrentFn(documentID, identifier)
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *domain.Query
	for _, row := range f.rows {
		if row.DocumentID != documentID || row.Identifier != identifier || row.IsDeleted {
			continue
		}
		if latest == nil || !row.CreatedAt.Before(latest.CreatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	copyRow := *latest
	return &copyRow, nil
}

func (f *queryStoreFake) ListByDocument(_ context.Context, documentID string) ([]domain.Query, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Query
	for _, row := range f.rows {
		if row.DocumentID == documentID && !row.IsDeleted {
			out = append(out, *row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *queryStoreFake) LatestPerIdentifier(_ context.Context, documentID string, exclude ...string) ([]domain.Query, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	excluded := make(map[string]bool, len(exclude))
	for _, identifier := range exclude {
		excluded[identifier] = true
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	latest := make(map[string]*domain.Query)
	var order []string
	for _, row := range f.rows {
		if row.DocumentID != documentID || row.IsDeleted || excluded[row.Identifier] {
			continue
		}
		current, seen := latest[row.Identifier]
		if !seen {
			order = append(order, row.Identifier)
			latest[row.Identifier] = row
			continue
		}
		if !row.CreatedAt.Before(current.CreatedAt) {
			latest[row.Identifier] = row
		}
	}

	out := make([]domain.Query, 0, len(order))
	for _, identifier := range order {
		out = append(out, *latest[identifier])
	}
	return out, nil
}

func (f *queryStoreFake) SoftDelete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id && !row.IsDeleted {
			row.IsDeleted = true
			return nil
		}
	}
	return domain.WrapError(domain.ErrQueryNotFound, "soft delete query", errors.New(id))
}

func (f *queryStoreFake) byIdentifier(identifier string) []*domain.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Query
	for _, row := range f.rows {
		if row.Identifier == identifier {
			out = append(out, row)
		}
	}
	return out
}

type docRepoFake struct {
	mu  sync.Mutex
	doc *domain.Document

	getErr error

	statusCalls    []domain.DocumentStatus
	classifiedType string
	extractedSaved string
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	copyDoc := *doc
	f.doc = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyDoc := *f.doc
	return &copyDoc, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	f.doc.Status = status
	f.doc.Error = errMessage
	return nil
}

func (f *docRepoFake) SaveClassifiedType(_ context.Context, _ string, classifiedType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifiedType = classifiedType
	f.doc.ClassifiedType = classifiedType
	return nil
}

func (f *docRepoFake) SaveExtracted(_ context.Context, _ string, extracted string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extractedSaved = extracted
	f.doc.Extracted = extracted
	return nil
}

// chatFake answers from a scripted queue, or via fn when per-prompt behavior
// is needed.
type chatFake struct {
	mu        sync.Mutex
	calls     int
	responses []string
	err       error
	fn        func(messages []domain.Message, model string) (domain.ChatResult, error)
}

func (f *chatFake) Chat(_ context.Context, messages []domain.Message, model string) (domain.ChatResult, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	err := f.err
	var answer string
	if fn == nil && err == nil {
		if len(f.responses) == 0 {
			f.mu.Unlock()
			return domain.ChatResult{}, errors.New("chatFake: no scripted response")
		}
		answer = f.responses[0]
		f.responses = f.responses[1:]
	}
	f.mu.Unlock()

	if fn != nil {
		return fn(messages, model)
	}
	if err != nil {
		return domain.ChatResult{}, err
	}
	return domain.ChatResult{
		Message: answer,
		Model:   model,
		Usage:   domain.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

type telemetryFake struct {
	mu          sync.Mutex
	finalized   map[domain.QueryStatus]int
	escalations int
	misses      []string
}

func newTelemetryFake() *telemetryFake {
	return &telemetryFake{finalized: make(map[domain.QueryStatus]int)}
}

func (f *telemetryFake) QueryFinalized(status domain.QueryStatus, _ string, _ *domain.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized[status]++
}

func (f *telemetryFake) ClassificationEscalated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.escalations++
}

func (f *telemetryFake) ValidationMiss(identifier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.misses = append(f.misses, identifier)
}
