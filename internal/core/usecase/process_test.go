package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/auditstack/docuquery/internal/core/domain"
)

type resolverFake struct {
	text  string
	err   error
	calls int
}

func (f *resolverFake) Resolve(_ context.Context, _ *domain.Document) (string, error) {
	f.calls++
	return f.text, f.err
}

type classifierFake struct {
	label string
	err   error
	calls int
}

func (f *classifierFake) Classify(context.Context, string) (string, error) {
	f.calls++
	return f.label, f.err
}

type questionRunnerFake struct {
	count    int
	failures []domain.QuestionFailure
	err      error
	calls    int
}

func (f *questionRunnerFake) RunAll(context.Context, string) (int, []domain.QuestionFailure, error) {
	f.calls++
	return f.count, f.failures, f.err
}

func processDoc() *domain.Document {
	return &domain.Document{
		ID:          "doc-1",
		Filename:    "articles.pdf",
		StoragePath: "doc-1_articles.pdf",
		Status:      domain.StatusUploaded,
	}
}

func TestProcessHappyPathStatusSequence(t *testing.T) {
	repo := &docRepoFake{doc: processDoc()}
	resolver := &resolverFake{text: "extracted text"}
	classifier := &classifierFake{label: "ARTICLES_OF_INCORPORATION"}
	runner := &questionRunnerFake{count: 4}
	uc := NewProcessDocumentUseCase(repo, resolver, classifier, runner)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	want := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusReady}
	if len(repo.statusCalls) != len(want) {
		t.Fatalf("expected %d status updates, got %v", len(want), repo.statusCalls)
	}
	for i, status := range want {
		if repo.statusCalls[i] != status {
			t.Fatalf("status update %d: expected %s, got %s", i, status, repo.statusCalls[i])
		}
	}
	if classifier.calls != 1 || runner.calls != 1 {
		t.Fatalf("expected classify then questions, got classify=%d questions=%d", classifier.calls, runner.calls)
	}
}

func TestProcessClassificationErrorFailsDocument(t *testing.T) {
	repo := &docRepoFake{doc: processDoc()}
	resolver := &resolverFake{text: "extracted text"}
	classifier := &classifierFake{err: errors.New("model unreachable")}
	runner := &questionRunnerFake{}
	uc := NewProcessDocumentUseCase(repo, resolver, classifier, runner)

	err := uc.ProcessByID(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if runner.calls != 0 {
		t.Fatalf("questions must not run after classification failure")
	}
	last := repo.statusCalls[len(repo.statusCalls)-1]
	if last != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", last)
	}
	if !strings.Contains(repo.doc.Error, "model unreachable") {
		t.Fatalf("expected error message persisted, got %q", repo.doc.Error)
	}
}

func TestProcessQuestionFailuresDoNotFailDocument(t *testing.T) {
	repo := &docRepoFake{doc: processDoc()}
	resolver := &resolverFake{text: "extracted text"}
	classifier := &classifierFake{label: "TRIAL_BALANCE"}
	runner := &questionRunnerFake{count: 2, failures: []domain.QuestionFailure{
		{Identifier: "periodEndDate", Err: errors.New("connection reset")},
	}}
	uc := NewProcessDocumentUseCase(repo, resolver, classifier, runner)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if repo.doc.Status != domain.StatusReady {
		t.Fatalf("expected ready despite question failures, got %s", repo.doc.Status)
	}
}

func TestProcessExtractsOnFirstTouchOnly(t *testing.T) {
	repo := &docRepoFake{doc: processDoc()}
	resolver := &resolverFake{text: "extracted text"}
	classifier := &classifierFake{label: "TRIAL_BALANCE"}
	runner := &questionRunnerFake{}
	uc := NewProcessDocumentUseCase(repo, resolver, classifier, runner)

	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected 1 resolve, got %d", resolver.calls)
	}
	if repo.extractedSaved != "extracted text" {
		t.Fatalf("expected extracted content saved, got %q", repo.extractedSaved)
	}

	// Re-run: content is already persisted, extraction is skipped.
	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("ProcessByID() second run error = %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected extraction skipped on re-run, got %d resolves", resolver.calls)
	}
}

func TestProcessEmptyContentFails(t *testing.T) {
	repo := &docRepoFake{doc: processDoc()}
	resolver := &resolverFake{text: ""}
	uc := NewProcessDocumentUseCase(repo, resolver, &classifierFake{}, &questionRunnerFake{})

	err := uc.ProcessByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrMissingContent) {
		t.Fatalf("expected missing content error, got %v", err)
	}
	if repo.doc.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.doc.Status)
	}
}
