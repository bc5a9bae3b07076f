package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/auditstack/docuquery/internal/catalog"
	"github.com/auditstack/docuquery/internal/core/domain"
)

func classifyCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.TypeLabel{
		{Label: "TRIAL_BALANCE", Hint: "Trial balance"},
		{Label: "STOCK_PLAN", Hint: "Stock plan"},
		{Label: "BYLAWS", Hint: "Bylaws", Ignore: true},
	}, nil)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return cat
}

func classifyDoc() *domain.Document {
	return &domain.Document{
		ID:        "doc-1",
		Filename:  "tb_2025.xlsx",
		Extracted: "Account,Debit,Credit\n1000,Cash,5000",
	}
}

func newClassifyUC(repo *docRepoFake, store *queryStoreFake, chat *chatFake, cat *catalog.Catalog, telemetry *telemetryFake) *ClassifyDocumentUseCase {
	return NewClassifyDocumentUseCase(repo, store, chat, cat, "model-default", "model-strong", telemetry)
}

func TestClassifyAcceptsValidLabelFirstTry(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{responses: []string{"TRIAL_BALANCE"}}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	label, err := uc.Classify(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != "TRIAL_BALANCE" {
		t.Fatalf("expected TRIAL_BALANCE, got %s", label)
	}
	if chat.calls != 1 {
		t.Fatalf("expected 1 model call, got %d", chat.calls)
	}
	if repo.classifiedType != "TRIAL_BALANCE" {
		t.Fatalf("expected classified type persisted, got %q", repo.classifiedType)
	}

	rows := store.byIdentifier(domain.ClassificationIdentifier)
	if len(rows) != 1 {
		t.Fatalf("expected 1 classification row, got %d", len(rows))
	}
	if rows[0].Status != domain.QueryComplete || !rows[0].IsValidated {
		t.Fatalf("expected validated complete row, got %+v", rows[0])
	}
}

func TestClassifyEscalatesOnUnknownThenAcceptsValid(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{responses: []string{"UNKNOWN", "STOCK_PLAN"}}
	telemetry := newTelemetryFake()
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), telemetry)

	label, err := uc.Classify(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != "STOCK_PLAN" {
		t.Fatalf("expected STOCK_PLAN, got %s", label)
	}
	if chat.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", chat.calls)
	}
	if telemetry.escalations != 1 {
		t.Fatalf("expected 1 escalation, got %d", telemetry.escalations)
	}
	if rows := store.byIdentifier(domain.ClassificationIdentifier); len(rows) != 2 {
		t.Fatalf("expected both attempts recorded, got %d rows", len(rows))
	}
}

func TestClassifyAcceptsUnknownAfterEscalation(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{responses: []string{"UNKNOWN", "UNKNOWN"}}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	label, err := uc.Classify(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != domain.LabelUnknown {
		t.Fatalf("expected UNKNOWN to stand, got %s", label)
	}
	if repo.classifiedType != domain.LabelUnknown {
		t.Fatalf("expected UNKNOWN persisted, got %q", repo.classifiedType)
	}
	if chat.calls != 2 {
		t.Fatalf("expected exactly 2 model calls, got %d", chat.calls)
	}
}

func TestClassifyInvalidLabelTwiceFails(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{responses: []string{"GIBBERISH", "NONSENSE"}}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	_, err := uc.Classify(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("expected classification error kind, got %v", err)
	}
	if repo.classifiedType != "" {
		t.Fatalf("expected no classified type persisted, got %q", repo.classifiedType)
	}

	// Both attempts stay in the audit trail as completed, unvalidated rows.
	rows := store.byIdentifier(domain.ClassificationIdentifier)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Status != domain.QueryComplete || row.IsValidated {
			t.Fatalf("expected complete unvalidated row, got %+v", row)
		}
	}
}

func TestClassifyNormalizesNoisyAnswer(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{responses: []string{`"stock_plan" (it lists a vesting schedule and exercise prices)`}}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	label, err := uc.Classify(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if label != "STOCK_PLAN" {
		t.Fatalf("expected STOCK_PLAN, got %s", label)
	}
}

func TestClassifyMissingContent(t *testing.T) {
	doc := classifyDoc()
	doc.Extracted = ""
	repo := &docRepoFake{doc: doc}
	store := &queryStoreFake{}
	chat := &chatFake{}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	_, err := uc.Classify(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrMissingContent) {
		t.Fatalf("expected missing content error, got %v", err)
	}
	if chat.calls != 0 {
		t.Fatalf("expected no model calls, got %d", chat.calls)
	}
	if len(store.byIdentifier(domain.ClassificationIdentifier)) != 0 {
		t.Fatalf("expected no audit rows")
	}
}

func TestClassifyTransportErrorFailsRow(t *testing.T) {
	repo := &docRepoFake{doc: classifyDoc()}
	store := &queryStoreFake{}
	chat := &chatFake{err: errors.New("connection refused")}
	uc := newClassifyUC(repo, store, chat, classifyCatalog(t), newTelemetryFake())

	_, err := uc.Classify(context.Background(), "doc-1")
	if err == nil {
		t.Fatalf("expected error")
	}

	rows := store.byIdentifier(domain.ClassificationIdentifier)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != domain.QueryFailed {
		t.Fatalf("expected FAILED row, got %s", rows[0].Status)
	}
	if rows[0].Result == nil || *rows[0].Result == "" {
		t.Fatalf("expected failure cause recorded")
	}
}
