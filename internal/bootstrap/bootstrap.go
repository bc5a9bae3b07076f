package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/auditstack/docuquery/internal/catalog"
	"github.com/auditstack/docuquery/internal/config"
	"github.com/auditstack/docuquery/internal/core/ports"
	"github.com/auditstack/docuquery/internal/core/usecase"
	"github.com/auditstack/docuquery/internal/infrastructure/extractor"
	"github.com/auditstack/docuquery/internal/infrastructure/llm/openai"
	"github.com/auditstack/docuquery/internal/infrastructure/queue/nats"
	"github.com/auditstack/docuquery/internal/infrastructure/repository/postgres"
	"github.com/auditstack/docuquery/internal/infrastructure/resilience"
	"github.com/auditstack/docuquery/internal/infrastructure/storage/localfs"
)

type App struct {
	Config  config.Config
	Catalog *catalog.Catalog

	Queue   ports.MessageQueue
	Docs    ports.DocumentRepository
	Queries ports.QueryStore

	IngestUC   ports.DocumentIngestor
	ProcessUC  ports.DocumentProcessor
	Classifier ports.DocumentClassifier
	Questions  ports.QuestionRunner
	Status     ports.StatusReader
	Poller     ports.AnswerPoller

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, telemetry ports.PipelineTelemetry) (*App, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	queries := postgres.NewQueryRepository(db)
	if err := queries.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure queries schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openai.New(cfg.LLMBaseURL, cfg.LLMAPIKey, executor)
	resolver := extractor.New(storage)

	classifyUC := usecase.NewClassifyDocumentUseCase(docs, queries, llm, cat, cfg.LLMDefaultModel, cfg.LLMStrongModel, telemetry)
	questionsUC := usecase.NewRunQuestionsUseCase(docs, queries, llm, cat, cfg.LLMDefaultModel, telemetry)
	statusUC := usecase.NewStatusUseCase(docs, queries, cat)
	pollUC := usecase.NewPollAnswerUseCase(queries, time.Duration(cfg.PollIntervalMS)*time.Millisecond, cfg.PollMaxAttempts)
	ingestUC := usecase.NewIngestDocumentUseCase(docs, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docs, resolver, classifyUC, questionsUC)

	return &App{
		Config:  cfg,
		Catalog: cat,

		Queue:   queue,
		Docs:    docs,
		Queries: queries,

		IngestUC:   ingestUC,
		ProcessUC:  processUC,
		Classifier: classifyUC,
		Questions:  questionsUC,
		Status:     statusUC,
		Poller:     pollUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
