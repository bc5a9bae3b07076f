package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auditstack/docuquery/internal/bootstrap"
	"github.com/auditstack/docuquery/internal/config"
	"github.com/auditstack/docuquery/internal/observability/logging"
	"github.com/auditstack/docuquery/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.SetDefault("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewPipelineMetrics("worker")

	app, err := bootstrap.New(ctx, cfg, workerMetrics)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux(workerMetrics),
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		if doc, lookupErr := app.Docs.GetByID(handlerCtx, documentID); lookupErr == nil {
			workerMetrics.ObserveQueueLag(time.Since(doc.CreatedAt))
		}

		workerMetrics.StartDocument()
		start := time.Now()

		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		processErr := app.ProcessUC.ProcessByID(processCtx, documentID)

		workerMetrics.FinishDocument(time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func metricsMux(m *metrics.PipelineMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
