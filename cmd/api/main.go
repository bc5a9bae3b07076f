package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"

	httpadapter "github.com/auditstack/docuquery/internal/adapters/http"
	"github.com/auditstack/docuquery/internal/bootstrap"
	"github.com/auditstack/docuquery/internal/config"
	"github.com/auditstack/docuquery/internal/observability/logging"
	"github.com/auditstack/docuquery/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logging.SetDefault("api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipelineMetrics := metrics.NewPipelineMetrics("api")
	httpMetrics := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.New(ctx, cfg, pipelineMetrics)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(
		app.IngestUC,
		app.Classifier,
		app.Questions,
		app.Status,
		app.Docs,
		httpadapter.RouterConfig{
			TriggerRPS:    float64(cfg.APIRateLimitRPS),
			TriggerBurst:  cfg.APIRateLimitBurst,
			MaxConcurrent: cfg.APIMaxConcurrent,
		},
	)
	if err != nil {
		log.Fatalf("router error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.CombinedHandler(httpMetrics.Gatherer(), pipelineMetrics.Gatherer()))
	mux.Handle("/", httpMetrics.Middleware("api", router.Handler()))

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatalf("api listen error: %v", err)
	}
	if cfg.APIMaxConnections > 0 {
		listener = netutil.LimitListener(listener, cfg.APIMaxConnections)
	}

	go func() {
		log.Printf("api listening on :%s", cfg.APIPort)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("api shutdown error: %v", err)
	}
}
