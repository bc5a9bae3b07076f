package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/auditstack/docuquery/internal/adapters/mcp"
	"github.com/auditstack/docuquery/internal/bootstrap"
	"github.com/auditstack/docuquery/internal/config"
	"github.com/auditstack/docuquery/internal/observability/logging"
)

// MCP transport is stdio: the process is spawned by the agent client and
// speaks the protocol over stdin/stdout. Logs go to stderr to keep the
// protocol stream clean.
func main() {
	cfg := config.Load()
	logging.SetDefaultTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mcpServer := mcpadapter.NewServer(mcpadapter.Deps{
		Status: app.Status,
		Poller: app.Poller,
	})

	stdioServer := server.NewStdioServer(mcpServer)
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("mcp stdio server error: %v", err)
	}
}
