package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"dream-agent/handler"
	"dream-agent/internal/app"
	"dream-agent/internal/config"
	"dream-agent/internal/observability"
)

func main() {
	slog.SetDefault(observability.Logger())
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	// Only /tmp is writable inside Lambda.
	if os.Getenv("MEMORY_PATH") == "" {
		cfg.Store.MemoryPath = "/tmp/memoria_agente.json"
	}
	if cfg.Store.OutputDir == "" {
		cfg.Store.OutputDir = "/tmp"
	}

	// ---- Services ----
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to build services", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(handler.Deps{
		Sessions: a.Sessions,
		Media:    a.Media,
		Auth:     a.Auth,
		Store:    a.Store,
	})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
