package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/admin/loventia/discover/internal/app"
)

const appName = "loventia-discover"

func main() {
	cfg, err := app.NewEnvConfig("loventia")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(appName, cfg).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("discover service stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
}
