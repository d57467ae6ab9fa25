package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"autotrade_go/internal/cli"
)

func main() {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("❌ Command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
