// Command worker runs the quiz job pool without the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"glauk-api/internal/bootstrap"
	"glauk-api/internal/config"
	"glauk-api/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Initialize(cfg.Logger); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get().With(zap.String("process", "worker"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize core components", zap.Error(err))
	}
	defer core.Close()

	pool, err := bootstrap.NewWorkerPool(cfg, core, log)
	if err != nil {
		log.Fatal("Failed to initialize worker pool", zap.Error(err))
	}

	if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Worker pool exited with error", zap.Error(err))
	}
	log.Info("Worker exited")
}
