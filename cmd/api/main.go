// @title Glauk API
// @version 1.0
// @description Turns uploaded course documents into quizzes through a background generation pipeline.
// @host localhost:8090
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
// @description Type 'Bearer YOUR_JWT_TOKEN' to authorize.

//go:generate swag init --dir ../../ --generalInfo cmd/api/main.go --output ./docs --parseInternal
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "glauk-api/cmd/api/docs"
	"glauk-api/internal/bootstrap"
	"glauk-api/internal/config"
	"glauk-api/internal/database"
	"glauk-api/internal/handler"
	"glauk-api/internal/logger"
	"glauk-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize core components", zap.Error(err))
	}
	defer core.Close()

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := database.RunMigrations(ctx, core.DB, cfg.DB.MigrationsDir); err != nil {
			appLogger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	processService, err := bootstrap.NewQuizProcessService(ctx, cfg, core, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize quiz process service", zap.Error(err))
	}

	authService, err := service.NewAuthService(cfg.JWT.SecretKey, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create AuthService", zap.Error(err))
	}
	appLogger.Info("AuthService initialized")

	app := handler.NewApp(handler.AppOptions{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    cfg.Server.BodyLimitMB << 20,
	}, authService, handler.NewQuizHandler(processService), handler.NewHealthHandler(core.Cache))

	// Embedded workers share the process context and stop with it.
	poolDone := make(chan error, 1)
	if cfg.Worker.Embedded {
		pool, err := bootstrap.NewWorkerPool(cfg, core, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize worker pool", zap.Error(err))
		}
		go func() { poolDone <- pool.Run(ctx) }()
	} else {
		close(poolDone)
	}

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	select {
	case err := <-poolDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Worker pool exited with error", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker pool did not stop in time")
	}
	appLogger.Info("Server exited gracefully")
}
