package main

import (
	"context"
	"flag"
	"log"

	"glauk-api/internal/config"
	"glauk-api/internal/database"
	"glauk-api/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dir := flag.String("dir", cfg.DB.MigrationsDir, "directory holding *.up.sql files")
	flag.Parse()

	if err := logger.Initialize(cfg.Logger); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	l := logger.Get()
	defer l.Sync()

	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		l.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db, *dir); err != nil {
		l.Fatal("Failed to run migrations", zap.Error(err), zap.String("dir", *dir))
	}
	l.Info("Migrations applied", zap.String("dir", *dir))
}
