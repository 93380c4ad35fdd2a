// Command seed inserts development users and courses and prints a bearer
// token for each user.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"glauk-api/cmd/seed/internal/seedmodels"
	"glauk-api/internal/config"
	"glauk-api/internal/database"
	"glauk-api/internal/logger"
	"glauk-api/internal/repository"
	"glauk-api/internal/service"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const defaultSeedFile = "configs/seed_data/dev_users.json"

func main() {
	seedFile := flag.String("file", defaultSeedFile, "seed data file")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed tokens")
	flag.Parse()

	ctx := context.Background()
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
	log := logger.Get()

	raw, err := os.ReadFile(*seedFile)
	if err != nil {
		log.Fatal("Failed to read seed file", zap.String("path", *seedFile), zap.Error(err))
	}
	var users []seedmodels.SeedUser
	if err := json.Unmarshal(raw, &users); err != nil {
		log.Fatal("Failed to unmarshal seed data", zap.Error(err))
	}

	db, err := database.NewSQLXOracleDB(cfg.GetDSN())
	if err != nil {
		log.Fatal("Failed to connect to Oracle database", zap.Error(err))
	}
	defer db.Close()

	auth, err := service.NewAuthService(cfg.JWT.SecretKey, log)
	if err != nil {
		log.Fatal("Failed to create AuthService", zap.Error(err))
	}

	for _, su := range users {
		if err := seedUser(ctx, db, auth, log, su, *tokenTTL); err != nil {
			log.Error("Error seeding user, transaction rolled back", zap.String("email", su.Email), zap.Error(err))
		}
	}
	log.Info("Seeding completed", zap.Int("users", len(users)))
}

func seedUser(ctx context.Context, db *sqlx.DB, auth service.AuthService, log *zap.Logger, su seedmodels.SeedUser, ttl time.Duration) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", su.Email, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("Failed to rollback transaction", zap.Error(rbErr))
			}
			return
		}
		err = tx.Commit()
	}()

	seeder := repository.NewSeeder(tx)
	user, err := seeder.EnsureUser(ctx, su.Email, su.Name, su.Credits)
	if err != nil {
		return err
	}
	for _, sc := range su.Courses {
		course, err := seeder.EnsureCourse(ctx, user.ID, sc.Name)
		if err != nil {
			return err
		}
		fmt.Printf("course  %-24s %s (%s)\n", su.Email, course.ID, course.Name)
	}

	token, err := auth.CreateJWT(ctx, user.ID, user.Email, ttl)
	if err != nil {
		return err
	}
	fmt.Printf("token   %-24s %s\n", user.Email, token)
	return nil
}
