// Package database opens the Oracle connection and applies schema migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"glauk-api/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // registers the "oracle" driver
	"go.uber.org/zap"
)

const pingTimeout = 10 * time.Second

func init() {
	// go-ora registers as "oracle", which sqlx does not know; named queries keep :name binds.
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

func NewSQLXOracleDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("oracle", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open Oracle database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping Oracle database: %w", err)
	}

	logger.Get().Info("Connected to Oracle database")
	return db, nil
}

// Configure applies pool limits. Zero values leave the driver defaults.
func Configure(db *sqlx.DB, maxOpen, maxIdle int, maxLifetime time.Duration) {
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		db.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime > 0 {
		db.SetConnMaxLifetime(maxLifetime)
	}
	logger.Get().Debug("Database pool configured",
		zap.Int("max_open", maxOpen),
		zap.Int("max_idle", maxIdle),
		zap.Duration("max_lifetime", maxLifetime))
}
