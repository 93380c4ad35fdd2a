// Package repository persists users, courses, slides and questions over sqlx.
// Queries use Oracle positional binds (:1, :2, ...).
package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

var (
	_ DBTX = (*sqlx.DB)(nil)
	_ DBTX = (*sqlx.Tx)(nil)
)
