package models

import (
	"database/sql"
	"time"
)

// User is a row of the users table. Oracle returns upper-case column names.
type User struct {
	ID           string         `db:"ID"`
	Email        string         `db:"EMAIL"`
	Name         sql.NullString `db:"NAME"`
	TotalCredits int            `db:"TOTAL_CREDITS"`
	CreatedAt    time.Time      `db:"CREATED_AT"`
	UpdatedAt    time.Time      `db:"UPDATED_AT"`
}
