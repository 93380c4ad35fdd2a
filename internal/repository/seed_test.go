package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeeder_EnsureUser(t *testing.T) {
	db, mock := setupTestDB(t)
	seeder := NewSeeder(db)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	seeder.now = func() time.Time { return fixed }

	mock.ExpectQuery(`FROM users WHERE email = :1`).WithArgs("dev@glauk.test").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users \(id, email, name, total_credits, created_at, updated_at\)`).
		WithArgs(sqlmock.AnyArg(), "dev@glauk.test", "Dev", 50, fixed, fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := seeder.EnsureUser(context.Background(), "dev@glauk.test", "Dev", 50)
	require.NoError(t, err)
	assert.Len(t, user.ID, 26)
	assert.Equal(t, 50, user.TotalCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeeder_EnsureUserExisting(t *testing.T) {
	db, mock := setupTestDB(t)
	now := time.Now()
	mock.ExpectQuery(`FROM users WHERE email = :1`).
		WithArgs("dev@glauk.test").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "dev@glauk.test", "Dev", 3, now, now))

	user, err := NewSeeder(db).EnsureUser(context.Background(), "dev@glauk.test", "Dev", 50)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, 3, user.TotalCredits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeeder_EnsureCourse(t *testing.T) {
	db, mock := setupTestDB(t)
	seeder := NewSeeder(db)

	mock.ExpectQuery(`FROM courses WHERE user_id = :1 AND name = :2`).
		WithArgs("u1", "Cell Biology").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "USER_ID", "NAME", "CREATED_AT"}))
	mock.ExpectExec(`INSERT INTO courses`).
		WithArgs(sqlmock.AnyArg(), "u1", "Cell Biology", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	course, err := seeder.EnsureCourse(context.Background(), "u1", "Cell Biology")
	require.NoError(t, err)
	assert.Equal(t, "u1", course.UserID)
	assert.NotEmpty(t, course.ID)

	mock.ExpectQuery(`FROM courses WHERE user_id = :1 AND name = :2`).
		WithArgs("u1", "Cell Biology").
		WillReturnRows(sqlmock.NewRows([]string{"ID", "USER_ID", "NAME", "CREATED_AT"}).AddRow(course.ID, "u1", "Cell Biology", time.Now()))

	again, err := seeder.EnsureCourse(context.Background(), "u1", "Cell Biology")
	require.NoError(t, err)
	assert.Equal(t, course.ID, again.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
