package repository

import (
	"context"
	"fmt"
	"time"

	"glauk-api/internal/domain"
	"glauk-api/internal/repository/models"
	"glauk-api/internal/util"
)

// Seeder inserts the fixture rows used in local development. Rows that
// already exist are left untouched.
type Seeder struct {
	db  DBTX
	now func() time.Time
}

func NewSeeder(db DBTX) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// EnsureUser returns the user with the given email, inserting it first when missing.
func (s *Seeder) EnsureUser(ctx context.Context, email, name string, credits int) (*domain.User, error) {
	existing, err := NewSQLXUserRepository(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := s.now()
	row := models.User{
		ID:           util.NewULID(),
		Email:        email,
		Name:         util.StringToNullString(name),
		TotalCredits: credits,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `INSERT INTO users (id, email, name, total_credits, created_at, updated_at)
	          VALUES (:ID, :EMAIL, :NAME, :TOTAL_CREDITS, :CREATED_AT, :UPDATED_AT)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return nil, fmt.Errorf("failed to seed user %s: %w", email, err)
	}
	return toDomainUser(&row), nil
}

// EnsureCourse returns the user's course with the given name, inserting it when missing.
func (s *Seeder) EnsureCourse(ctx context.Context, userID, name string) (*domain.Course, error) {
	var rows []models.Course
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, name, created_at FROM courses WHERE user_id = :1 AND name = :2`, userID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up course %s: %w", name, err)
	}
	if len(rows) > 0 {
		return &domain.Course{ID: rows[0].ID, UserID: rows[0].UserID, Name: rows[0].Name, CreatedAt: rows[0].CreatedAt}, nil
	}

	row := models.Course{ID: util.NewULID(), UserID: userID, Name: name, CreatedAt: s.now()}
	query := `INSERT INTO courses (id, user_id, name, created_at) VALUES (:ID, :USER_ID, :NAME, :CREATED_AT)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return nil, fmt.Errorf("failed to seed course %s: %w", name, err)
	}
	return &domain.Course{ID: row.ID, UserID: row.UserID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}
