package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"glauk-api/internal/domain"
	"glauk-api/internal/repository/models"
)

type sqlxUserRepository struct {
	db DBTX
}

func NewSQLXUserRepository(db DBTX) domain.UserRepository {
	return &sqlxUserRepository{db: db}
}

const userColumns = `id, email, name, total_credits, created_at, updated_at`

func (r *sqlxUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = :1`, email)
}

func (r *sqlxUserRepository) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = :1`, userID)
}

func (r *sqlxUserRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toDomainUser(&user), nil
}

// DecrementCredits lowers the balance by amount, never below zero. A missing
// user is reported as NotFound.
func (r *sqlxUserRepository) DecrementCredits(ctx context.Context, email string, amount int) error {
	if amount <= 0 {
		return nil
	}
	query := `UPDATE users
	          SET total_credits = GREATEST(total_credits - :1, 0), updated_at = SYSTIMESTAMP
	          WHERE email = :2`

	result, err := r.db.ExecContext(ctx, query, amount, email)
	if err != nil {
		return fmt.Errorf("failed to decrement credits: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NewNotFoundError("user not found").WithContext("email", email)
	}
	return nil
}

func toDomainUser(m *models.User) *domain.User {
	if m == nil {
		return nil
	}
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name.String,
		TotalCredits: m.TotalCredits,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
