package domain

import (
	"context"
	"time"
)

// User represents a domain user object
type User struct {
	ID           string
	Email        string
	Name         string
	TotalCredits int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines the interface for user data persistence.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	DecrementCredits(ctx context.Context, email string, amount int) error
}
