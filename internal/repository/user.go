package repository

import (
	"context"

	"groupride/internal/domain"
)

// UserRepository defines the persistence operations for user profiles.
type UserRepository interface {
	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// Upsert creates the profile or updates its editable fields.
	Upsert(ctx context.Context, user *domain.User) error
}
