package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{q: db}
}

type userRow struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Email               sql.NullString `db:"email"`
	Bio                 sql.NullString `db:"bio"`
	PreferredDifficulty sql.NullString `db:"preferred_difficulty"`
	Role                string         `db:"role"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT id, name, email, bio, preferred_difficulty, role, created_at, updated_at FROM users WHERE id = $1`

	var row userRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &domain.User{
		ID:                  row.ID,
		Name:                row.Name,
		Email:               row.Email.String,
		Bio:                 row.Bio.String,
		PreferredDifficulty: domain.Difficulty(row.PreferredDifficulty.String),
		Role:                domain.UserRole(row.Role),
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}, nil
}

// Upsert creates the profile or updates its editable fields.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, bio, preferred_difficulty, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, bio = EXCLUDED.bio,
			preferred_difficulty = EXCLUDED.preferred_difficulty, role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Name,
		nullString(user.Email),
		nullString(user.Bio),
		nullString(string(user.PreferredDifficulty)),
		user.Role,
		time.Now().UTC(),
	)
	return err
}
