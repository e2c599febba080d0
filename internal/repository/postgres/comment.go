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

// CommentRepository is a PostgreSQL implementation of repository.CommentRepository.
type CommentRepository struct {
	q Querier
}

// NewCommentRepository creates a new PostgreSQL comment repository.
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{q: db}
}

type commentRow struct {
	ID        string    `db:"id"`
	RideID    string    `db:"ride_id"`
	UserID    string    `db:"user_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

func (row commentRow) toDomain() *domain.Comment {
	return &domain.Comment{
		ID:        row.ID,
		RideID:    row.RideID,
		UserID:    row.UserID,
		Body:      row.Body,
		CreatedAt: row.CreatedAt,
	}
}

// Create persists a new comment.
func (r *CommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO ride_comments (id, ride_id, user_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.RideID, c.UserID, c.Body, c.CreatedAt)
	return err
}

// GetByID retrieves a comment by ID.
func (r *CommentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	var row commentRow
	err := sqlx.GetContext(ctx, r.q, &row,
		`SELECT id, ride_id, user_id, body, created_at FROM ride_comments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// ListByRide retrieves the comments of a ride, oldest first.
func (r *CommentRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Comment, error) {
	var rows []commentRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT id, ride_id, user_id, body, created_at FROM ride_comments WHERE ride_id = $1 ORDER BY created_at ASC`, rideID)
	if err != nil {
		return nil, err
	}

	comments := make([]*domain.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toDomain())
	}
	return comments, nil
}

// Delete removes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM ride_comments WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
