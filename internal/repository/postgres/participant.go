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

// ParticipantRepository is a PostgreSQL implementation of repository.ParticipantRepository.
type ParticipantRepository struct {
	db *sqlx.DB
	q  Querier
}

// NewParticipantRepository creates a new PostgreSQL participant repository.
func NewParticipantRepository(db *sqlx.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db, q: db}
}

// NewParticipantRepositoryWithTx creates a participant repository using a transaction.
func NewParticipantRepositoryWithTx(tx *sqlx.Tx) *ParticipantRepository {
	return &ParticipantRepository{q: tx}
}

type participantRow struct {
	RideID   string    `db:"ride_id"`
	UserID   string    `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

type seatRow struct {
	MaxRiders int    `db:"max_riders"`
	Status    string `db:"status"`
}

type occupancyRow struct {
	Total int `db:"total"`
	Mine  int `db:"mine"`
}

// Join adds the user to the ride while holding a row lock on the ride.
func (r *ParticipantRepository) Join(ctx context.Context, rideID, userID string, joinedAt time.Time) error {
	return runInTx(ctx, r.db, r.q, func(q Querier) error {
		var seat seatRow
		err := sqlx.GetContext(ctx, q, &seat,
			`SELECT max_riders, status FROM rides WHERE id = $1 FOR UPDATE`, rideID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}

		if domain.RideStatus(seat.Status) != domain.RideStatusActive {
			return repository.ErrRideNotActive
		}

		var occ occupancyRow
		err = sqlx.GetContext(ctx, q, &occ, `
			SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE user_id = $2) AS mine
			FROM ride_participants WHERE ride_id = $1
		`, rideID, userID)
		if err != nil {
			return err
		}

		if occ.Mine > 0 {
			return repository.ErrDuplicate
		}
		if occ.Total >= seat.MaxRiders {
			return repository.ErrCapacityReached
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO ride_participants (ride_id, user_id, joined_at) VALUES ($1, $2, $3)`,
			rideID, userID, joinedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicate
			}
			return err
		}

		return nil
	})
}

// Leave removes the user from the ride.
func (r *ParticipantRepository) Leave(ctx context.Context, rideID, userID string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM ride_participants WHERE ride_id = $1 AND user_id = $2`, rideID, userID)
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

// ListByRide retrieves the participants of a ride, oldest first.
func (r *ParticipantRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.Participant, error) {
	var rows []participantRow
	err := sqlx.SelectContext(ctx, r.q, &rows,
		`SELECT ride_id, user_id, joined_at FROM ride_participants WHERE ride_id = $1 ORDER BY joined_at ASC`, rideID)
	if err != nil {
		return nil, err
	}

	participants := make([]*domain.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, &domain.Participant{
			RideID:   row.RideID,
			UserID:   row.UserID,
			JoinedAt: row.JoinedAt,
		})
	}
	return participants, nil
}

// CountByRide returns the number of participants of a ride.
func (r *ParticipantRepository) CountByRide(ctx context.Context, rideID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.q, &count,
		`SELECT COUNT(*) FROM ride_participants WHERE ride_id = $1`, rideID)
	return count, err
}
