package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

const defaultListLimit = 20

const rideColumns = `id, owner_id, title, distance, difficulty, max_riders, address, latitude, longitude,
	ride_type, pace, terrain, route_url, description, date_time, status,
	is_recurring, recurring_type, recurring_day, recurring_time, recurring_end_date, series_id,
	created_at, updated_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	db *sqlx.DB
	q  Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sqlx.DB) *RideRepository {
	return &RideRepository{db: db, q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sqlx.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// rideRow mirrors the rides table.
type rideRow struct {
	ID               string         `db:"id"`
	OwnerID          string         `db:"owner_id"`
	Title            string         `db:"title"`
	Distance         float64        `db:"distance"`
	Difficulty       string         `db:"difficulty"`
	MaxRiders        int            `db:"max_riders"`
	Address          string         `db:"address"`
	Latitude         float64        `db:"latitude"`
	Longitude        float64        `db:"longitude"`
	RideType         string         `db:"ride_type"`
	Pace             float64        `db:"pace"`
	Terrain          string         `db:"terrain"`
	RouteURL         sql.NullString `db:"route_url"`
	Description      sql.NullString `db:"description"`
	DateTime         time.Time      `db:"date_time"`
	Status           string         `db:"status"`
	IsRecurring      bool           `db:"is_recurring"`
	RecurringType    sql.NullString `db:"recurring_type"`
	RecurringDay     sql.NullInt64  `db:"recurring_day"`
	RecurringTime    sql.NullString `db:"recurring_time"`
	RecurringEndDate sql.NullTime   `db:"recurring_end_date"`
	SeriesID         sql.NullString `db:"series_id"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (row *rideRow) toDomain() *domain.Ride {
	ride := &domain.Ride{
		ID:      row.ID,
		OwnerID: row.OwnerID,
		RideDetails: domain.RideDetails{
			Title:       row.Title,
			Distance:    row.Distance,
			Difficulty:  domain.Difficulty(row.Difficulty),
			MaxRiders:   row.MaxRiders,
			Address:     row.Address,
			Latitude:    row.Latitude,
			Longitude:   row.Longitude,
			RideType:    domain.RideType(row.RideType),
			Pace:        row.Pace,
			Terrain:     domain.Terrain(row.Terrain),
			RouteURL:    row.RouteURL.String,
			Description: row.Description.String,
		},
		DateTime:    row.DateTime,
		Status:      domain.RideStatus(row.Status),
		IsRecurring: row.IsRecurring,
		SeriesID:    row.SeriesID.String,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	if row.RecurringType.Valid {
		ride.RecurringType = domain.RecurrenceType(row.RecurringType.String)
	}
	if row.RecurringDay.Valid {
		ride.RecurringDay = int(row.RecurringDay.Int64)
	}
	if row.RecurringTime.Valid {
		ride.RecurringTime = row.RecurringTime.String
	}
	if row.RecurringEndDate.Valid {
		ride.RecurringEndDate = row.RecurringEndDate.Time
	}

	return ride
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create persists a single ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	return insertRide(ctx, r.q, ride)
}

// CreateSeries persists every ride of a series in one transaction.
func (r *RideRepository) CreateSeries(ctx context.Context, rides []*domain.Ride) error {
	if len(rides) == 0 {
		return nil
	}

	return runInTx(ctx, r.db, r.q, func(q Querier) error {
		for i, ride := range rides {
			if err := insertRide(ctx, q, ride); err != nil {
				return fmt.Errorf("insert series ride %d of %d: %w", i+1, len(rides), err)
			}
		}
		return nil
	})
}

func insertRide(ctx context.Context, q Querier, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, owner_id, title, distance, difficulty, max_riders, address, latitude, longitude,
			ride_type, pace, terrain, route_url, description, date_time, status,
			is_recurring, recurring_type, recurring_day, recurring_time, recurring_end_date, series_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $23)
	`

	var recurringDay sql.NullInt64
	var recurringEndDate sql.NullTime
	if ride.IsRecurring {
		recurringDay = sql.NullInt64{Int64: int64(ride.RecurringDay), Valid: true}
		recurringEndDate = sql.NullTime{Time: ride.RecurringEndDate, Valid: !ride.RecurringEndDate.IsZero()}
	}

	createdAt := ride.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, query,
		ride.ID,
		ride.OwnerID,
		ride.Title,
		ride.Distance,
		ride.Difficulty,
		ride.MaxRiders,
		ride.Address,
		ride.Latitude,
		ride.Longitude,
		ride.RideType,
		ride.Pace,
		ride.Terrain,
		nullString(ride.RouteURL),
		nullString(ride.Description),
		ride.DateTime,
		ride.Status,
		ride.IsRecurring,
		nullString(string(ride.RecurringType)),
		recurringDay,
		nullString(ride.RecurringTime),
		recurringEndDate,
		nullString(ride.SeriesID),
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	var row rideRow
	if err := sqlx.GetContext(ctx, r.q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return row.toDomain(), nil
}

// List retrieves rides matching the filter, ordered by start time.
func (r *RideRepository) List(ctx context.Context, filter domain.RideFilter) ([]*domain.Ride, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.OwnerID != "" {
		add("owner_id = $%d", filter.OwnerID)
	}
	if filter.SeriesID != "" {
		add("series_id = $%d", filter.SeriesID)
	}
	if filter.Difficulty != "" {
		add("difficulty = $%d", filter.Difficulty)
	}
	if !filter.From.IsZero() {
		add("date_time >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date_time < $%d", filter.To)
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY date_time ASC, id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var rows []rideRow
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, args...); err != nil {
		return nil, err
	}

	rides := make([]*domain.Ride, 0, len(rows))
	for i := range rows {
		rides = append(rides, rows[i].toDomain())
	}
	return rides, nil
}

// Update updates the descriptive fields and start time of a ride. The ride
// row is locked the same way Join locks it, so the capacity check and the
// write see a stable participant count.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	return runInTx(ctx, r.db, r.q, func(q Querier) error {
		var id string
		err := sqlx.GetContext(ctx, q, &id, `SELECT id FROM rides WHERE id = $1 FOR UPDATE`, ride.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}

		var joined int
		err = sqlx.GetContext(ctx, q, &joined,
			`SELECT COUNT(*) FROM ride_participants WHERE ride_id = $1`, ride.ID)
		if err != nil {
			return err
		}
		if ride.MaxRiders < joined {
			return repository.ErrBelowParticipants
		}

		query := `
			UPDATE rides
			SET title = $1, distance = $2, difficulty = $3, max_riders = $4, address = $5, latitude = $6, longitude = $7,
				ride_type = $8, pace = $9, terrain = $10, route_url = $11, description = $12, date_time = $13, updated_at = $14
			WHERE id = $15
		`

		result, err := q.ExecContext(ctx, query,
			ride.Title,
			ride.Distance,
			ride.Difficulty,
			ride.MaxRiders,
			ride.Address,
			ride.Latitude,
			ride.Longitude,
			ride.RideType,
			ride.Pace,
			ride.Terrain,
			nullString(ride.RouteURL),
			nullString(ride.Description),
			ride.DateTime,
			time.Now().UTC(),
			ride.ID,
		)
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
	})
}

// UpdateSeriesDetails applies descriptive fields to every ride of a series.
// Member rows are locked in id order before the busiest member is compared
// against the new capacity.
func (r *RideRepository) UpdateSeriesDetails(ctx context.Context, seriesID string, d domain.RideDetails) (int64, error) {
	var updated int64
	err := runInTx(ctx, r.db, r.q, func(q Querier) error {
		var ids []string
		err := sqlx.SelectContext(ctx, q, &ids,
			`SELECT id FROM rides WHERE series_id = $1 ORDER BY id FOR UPDATE`, seriesID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		var busiest int
		err = sqlx.GetContext(ctx, q, &busiest, `
			SELECT COALESCE(MAX(n), 0) FROM (
				SELECT COUNT(*) AS n FROM ride_participants
				WHERE ride_id IN (SELECT id FROM rides WHERE series_id = $1)
				GROUP BY ride_id
			) counts
		`, seriesID)
		if err != nil {
			return err
		}
		if d.MaxRiders < busiest {
			return repository.ErrBelowParticipants
		}

		query := `
			UPDATE rides
			SET title = $1, distance = $2, difficulty = $3, max_riders = $4, address = $5, latitude = $6, longitude = $7,
				ride_type = $8, pace = $9, terrain = $10, route_url = $11, description = $12, updated_at = $13
			WHERE series_id = $14
		`

		result, err := q.ExecContext(ctx, query,
			d.Title,
			d.Distance,
			d.Difficulty,
			d.MaxRiders,
			d.Address,
			d.Latitude,
			d.Longitude,
			d.RideType,
			d.Pace,
			d.Terrain,
			nullString(d.RouteURL),
			nullString(d.Description),
			time.Now().UTC(),
			seriesID,
		)
		if err != nil {
			return err
		}

		updated, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// Delete removes a ride.
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE id = $1`, id)
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

// DeleteSeries removes every ride of a series.
func (r *RideRepository) DeleteSeries(ctx context.Context, seriesID string) (int64, error) {
	result, err := r.q.ExecContext(ctx, `DELETE FROM rides WHERE series_id = $1`, seriesID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ArchiveStale archives every active ride that started before the given instant.
func (r *RideRepository) ArchiveStale(ctx context.Context, before time.Time) ([]string, error) {
	query := `
		UPDATE rides
		SET status = $1, updated_at = $2
		WHERE status = $3 AND date_time < $4
		RETURNING id
	`

	var ids []string
	err := sqlx.SelectContext(ctx, r.q, &ids, query,
		domain.RideStatusArchived,
		time.Now().UTC(),
		domain.RideStatusActive,
		before,
	)
	if err != nil {
		return nil, err
	}

	return ids, nil
}
