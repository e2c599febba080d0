package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupride/internal/domain"
	"groupride/internal/repository"
)

func setupTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func testRide(id, seriesID string, at time.Time) *domain.Ride {
	return &domain.Ride{
		ID:      id,
		OwnerID: "owner-1",
		RideDetails: domain.RideDetails{
			Title:      "Tuesday Tempo",
			Distance:   40,
			Difficulty: domain.DifficultyC,
			MaxRiders:  10,
			Address:    "Harbor Park",
			Latitude:   47.6,
			Longitude:  -122.3,
			RideType:   domain.RideTypeTraining,
			Pace:       30,
			Terrain:    domain.TerrainRolling,
		},
		DateTime:         at,
		Status:           domain.RideStatusActive,
		IsRecurring:      seriesID != "",
		RecurringType:    domain.RecurrenceWeekly,
		RecurringDay:     2,
		RecurringTime:    "18:00",
		RecurringEndDate: at.AddDate(0, 1, 0),
		SeriesID:         seriesID,
	}
}

var rideColumnNames = []string{
	"id", "owner_id", "title", "distance", "difficulty", "max_riders", "address", "latitude", "longitude",
	"ride_type", "pace", "terrain", "route_url", "description", "date_time", "status",
	"is_recurring", "recurring_type", "recurring_day", "recurring_time", "recurring_end_date", "series_id",
	"created_at", "updated_at",
}

func TestCreateSeries(t *testing.T) {
	at := time.Date(2025, 1, 7, 18, 0, 0, 0, time.UTC)

	t.Run("Commits all rides", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO rides`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO rides`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateSeries(context.Background(), []*domain.Ride{
			testRide("s1", "s1", at),
			testRide("s2", "s1", at.AddDate(0, 0, 7)),
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back on failure", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO rides`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO rides`).WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		err := repo.CreateSeries(context.Background(), []*domain.Ride{
			testRide("s1", "s1", at),
			testRide("s2", "s1", at.AddDate(0, 0, 7)),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert series ride 2 of 2")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty series is a no-op", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		require.NoError(t, repo.CreateSeries(context.Background(), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateRide_Duplicate(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRideRepository(db)

	mock.ExpectExec(`INSERT INTO rides`).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), testRide("r1", "", time.Now().UTC()))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRideByID(t *testing.T) {
	at := time.Date(2025, 3, 4, 18, 0, 0, 0, time.UTC)
	end := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()

	t.Run("Success", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM rides WHERE id = \$1`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows(rideColumnNames).AddRow(
				"r1", "owner-1", "Tuesday Tempo", 40.0, "C", 10, "Harbor Park", 47.6, -122.3,
				"training", 30.0, "rolling", nil, "Bring lights", at, "active",
				true, "weekly", 2, "18:00", end, "r1",
				now, now,
			))

		ride, err := repo.GetByID(context.Background(), "r1")
		require.NoError(t, err)
		assert.Equal(t, "Tuesday Tempo", ride.Title)
		assert.Equal(t, domain.DifficultyC, ride.Difficulty)
		assert.Equal(t, "", ride.RouteURL)
		assert.Equal(t, "Bring lights", ride.Description)
		assert.True(t, ride.IsSeriesHead())
		assert.Equal(t, domain.RecurrenceWeekly, ride.RecurringType)
		assert.Equal(t, 2, ride.RecurringDay)
		assert.True(t, end.Equal(ride.RecurringEndDate))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectQuery(`SELECT (.+) FROM rides WHERE id = \$1`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(rideColumnNames))

		ride, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, ride)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListRides_BuildsFilter(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRideRepository(db)

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM rides WHERE status = \$1 AND series_id = \$2 AND date_time >= \$3 ORDER BY date_time ASC, id ASC LIMIT \$4 OFFSET \$5`).
		WithArgs("active", "s1", from, 50, 10).
		WillReturnRows(sqlmock.NewRows(rideColumnNames))

	rides, err := repo.List(context.Background(), domain.RideFilter{
		Status:   domain.RideStatusActive,
		SeriesID: "s1",
		From:     from,
		Limit:    50,
		Offset:   10,
	})
	require.NoError(t, err)
	assert.Empty(t, rides)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRide(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)
		ride := testRide("r1", "", time.Now().UTC())

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE id = \$1 FOR UPDATE`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ride_participants WHERE ride_id = \$1`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
		mock.ExpectExec(`UPDATE rides`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Update(context.Background(), ride))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Capacity below joined riders", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)
		ride := testRide("r1", "", time.Now().UTC())
		ride.MaxRiders = 2

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE id = \$1 FOR UPDATE`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ride_participants`).
			WithArgs("r1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectRollback()

		err := repo.Update(context.Background(), ride)
		assert.ErrorIs(t, err, repository.ErrBelowParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE id = \$1 FOR UPDATE`).
			WithArgs("gone").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := repo.Update(context.Background(), testRide("gone", "", time.Now().UTC()))
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateSeriesDetails(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)
		details := testRide("s1", "s1", time.Now().UTC()).RideDetails

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE series_id = \$1 ORDER BY id FOR UPDATE`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2").AddRow("s3"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(n\), 0\)`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))
		mock.ExpectExec(`UPDATE rides\s+SET (.+)\s+WHERE series_id = \$14`).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		n, err := repo.UpdateSeriesDetails(context.Background(), "s1", details)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Busiest member over new capacity", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)
		details := testRide("s1", "s1", time.Now().UTC()).RideDetails
		details.MaxRiders = 5

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE series_id = \$1 ORDER BY id FOR UPDATE`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))
		mock.ExpectQuery(`SELECT COALESCE\(MAX\(n\), 0\)`).
			WithArgs("s1").
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(6))
		mock.ExpectRollback()

		_, err := repo.UpdateSeriesDetails(context.Background(), "s1", details)
		assert.ErrorIs(t, err, repository.ErrBelowParticipants)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown series", func(t *testing.T) {
		db, mock := setupTestDB(t)
		repo := NewRideRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM rides WHERE series_id = \$1 ORDER BY id FOR UPDATE`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectCommit()

		n, err := repo.UpdateSeriesDetails(context.Background(), "missing", domain.RideDetails{})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteSeries(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRideRepository(db)

	mock.ExpectExec(`DELETE FROM rides WHERE series_id = \$1`).
		WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteSeries(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveStale(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRideRepository(db)

	cutoff := time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`UPDATE rides\s+SET status = \$1, updated_at = \$2\s+WHERE status = \$3 AND date_time < \$4\s+RETURNING id`).
		WithArgs("archived", sqlmock.AnyArg(), "active", cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1").AddRow("r2"))

	ids, err := repo.ArchiveStale(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
