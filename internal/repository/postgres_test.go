package repository_test

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/repository"
	"github.com/UnknownOlympus/waypoints/internal/store"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	createTableQuery = `
		CREATE TABLE IF NOT EXISTS locations (
			id BIGSERIAL PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		);
	`
	selectLocationsQuery = `
		SELECT latitude, longitude
		FROM locations
		ORDER BY id ASC;
	`
	insertLocationQuery = `
		INSERT INTO locations (latitude, longitude)
		VALUES ($1, $2);
	`
	deleteLocationsQuery = `
		DELETE FROM locations;
	`
	insertLocationsQuery = `
		INSERT INTO locations (latitude, longitude)
		SELECT lat, lon
		FROM unnest($1::double precision[], $2::double precision[]) AS t(lat, lon);
	`
)

func TestInitialize(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(createTableQuery)).WillReturnError(assert.AnError)

		err = repo.Initialize(ctx)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to create locations table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(createTableQuery)).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

		require.NoError(t, repo.Initialize(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoadAll(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - query locations", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectLocationsQuery)).WillReturnError(assert.AnError)

		locations, err := repo.LoadAll(ctx)

		require.Nil(t, locations)
		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to query locations")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan location", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectLocationsQuery)).
			WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}).AddRow("north", 1.5))

		locations, err := repo.LoadAll(ctx)

		require.Nil(t, locations)
		require.ErrorIs(t, err, store.ErrCorruptRecord)
		require.ErrorContains(t, err, "failed to scan location")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectLocationsQuery)).
			WillReturnRows(
				pgxmock.NewRows([]string{"latitude", "longitude"}).AddRow(40.0, -73.0).
					RowError(1, assert.AnError),
			)

		locations, err := repo.LoadAll(ctx)

		require.Nil(t, locations)
		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorContains(t, err, "failed to read row")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - empty table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectLocationsQuery)).
			WillReturnRows(pgxmock.NewRows([]string{"latitude", "longitude"}))

		locations, err := repo.LoadAll(ctx)

		require.NoError(t, err)
		assert.NotNil(t, locations)
		assert.Empty(t, locations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch locations", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(selectLocationsQuery)).
			WillReturnRows(
				pgxmock.NewRows([]string{"latitude", "longitude"}).
					AddRow(40.0, -73.0).
					AddRow(50.45, 30.52),
			)

		locations, err := repo.LoadAll(ctx)

		require.NoError(t, err)
		assert.Equal(t, []models.Location{
			{Latitude: 40.0, Longitude: -73.0},
			{Latitude: 50.45, Longitude: 30.52},
		}, locations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAppendOne(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	loc := models.Location{Latitude: 50.45, Longitude: 30.52}

	t.Run("error - insert location", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(insertLocationQuery)).WithArgs(loc.Latitude, loc.Longitude).
			WillReturnError(assert.AnError)

		err = repo.AppendOne(ctx, loc)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to insert location")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - insert location", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta(insertLocationQuery)).WithArgs(loc.Latitude, loc.Longitude).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.AppendOne(ctx, loc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReplaceAll(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	records := []models.Location{
		{Latitude: 40.0, Longitude: -73.0},
		{Latitude: 50.45, Longitude: 30.52},
	}
	lats := []float64{40.0, 50.45}
	lons := []float64{-73.0, 30.52}

	t.Run("error - begin transaction", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin().WillReturnError(assert.AnError)

		err = repo.ReplaceAll(ctx, records)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorContains(t, err, "failed to begin transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - delete rolls back", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(deleteLocationsQuery)).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err = repo.ReplaceAll(ctx, records)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to delete locations")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - insert rolls back", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(deleteLocationsQuery)).WillReturnResult(pgxmock.NewResult("DELETE", 5))
		mock.ExpectExec(regexp.QuoteMeta(insertLocationsQuery)).WithArgs(lats, lons).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err = repo.ReplaceAll(ctx, records)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorContains(t, err, "failed to insert locations")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - commit", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(deleteLocationsQuery)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(regexp.QuoteMeta(insertLocationsQuery)).WithArgs(lats, lons).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectCommit().WillReturnError(assert.AnError)

		err = repo.ReplaceAll(ctx, records)

		require.ErrorIs(t, err, store.ErrStorageUnavailable)
		require.ErrorContains(t, err, "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - replace locations", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(deleteLocationsQuery)).WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectExec(regexp.QuoteMeta(insertLocationsQuery)).WithArgs(lats, lons).
			WillReturnResult(pgxmock.NewResult("INSERT", 2))
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceAll(ctx, records))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - clear skips insert", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(deleteLocationsQuery)).WillReturnResult(pgxmock.NewResult("DELETE", 3))
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceAll(ctx, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPing(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mock.Close()

	repo := repository.NewRepository(mock, logger)

	mock.ExpectPing().WillReturnError(assert.AnError)
	mock.ExpectPing()

	err = repo.Ping(ctx)
	require.ErrorIs(t, err, store.ErrStorageUnavailable)
	require.ErrorIs(t, err, assert.AnError)

	require.NoError(t, repo.Ping(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}
