package repository

import (
	"context"

	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/store"
	"github.com/jackc/pgx/v5"
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

// Initialize creates the locations table if it does not exist.
func (r *Repository) Initialize(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createTableQuery); err != nil {
		return unavailable("failed to create locations table", err)
	}
	r.log.DebugContext(ctx, "Locations table is ready")

	return nil
}

// LoadAll retrieves every stored location in insertion order.
func (r *Repository) LoadAll(ctx context.Context) ([]models.Location, error) {
	rows, err := r.db.Query(ctx, selectLocationsQuery)
	if err != nil {
		return nil, unavailable("failed to query locations", err)
	}
	defer rows.Close()

	locations := []models.Location{}
	for rows.Next() {
		var loc models.Location
		if errScan := rows.Scan(&loc.Latitude, &loc.Longitude); errScan != nil {
			return nil, &store.CorruptRecordError{Reason: "failed to scan location", Err: errScan}
		}
		locations = append(locations, loc)
	}

	if err = rows.Err(); err != nil {
		return nil, unavailable("failed to read row", err)
	}

	return locations, nil
}

// AppendOne inserts a single location.
func (r *Repository) AppendOne(ctx context.Context, record models.Location) error {
	if _, err := r.db.Exec(ctx, insertLocationQuery, record.Latitude, record.Longitude); err != nil {
		return unavailable("failed to insert location", err)
	}

	return nil
}

// ReplaceAll deletes every row and inserts records in one transaction,
// so a failure leaves the previous set untouched.
func (r *Repository) ReplaceAll(ctx context.Context, records []models.Location) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return unavailable("failed to begin transaction", err)
	}

	if _, err = tx.Exec(ctx, deleteLocationsQuery); err != nil {
		r.rollback(ctx, tx)
		return unavailable("failed to delete locations", err)
	}

	if len(records) > 0 {
		lats := make([]float64, len(records))
		lons := make([]float64, len(records))
		for i, rec := range records {
			lats[i], lons[i] = rec.Latitude, rec.Longitude
		}

		if _, err = tx.Exec(ctx, insertLocationsQuery, lats, lons); err != nil {
			r.rollback(ctx, tx)
			return unavailable("failed to insert locations", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return unavailable("failed to commit transaction", err)
	}
	r.log.DebugContext(ctx, "Locations table rewritten", "records", len(records))

	return nil
}

func (r *Repository) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil {
		r.log.ErrorContext(ctx, "Failed to roll back transaction", "error", err)
	}
}
