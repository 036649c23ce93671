package trips

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openroad/dashcam/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS trips (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ended_at   INTEGER NOT NULL DEFAULT 0,
	start_lat  REAL,
	start_lon  REAL,
	end_lat    REAL,
	end_lon    REAL,
	waypoints  INTEGER NOT NULL DEFAULT 0,
	distance_m REAL NOT NULL DEFAULT 0,
	label      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trips_started ON trips(started_at DESC);
`

// SQLiteStore persists trips in a local SQLite database so the trip log
// survives power cycles.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeTripStore, "opening "+path,
			errors.WithCause(err), errors.WithComponent("trips"))
	}

	// One writer at a time keeps the pure-Go driver happy.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.New(errors.ErrCodeTripStore, "initializing schema",
			errors.WithCause(err), errors.WithComponent("trips"))
	}

	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces a trip.
func (s *SQLiteStore) Save(ctx context.Context, trip *Trip) error {
	var startLat, startLon, endLat, endLon sql.NullFloat64
	if trip.Start != nil {
		startLat = sql.NullFloat64{Float64: trip.Start.Lat, Valid: true}
		startLon = sql.NullFloat64{Float64: trip.Start.Lon, Valid: true}
	}
	if trip.End != nil {
		endLat = sql.NullFloat64{Float64: trip.End.Lat, Valid: true}
		endLon = sql.NullFloat64{Float64: trip.End.Lon, Valid: true}
	}

	var endedAt int64
	if !trip.EndedAt.IsZero() {
		endedAt = trip.EndedAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (id, started_at, ended_at, start_lat, start_lon,
			end_lat, end_lon, waypoints, distance_m, label)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at   = excluded.ended_at,
			start_lat  = excluded.start_lat,
			start_lon  = excluded.start_lon,
			end_lat    = excluded.end_lat,
			end_lon    = excluded.end_lon,
			waypoints  = excluded.waypoints,
			distance_m = excluded.distance_m,
			label      = excluded.label`,
		trip.ID, trip.StartedAt.UnixMilli(), endedAt,
		startLat, startLon, endLat, endLon,
		trip.Waypoints, trip.DistanceMeters, trip.Label)
	if err != nil {
		return errors.New(errors.ErrCodeTripStore, "saving trip "+trip.ID,
			errors.WithCause(err), errors.WithComponent("trips"))
	}
	return nil
}

// Get returns one trip by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Trip, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, start_lat, start_lon,
			end_lat, end_lon, waypoints, distance_m, label
		FROM trips WHERE id = ?`, id)

	trip, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.New(errors.ErrCodeTripStore, "loading trip "+id,
			errors.WithCause(err), errors.WithComponent("trips"))
	}
	return trip, nil
}

// List returns trips most recently started first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]*Trip, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, start_lat, start_lon,
			end_lat, end_lon, waypoints, distance_m, label
		FROM trips ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.New(errors.ErrCodeTripStore, "listing trips",
			errors.WithCause(err), errors.WithComponent("trips"))
	}
	defer rows.Close()

	var out []*Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, errors.New(errors.ErrCodeTripStore, "scanning trip",
				errors.WithCause(err), errors.WithComponent("trips"))
		}
		out = append(out, trip)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var (
		trip               Trip
		startedAt, endedAt int64
		startLat, startLon sql.NullFloat64
		endLat, endLon     sql.NullFloat64
	)
	err := row.Scan(&trip.ID, &startedAt, &endedAt, &startLat, &startLon,
		&endLat, &endLon, &trip.Waypoints, &trip.DistanceMeters, &trip.Label)
	if err != nil {
		return nil, err
	}

	trip.StartedAt = time.UnixMilli(startedAt)
	if endedAt != 0 {
		trip.EndedAt = time.UnixMilli(endedAt)
	}
	if startLat.Valid && startLon.Valid {
		trip.Start = &Position{Lat: startLat.Float64, Lon: startLon.Float64}
	}
	if endLat.Valid && endLon.Valid {
		trip.End = &Position{Lat: endLat.Float64, Lon: endLon.Float64}
	}
	return &trip, nil
}
