// Package store persists refresh results in SQLite: an append-only
// availability history for trend queries and the latest URA detail
// records for tariff lookups.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)

	"github.com/zeecm/parking/internal/carpark"
)

// Store provides SQLite persistence for availability history and
// carpark details.
type Store struct {
	db *sql.DB
}

// NewStore opens the database, verifies the connection and runs
// migrations. WAL mode plus busy_timeout suits the read-heavy API
// serving alongside periodic refresh writes.
func NewStore(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS availability_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		refresh_id TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		source TEXT NOT NULL,
		carpark_id TEXT NOT NULL,
		agency TEXT NOT NULL,
		lot_type TEXT NOT NULL,
		available INTEGER NOT NULL,
		lat REAL,
		lon REAL
	);

	CREATE INDEX IF NOT EXISTS idx_history_carpark ON availability_history(carpark_id, fetched_at);
	CREATE INDEX IF NOT EXISTS idx_history_fetched ON availability_history(fetched_at);

	CREATE TABLE IF NOT EXISTS carpark_details (
		carpark_id TEXT NOT NULL,
		vehicle_category TEXT NOT NULL,
		name TEXT NOT NULL,
		weekday_rate TEXT,
		saturday_rate TEXT,
		sunday_ph_rate TEXT,
		start_time TEXT,
		end_time TEXT,
		capacity INTEGER NOT NULL DEFAULT 0,
		remarks TEXT,
		lat REAL,
		lon REAL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (carpark_id, vehicle_category)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertAvailability appends every lot of one fetched source snapshot
// in a single transaction so a crashed refresh never leaves half a
// snapshot behind. History keeps per-source rows; merging happens at
// read time.
func (s *Store) InsertAvailability(ctx context.Context, refreshID string, snap carpark.Availability) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO availability_history (refresh_id, fetched_at, source, carpark_id, agency, lot_type, available, lat, lon)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	fetchedAt := snap.FetchedAt.UTC().Format(time.RFC3339)
	for _, l := range snap.Lots {
		var lat, lon any
		if l.Position != nil {
			lat, lon = l.Position.Lat, l.Position.Lon
		}
		if _, err := stmt.ExecContext(ctx,
			refreshID,
			fetchedAt,
			snap.Source,
			l.CarparkID,
			string(l.Agency),
			string(l.LotType),
			l.Available,
			lat,
			lon,
		); err != nil {
			return fmt.Errorf("insert availability row: %w", err)
		}
	}

	return tx.Commit()
}

// UpsertDetails replaces detail records keyed by carpark and vehicle
// category, batched in one transaction.
func (s *Store) UpsertDetails(ctx context.Context, details []carpark.Detail, updatedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO carpark_details (carpark_id, vehicle_category, name, weekday_rate, saturday_rate, sunday_ph_rate, start_time, end_time, capacity, remarks, lat, lon, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(carpark_id, vehicle_category) DO UPDATE SET
		name = excluded.name,
		weekday_rate = excluded.weekday_rate,
		saturday_rate = excluded.saturday_rate,
		sunday_ph_rate = excluded.sunday_ph_rate,
		start_time = excluded.start_time,
		end_time = excluded.end_time,
		capacity = excluded.capacity,
		remarks = excluded.remarks,
		lat = excluded.lat,
		lon = excluded.lon,
		updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	ts := updatedAt.UTC().Format(time.RFC3339)
	for _, d := range details {
		var lat, lon any
		if d.Position != nil {
			lat, lon = d.Position.Lat, d.Position.Lon
		}
		if _, err := stmt.ExecContext(ctx,
			d.CarparkID,
			d.VehicleCategory,
			d.Name,
			d.WeekdayRate,
			d.SaturdayRate,
			d.SundayPHRate,
			d.StartTime,
			d.EndTime,
			d.Capacity,
			d.Remarks,
			lat,
			lon,
			ts,
		); err != nil {
			return fmt.Errorf("upsert detail row: %w", err)
		}
	}

	return tx.Commit()
}

// Prune deletes history rows fetched before the cutoff and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM availability_history WHERE fetched_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// HealthCheck reports whether the database answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
