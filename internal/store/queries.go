package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/zeecm/parking/internal/carpark"
)

// HistoryEntry is one stored availability row.
type HistoryEntry struct {
	RefreshID string      `json:"refresh_id"`
	FetchedAt time.Time   `json:"fetched_at"`
	Source    string      `json:"source"`
	Lot       carpark.Lot `json:"lot"`
}

// History returns the newest rows for one carpark since the given
// time, newest first, capped at limit.
func (s *Store) History(ctx context.Context, carparkID string, since time.Time, limit int) ([]HistoryEntry, error) {
	query := `
	SELECT refresh_id, fetched_at, source, carpark_id, agency, lot_type, available, lat, lon
	FROM availability_history
	WHERE carpark_id = ? AND fetched_at >= ?
	ORDER BY fetched_at DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, carparkID, since.UTC().Format(time.RFC3339), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			fetchedStr string
			agency     string
			lotType    string
			lat, lon   sql.NullFloat64
		)
		if err := rows.Scan(
			&e.RefreshID,
			&fetchedStr,
			&e.Source,
			&e.Lot.CarparkID,
			&agency,
			&lotType,
			&e.Lot.Available,
			&lat,
			&lon,
		); err != nil {
			return nil, err
		}

		e.FetchedAt, _ = time.Parse(time.RFC3339, fetchedStr)
		e.Lot.Agency = carpark.Agency(agency)
		e.Lot.LotType = carpark.LotType(lotType)
		if lat.Valid && lon.Valid {
			e.Lot.Position = &carpark.Position{Lat: lat.Float64, Lon: lon.Float64}
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Details returns the stored detail records for one carpark, one per
// vehicle category. A carpark with no stored details returns an empty
// slice, not an error.
func (s *Store) Details(ctx context.Context, carparkID string) ([]carpark.Detail, error) {
	query := `
	SELECT carpark_id, vehicle_category, name, weekday_rate, saturday_rate, sunday_ph_rate, start_time, end_time, capacity, remarks, lat, lon
	FROM carpark_details
	WHERE carpark_id = ?
	ORDER BY vehicle_category
	`

	rows, err := s.db.QueryContext(ctx, query, carparkID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanDetails(rows)
}

// AllDetails returns every stored detail record, ordered by carpark.
func (s *Store) AllDetails(ctx context.Context) ([]carpark.Detail, error) {
	query := `
	SELECT carpark_id, vehicle_category, name, weekday_rate, saturday_rate, sunday_ph_rate, start_time, end_time, capacity, remarks, lat, lon
	FROM carpark_details
	ORDER BY carpark_id, vehicle_category
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanDetails(rows)
}

func scanDetails(rows *sql.Rows) ([]carpark.Detail, error) {
	var details []carpark.Detail
	for rows.Next() {
		var (
			d        carpark.Detail
			weekday  sql.NullString
			saturday sql.NullString
			sundayPH sql.NullString
			start    sql.NullString
			end      sql.NullString
			remarks  sql.NullString
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(
			&d.CarparkID,
			&d.VehicleCategory,
			&d.Name,
			&weekday,
			&saturday,
			&sundayPH,
			&start,
			&end,
			&d.Capacity,
			&remarks,
			&lat,
			&lon,
		); err != nil {
			return nil, err
		}

		d.WeekdayRate = weekday.String
		d.SaturdayRate = saturday.String
		d.SundayPHRate = sundayPH.String
		d.StartTime = start.String
		d.EndTime = end.String
		d.Remarks = remarks.String
		if lat.Valid && lon.Valid {
			d.Position = &carpark.Position{Lat: lat.Float64, Lon: lon.Float64}
		}

		details = append(details, d)
	}

	return details, rows.Err()
}

// HistoryCount reports how many history rows are stored.
func (s *Store) HistoryCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM availability_history`).Scan(&n)
	return n, err
}

// LastFetchedAt returns the newest fetched_at in the history, or the
// zero time when the history is empty.
func (s *Store) LastFetchedAt(ctx context.Context) (time.Time, error) {
	var fetchedStr sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MAX(fetched_at) FROM availability_history`).Scan(&fetchedStr)
	if err != nil {
		return time.Time{}, err
	}
	if !fetchedStr.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, fetchedStr.String)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
