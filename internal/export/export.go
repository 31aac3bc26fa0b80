// Package export writes refresh results to disk as CSV and JSON
// artifacts for downstream spreadsheets and scripts. Writes are atomic
// so consumers never observe a half-written file.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/zeecm/parking/internal/carpark"
	"github.com/zeecm/parking/internal/log"
	"github.com/zeecm/parking/internal/metrics"
)

// Artifact file names, overwritten in place on every refresh.
const (
	availabilityCSV  = "availability.csv"
	availabilityJSON = "availability.json"
	detailsCSV       = "carparks.csv"
)

// Exporter writes refresh artifacts.
type Exporter interface {
	// WriteSnapshot writes the merged availability snapshot as CSV and
	// JSON.
	WriteSnapshot(ctx context.Context, snap *carpark.Snapshot) error
	// WriteDetails writes the carpark detail records as CSV.
	WriteDetails(ctx context.Context, details []carpark.Detail) error
}

// Writer writes artifacts under a directory.
type Writer struct {
	dir    string
	logger zerolog.Logger
}

// NewWriter creates the export directory if needed and returns a
// writer for it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &Writer{
		dir:    dir,
		logger: log.WithComponent("export"),
	}, nil
}

func (w *Writer) WriteSnapshot(ctx context.Context, snap *carpark.Snapshot) error {
	if err := w.writeAtomic(filepath.Join(w.dir, availabilityCSV), func(out io.Writer) error {
		return writeAvailabilityCSV(out, snap)
	}); err != nil {
		metrics.RecordExport("csv", err)
		return fmt.Errorf("write availability csv: %w", err)
	}
	metrics.RecordExport("csv", nil)

	if err := w.writeAtomic(filepath.Join(w.dir, availabilityJSON), func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}); err != nil {
		metrics.RecordExport("json", err)
		return fmt.Errorf("write availability json: %w", err)
	}
	metrics.RecordExport("json", nil)

	w.logger.Debug().
		Str(log.FieldEvent, "export.snapshot.written").
		Int(log.FieldRecords, len(snap.Lots)).
		Str(log.FieldPath, w.dir).
		Msg("availability artifacts written")
	return nil
}

func (w *Writer) WriteDetails(ctx context.Context, details []carpark.Detail) error {
	if err := w.writeAtomic(filepath.Join(w.dir, detailsCSV), func(out io.Writer) error {
		return writeDetailsCSV(out, details)
	}); err != nil {
		metrics.RecordExport("csv", err)
		return fmt.Errorf("write details csv: %w", err)
	}
	metrics.RecordExport("csv", nil)

	w.logger.Debug().
		Str(log.FieldEvent, "export.details.written").
		Int(log.FieldRecords, len(details)).
		Msg("detail artifact written")
	return nil
}

// writeAtomic stages the file next to its destination and swaps it in
// with fsync before rename, so a crash mid-write leaves the previous
// artifact intact.
func (w *Writer) writeAtomic(path string, write func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			w.logger.Debug().Err(err).Str(log.FieldPath, path).Msg("cleanup pending file")
		}
	}()

	if err := write(pending); err != nil {
		return err
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace: %w", err)
	}
	return nil
}

func writeAvailabilityCSV(out io.Writer, snap *carpark.Snapshot) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"carpark_id", "development", "area", "agency", "lot_type", "available_lots", "lat", "lon"}); err != nil {
		return err
	}
	for _, l := range snap.Lots {
		lat, lon := "", ""
		if l.Position != nil {
			lat = strconv.FormatFloat(l.Position.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(l.Position.Lon, 'f', -1, 64)
		}
		if err := cw.Write([]string{
			l.CarparkID,
			l.Development,
			l.Area,
			string(l.Agency),
			string(l.LotType),
			strconv.Itoa(l.Available),
			lat,
			lon,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDetailsCSV(out io.Writer, details []carpark.Detail) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{
		"carpark_id", "name", "vehicle_category",
		"weekday_rate", "weekday_rate_dollars",
		"saturday_rate", "saturday_rate_dollars",
		"sunday_ph_rate", "sunday_ph_rate_dollars",
		"start_time", "end_time", "capacity", "lat", "lon",
	}); err != nil {
		return err
	}
	for _, d := range details {
		lat, lon := "", ""
		if d.Position != nil {
			lat = strconv.FormatFloat(d.Position.Lat, 'f', -1, 64)
			lon = strconv.FormatFloat(d.Position.Lon, 'f', -1, 64)
		}
		if err := cw.Write([]string{
			d.CarparkID,
			d.Name,
			d.VehicleCategory,
			d.WeekdayRate, rateDollars(d.WeekdayRate),
			d.SaturdayRate, rateDollars(d.SaturdayRate),
			d.SundayPHRate, rateDollars(d.SundayPHRate),
			d.StartTime,
			d.EndTime,
			strconv.Itoa(d.Capacity),
			lat,
			lon,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func rateDollars(rate string) string {
	d, ok := parseRate(rate)
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}

// Noop discards all artifacts, used when no export directory is
// configured.
type Noop struct{}

// NewNoop creates an exporter that writes nothing.
func NewNoop() Noop { return Noop{} }

func (Noop) WriteSnapshot(context.Context, *carpark.Snapshot) error { return nil }
func (Noop) WriteDetails(context.Context, []carpark.Detail) error   { return nil }

// Compile-time interface checks.
var (
	_ Exporter = (*Writer)(nil)
	_ Exporter = Noop{}
)
