// Package export writes the terminal artifacts of a CPI run: the combined
// day/month CSV and the trend chart. It consumes computed series without
// mutating them.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"commodity-cpi/internal/cpi"
)

const dateFormat = "2006-01-02"

// WriteCombinedCSV writes one row per daily bucket with the nearest monthly
// values alongside. An empty combined series produces a header-only file;
// that is valid output when either input series was empty.
func WriteCombinedCSV(path string, points []cpi.CombinedPoint, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time_period_day", "cpi_index_day", "time_period_month", "cpi_index_month"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, p := range points {
		rec := []string{
			p.DayPeriod.Format(dateFormat),
			p.DayIndex.String(),
			p.MonthPeriod.Format(dateFormat),
			p.MonthIndex.String(),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	log.Info("combined cpi csv written",
		slog.String("path", path),
		slog.Int("rows", len(points)))
	return nil
}
