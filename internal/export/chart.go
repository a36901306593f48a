package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"commodity-cpi/internal/cpi"
)

// WriteTrendChart renders both granularity series on one time axis as an
// HTML line chart. The monthly series plots on the daily backbone so the
// two share an axis; monthly values repeat across days of the same month.
func WriteTrendChart(path string, points []cpi.CombinedPoint, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Combined CPI Trend",
			Subtitle: "Base period = 100",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "CPI Index"}),
	)

	dates := make([]string, 0, len(points))
	daily := make([]opts.LineData, 0, len(points))
	monthly := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		dates = append(dates, p.DayPeriod.Format(dateFormat))
		daily = append(daily, opts.LineData{Value: p.DayIndex.InexactFloat64()})
		monthly = append(monthly, opts.LineData{Value: p.MonthIndex.InexactFloat64()})
	}

	line.SetXAxis(dates).
		AddSeries("Daily CPI", daily).
		AddSeries("Monthly CPI", monthly)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	log.Info("cpi trend chart written", slog.String("path", path))
	return nil
}
