// cpi - commodity price index pipeline
//
// Usage:
//   cpi compute [--base-start ... --base-end ... --start ... --end ...]
//   cpi ingest --prices data/utf --products data/products.csv --categories data/categories.csv
//   cpi convert --in raw/daily_price --out raw/utf
//   cpi ping
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"commodity-cpi/db/clickhouse"
	"commodity-cpi/db/postgres"
	"commodity-cpi/internal/config"
	"commodity-cpi/internal/cpi"
	"commodity-cpi/internal/export"
	"commodity-cpi/internal/ingest"
	"commodity-cpi/internal/textenc"
	"commodity-cpi/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "cpi",
		Usage:   "Weighted consumer price index pipeline over a commodity price store",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CPI_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "settings",
				Value:   "settings.yml",
				Usage:   "Path to settings file",
				EnvVars: []string{"CPI_SETTINGS"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Usage:   "ClickHouse host (overrides settings)",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Usage:   "ClickHouse native port (overrides settings)",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Usage:   "ClickHouse database (overrides settings)",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Usage:   "ClickHouse user (overrides settings)",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Usage:   "ClickHouse password (overrides settings)",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
		},

		Commands: []*cli.Command{
			computeCommand(),
			ingestCommand(),
			convertCommand(),
			pingCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadSettings(c *cli.Context) (*config.Settings, *slog.Logger, error) {
	logger := platform.InitLogger(c.String("log-level"))

	settings, err := config.Load(c.String("settings"))
	if err != nil {
		return nil, nil, err
	}
	if v := c.String("clickhouse-host"); v != "" {
		settings.ClickHouse.Host = v
	}
	if v := c.Int("clickhouse-port"); v != 0 {
		settings.ClickHouse.Port = v
	}
	if v := c.String("clickhouse-database"); v != "" {
		settings.ClickHouse.Database = v
	}
	if v := c.String("clickhouse-user"); v != "" {
		settings.ClickHouse.User = v
	}
	if v := c.String("clickhouse-password"); v != "" {
		settings.ClickHouse.Password = v
	}
	return settings, logger, nil
}

func openStore(settings *config.Settings) (*clickhouse.Store, error) {
	return clickhouse.NewStore(&clickhouse.Config{
		Host:     settings.ClickHouse.Host,
		Port:     settings.ClickHouse.Port,
		Database: settings.ClickHouse.Database,
		Username: settings.ClickHouse.User,
		Password: settings.ClickHouse.Password,
	})
}

// =============================================================================
// COMPUTE COMMAND
// =============================================================================

func computeCommand() *cli.Command {
	return &cli.Command{
		Name:  "compute",
		Usage: "Compute monthly and daily CPI, merge them, and write the combined artifacts",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-start", Usage: "Base window start (YYYY-MM-DD, overrides settings)"},
			&cli.StringFlag{Name: "base-end", Usage: "Base window end (overrides settings)"},
			&cli.StringFlag{Name: "start", Usage: "Analysis window start (overrides settings)"},
			&cli.StringFlag{Name: "end", Usage: "Analysis window end (overrides settings)"},
			&cli.StringFlag{Name: "tier", Usage: "Category hierarchy tier carrying weights (overrides settings)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (overrides settings)"},
			&cli.StringFlag{
				Name:    "weight-dsn",
				Usage:   "Postgres DSN for the weight provider (default: weights from ClickHouse)",
				EnvVars: []string{"WEIGHT_DSN"},
			},
			&cli.BoolFlag{Name: "no-chart", Usage: "Skip rendering the trend chart"},
		},
		Action: runCompute,
	}
}

func runCompute(c *cli.Context) error {
	settings, logger, err := loadSettings(c)
	if err != nil {
		return err
	}
	applyWindowFlags(c, settings)

	params, err := settings.Params()
	if err != nil {
		return err
	}

	ctx := context.Background()

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	var weights cpi.WeightSource = store
	if dsn := settings.Postgres.WeightDSN; dsn != "" {
		provider, err := postgres.Open(dsn)
		if err != nil {
			return err
		}
		defer provider.Close()
		weights = provider
		logger.Info("using postgres weight provider")
	}

	pipeline := cpi.NewPipeline(store, weights, logger)
	result, err := pipeline.RunCombined(ctx, params)
	if err != nil {
		return describeFailure(err)
	}

	outDir := settings.Output.Dir
	csvPath := filepath.Join(outDir, "combined_cpi_results.csv")
	if err := export.WriteCombinedCSV(csvPath, result.Combined, logger); err != nil {
		return err
	}

	if !c.Bool("no-chart") {
		chartPath := filepath.Join(outDir, "combined_cpi_trend.html")
		if err := export.WriteTrendChart(chartPath, result.Combined, logger); err != nil {
			return err
		}
	}

	if result.Quality.Dirty() {
		logger.Warn("run completed with data-quality findings",
			slog.Int("coerced_nulls", result.Quality.CoercedNulls),
			slog.Int("null_relatives", result.Quality.NullRelatives),
			slog.Int("undefined_buckets", result.Quality.UndefinedBuckets))
	}

	fmt.Printf("Computed %d daily and %d monthly buckets; %d combined rows written to %s\n",
		len(result.Daily.Points), len(result.Monthly.Points), len(result.Combined), csvPath)
	return nil
}

func applyWindowFlags(c *cli.Context, settings *config.Settings) {
	if v := c.String("base-start"); v != "" {
		settings.Windows.BaseStart = v
	}
	if v := c.String("base-end"); v != "" {
		settings.Windows.BaseEnd = v
	}
	if v := c.String("start"); v != "" {
		settings.Windows.AnalysisStart = v
	}
	if v := c.String("end"); v != "" {
		settings.Windows.AnalysisEnd = v
	}
	if v := c.String("tier"); v != "" {
		settings.Tier = v
	}
	if v := c.String("output"); v != "" {
		settings.Output.Dir = v
	}
	if v := c.String("weight-dsn"); v != "" {
		settings.Postgres.WeightDSN = v
	}
}

// describeFailure keeps the error kind visible at the CLI boundary so a
// coverage problem reads differently from a connectivity one.
func describeFailure(err error) error {
	var dsErr *cpi.DataSourceError
	var joinErr *cpi.EmptyJoinError
	var resultErr *cpi.EmptyResultError
	switch {
	case errors.As(err, &dsErr):
		return fmt.Errorf("price store unavailable: %w", err)
	case errors.As(err, &joinErr):
		return fmt.Errorf("category coverage problem: %w", err)
	case errors.As(err, &resultErr):
		return fmt.Errorf("no computable buckets: %w", err)
	}
	return err
}

// =============================================================================
// INGEST COMMAND
// =============================================================================

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:  "ingest",
		Usage: "Clean daily price CSVs and load them with reference data into ClickHouse",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "prices",
				Usage:    "Directory of daily price CSVs",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "products",
				Usage:    "Path to products.csv",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "categories",
				Usage:    "Path to categories.csv",
				Required: true,
			},
		},
		Action: runIngest,
	}
}

func runIngest(c *cli.Context) error {
	settings, logger, err := loadSettings(c)
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := ingest.NewLoader(store, logger)
	result, err := loader.Load(context.Background(),
		c.String("prices"), c.String("products"), c.String("categories"))
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d price rows from %d files (%d dropped), %d categories, %d products\n",
		result.Stats.Kept, result.Files, result.Stats.Dropped, result.Categories, result.Products)
	return nil
}

// =============================================================================
// CONVERT COMMAND
// =============================================================================

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Re-encode a directory of CSV files to UTF-8",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Usage: "Input directory", Required: true},
			&cli.StringFlag{Name: "out", Usage: "Output directory", Required: true},
		},
		Action: func(c *cli.Context) error {
			_, logger, err := loadSettings(c)
			if err != nil {
				return err
			}
			n, err := textenc.ConvertDir(c.String("in"), c.String("out"), logger)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d files to UTF-8\n", n)
			return nil
		},
	}
}

// =============================================================================
// PING COMMAND
// =============================================================================

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "Check connectivity to the price store",
		Action: func(c *cli.Context) error {
			settings, _, err := loadSettings(c)
			if err != nil {
				return err
			}
			store, err := openStore(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
			count, err := store.CountPrices(ctx)
			if err != nil {
				return fmt.Errorf("connection ok but query failed: %w", err)
			}
			fmt.Printf("Connection successful. %d price observations stored.\n", count)
			return nil
		},
	}
}
