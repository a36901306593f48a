// Package clickhouse implements the commodity price record store on
// ClickHouse. The CPI pipeline only issues aggregate queries against it;
// ingestion loads cleaned price records and category reference data.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"commodity-cpi/internal/cpi"
)

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     9000,
		Database: "commodity",
		Username: "default",
		Password: "",
	}
}

// Store is a single logical session against the analytical store. It is
// acquired once per top-level computation and must be released with Close on
// every exit path.
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore opens a native-protocol connection to ClickHouse.
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close releases the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the price and reference tables if they do not exist.
// The categories weight column is deliberately String: reference CSVs are
// loaded verbatim and numeric coercion happens downstream, where unparseable
// values become explicit nulls instead of silent zeros.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS commodity_prices (
			product_id  String,
			category_id String,
			name        String,
			price       Float64,
			date        Date,
			ingested_at DateTime DEFAULT now(),
			batch_id    UUID
		) ENGINE = MergeTree()
		ORDER BY (category_id, date)`,
		`CREATE TABLE IF NOT EXISTS categories (
			category_id String,
			name        String,
			hierarchy   String,
			weight      String
		) ENGINE = ReplacingMergeTree()
		ORDER BY category_id`,
		`CREATE TABLE IF NOT EXISTS products (
			product_id  String,
			category_id String,
			name        String
		) ENGINE = ReplacingMergeTree()
		ORDER BY product_id`,
	}
	for _, q := range ddl {
		if err := s.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// =============================================================================
// AGGREGATE QUERIES (cpi.Source / cpi.WeightSource)
// =============================================================================

// BasePrices returns the average price per category over the inclusive base
// window. Categories with no observations in the window produce no row.
func (s *Store) BasePrices(ctx context.Context, window cpi.Window) ([]cpi.BasePrice, error) {
	query := `
		SELECT category_id, avg(price) AS base_price
		FROM commodity_prices
		WHERE date BETWEEN ? AND ?
		GROUP BY category_id
	`
	rows, err := s.conn.Query(ctx, query, dateArg(window.Start), dateArg(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query base prices: %w", err)
	}
	defer rows.Close()

	var out []cpi.BasePrice
	for rows.Next() {
		var categoryID string
		var price float64
		if err := rows.Scan(&categoryID, &price); err != nil {
			return nil, fmt.Errorf("failed to scan base price: %w", err)
		}
		out = append(out, cpi.BasePrice{
			CategoryID: categoryID,
			Price:      cpi.DecimalFromFloat(price),
		})
	}
	return out, rows.Err()
}

// PeriodPrices returns the average price per (bucket, category) over the
// analysis window, bucketed by calendar day or by first day of the
// containing month, ascending by bucket. Buckets are implied by data
// presence, not a fixed calendar.
func (s *Store) PeriodPrices(ctx context.Context, window cpi.Window, g cpi.Granularity) ([]cpi.PeriodPrice, error) {
	var bucket string
	switch g {
	case cpi.Monthly:
		bucket = "toStartOfMonth(date)"
	case cpi.Daily:
		bucket = "toDate(date)"
	default:
		return nil, fmt.Errorf("unsupported granularity %q", g)
	}

	query := fmt.Sprintf(`
		SELECT %s AS time_period, category_id, avg(price) AS avg_price
		FROM commodity_prices
		WHERE date BETWEEN ? AND ?
		GROUP BY time_period, category_id
		ORDER BY time_period
	`, bucket)

	rows, err := s.conn.Query(ctx, query, dateArg(window.Start), dateArg(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s period prices: %w", g, err)
	}
	defer rows.Close()

	var out []cpi.PeriodPrice
	for rows.Next() {
		var period time.Time
		var categoryID string
		var avg float64
		if err := rows.Scan(&period, &categoryID, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan period price: %w", err)
		}
		out = append(out, cpi.PeriodPrice{
			Period:     period.UTC(),
			CategoryID: categoryID,
			AvgPrice:   cpi.DecimalFromFloat(avg),
		})
	}
	return out, rows.Err()
}

// CategoryWeights returns the raw weight per category at one hierarchy tier.
// Weights are relative values consumed as given; no normalization happens
// here. Unparseable weights come back as explicit nulls.
func (s *Store) CategoryWeights(ctx context.Context, tier string) ([]cpi.CategoryWeight, error) {
	query := `SELECT category_id, weight FROM categories FINAL WHERE hierarchy = ?`
	rows, err := s.conn.Query(ctx, query, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to query category weights: %w", err)
	}
	defer rows.Close()

	var out []cpi.CategoryWeight
	for rows.Next() {
		var categoryID, weight string
		if err := rows.Scan(&categoryID, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan category weight: %w", err)
		}
		out = append(out, cpi.CategoryWeight{
			CategoryID: categoryID,
			Weight:     cpi.ParseDecimal(weight),
		})
	}
	return out, rows.Err()
}

func dateArg(t time.Time) string {
	return t.Format("2006-01-02")
}
