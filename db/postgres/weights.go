// Package postgres provides an alternate category weight provider backed by
// a relational reference database. Deployments that keep the category
// taxonomy in Postgres instead of the analytical store plug this in as the
// pipeline's weight source.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"commodity-cpi/internal/cpi"
)

// WeightProvider reads category weights over database/sql.
type WeightProvider struct {
	db *sql.DB
}

// Open connects to the reference database with a lib/pq DSN.
func Open(dsn string) (*WeightProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &WeightProvider{db: db}, nil
}

// Close releases the connection pool.
func (p *WeightProvider) Close() error { return p.db.Close() }

// CategoryWeights returns one row per category at the given hierarchy tier.
// Weights come back raw; unparseable values are explicit nulls downstream,
// matching the analytical-store provider.
func (p *WeightProvider) CategoryWeights(ctx context.Context, tier string) ([]cpi.CategoryWeight, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT category_id, weight::text FROM categories WHERE hierarchy = $1`, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to query category weights: %w", err)
	}
	defer rows.Close()

	var out []cpi.CategoryWeight
	for rows.Next() {
		var categoryID string
		var weight sql.NullString
		if err := rows.Scan(&categoryID, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan category weight: %w", err)
		}
		out = append(out, cpi.CategoryWeight{
			CategoryID: categoryID,
			Weight:     cpi.ParseDecimal(weight.String),
		})
	}
	return out, rows.Err()
}
