package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PriceRow is one cleaned commodity price observation ready for loading.
type PriceRow struct {
	ProductID  string
	CategoryID string
	Name       string
	Price      float64
	Date       time.Time
}

// CategoryRow is one category reference record. Weight stays a raw string;
// coercion is the composer's job.
type CategoryRow struct {
	CategoryID string
	Name       string
	Hierarchy  string
	Weight     string
}

// ProductRow is one product reference record.
type ProductRow struct {
	ProductID  string
	CategoryID string
	Name       string
}

// InsertPrices loads cleaned observations with a single batch insert. All
// rows share one batch id so a load can be traced back afterwards.
func (s *Store) InsertPrices(ctx context.Context, rows []PriceRow) (uuid.UUID, error) {
	batchID := uuid.New()
	if len(rows) == 0 {
		return batchID, nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO commodity_prices (product_id, category_id, name, price, date, ingested_at, batch_id)
	`)
	if err != nil {
		return batchID, fmt.Errorf("failed to prepare price batch: %w", err)
	}

	now := time.Now()
	for _, r := range rows {
		if err := batch.Append(r.ProductID, r.CategoryID, r.Name, r.Price, r.Date, now, batchID); err != nil {
			return batchID, fmt.Errorf("failed to append price row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return batchID, fmt.Errorf("failed to send price batch: %w", err)
	}
	return batchID, nil
}

// InsertCategories loads category reference data.
func (s *Store) InsertCategories(ctx context.Context, rows []CategoryRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO categories (category_id, name, hierarchy, weight)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare category batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(r.CategoryID, r.Name, r.Hierarchy, r.Weight); err != nil {
			return fmt.Errorf("failed to append category row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send category batch: %w", err)
	}
	return nil
}

// InsertProducts loads product reference data.
func (s *Store) InsertProducts(ctx context.Context, rows []ProductRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO products (product_id, category_id, name)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare product batch: %w", err)
	}
	for _, r := range rows {
		if err := batch.Append(r.ProductID, r.CategoryID, r.Name); err != nil {
			return fmt.Errorf("failed to append product row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send product batch: %w", err)
	}
	return nil
}

// CountPrices returns the number of stored observations, as a cheap
// connectivity and load sanity check.
func (s *Store) CountPrices(ctx context.Context) (uint64, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM commodity_prices`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return count, nil
}
