package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"commodity-cpi/db/clickhouse"
)

// Loader moves cleaned reference and price data into the analytical store.
type Loader struct {
	store   *clickhouse.Store
	cleaner *Cleaner
	log     *slog.Logger
}

// NewLoader wires a loader against an open store session.
func NewLoader(store *clickhouse.Store, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{store: store, cleaner: NewCleaner(log), log: log}
}

// LoadResult summarizes one full load.
type LoadResult struct {
	Files      int
	Categories int
	Products   int
	Stats      Stats
}

// Load ingests the reference CSVs and every daily price CSV under priceDir.
// Tables are created if missing. Any failure aborts the load; partially
// loaded batches are identifiable by batch id.
func (l *Loader) Load(ctx context.Context, priceDir, productsPath, categoriesPath string) (*LoadResult, error) {
	if err := l.store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result := &LoadResult{}

	categories, err := l.readCategories(categoriesPath)
	if err != nil {
		return nil, err
	}
	if err := l.store.InsertCategories(ctx, categories); err != nil {
		return nil, err
	}
	result.Categories = len(categories)

	products, err := l.readProducts(productsPath)
	if err != nil {
		return nil, err
	}
	if err := l.store.InsertProducts(ctx, products); err != nil {
		return nil, err
	}
	result.Products = len(products)

	entries, err := os.ReadDir(priceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", priceDir, err)
	}

	var pending []clickhouse.PriceRow
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		path := filepath.Join(priceDir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		rows, stats, err := l.cleaner.CleanPrices(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to clean %s: %w", path, err)
		}

		l.log.Info("cleaned price file",
			slog.String("file", entry.Name()),
			slog.Int("read", stats.Read),
			slog.Int("kept", stats.Kept),
			slog.Int("dropped", stats.Dropped))

		pending = append(pending, rows...)
		result.Files++
		result.Stats.Read += stats.Read
		result.Stats.Kept += stats.Kept
		result.Stats.Dropped += stats.Dropped
	}

	batchID, err := l.store.InsertPrices(ctx, pending)
	if err != nil {
		return nil, err
	}

	l.log.Info("price load complete",
		slog.String("batch_id", batchID.String()),
		slog.Int("files", result.Files),
		slog.Int("rows", result.Stats.Kept))
	return result, nil
}

func (l *Loader) readCategories(path string) ([]clickhouse.CategoryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return l.cleaner.ReadCategories(f)
}

func (l *Loader) readProducts(path string) ([]clickhouse.ProductRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return l.cleaner.ReadProducts(f)
}
