// Package ingest reads daily commodity price CSVs plus product/category
// reference data, applies the data-quality filter, and loads the canonical
// price record stream into the analytical store.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"commodity-cpi/db/clickhouse"
	"commodity-cpi/internal/textenc"
)

// dateLayouts are the formats seen in the raw drops.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"20060102",
}

// Stats summarizes one cleaning pass.
type Stats struct {
	Read    int
	Kept    int
	Dropped int
}

// Cleaner filters raw price rows down to the canonical record stream:
// parseable date, positive numeric price, non-empty product and category
// ids. Everything else is dropped and counted, never coerced.
type Cleaner struct {
	log *slog.Logger
}

// NewCleaner returns a Cleaner reporting through the given logger.
func NewCleaner(log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{log: log}
}

// header maps column names to indices, tolerating order differences between
// daily files.
type header map[string]int

func readHeader(rec []string) header {
	h := make(header, len(rec))
	for i, name := range rec {
		h[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return h
}

func (h header) get(rec []string, names ...string) string {
	for _, name := range names {
		if i, ok := h[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
	}
	return ""
}

// CleanPrices reads one daily price CSV (any supported encoding) and returns
// the rows that pass the quality filter. The raw files carry the change date
// under change_date; it becomes the observation date.
func (c *Cleaner) CleanPrices(r io.Reader) ([]clickhouse.PriceRow, Stats, error) {
	utf8, charset, err := textenc.NewUTF8Reader(r)
	if err != nil {
		return nil, Stats{}, err
	}
	c.log.Debug("reading price file", slog.String("charset", charset))

	cr := csv.NewReader(utf8)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, Stats{}, nil
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read header: %w", err)
	}
	h := readHeader(first)

	var rows []clickhouse.PriceRow
	var stats Stats
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read record: %w", err)
		}
		stats.Read++

		row, ok := c.cleanRecord(h, rec)
		if !ok {
			stats.Dropped++
			continue
		}
		stats.Kept++
		rows = append(rows, row)
	}
	return rows, stats, nil
}

func (c *Cleaner) cleanRecord(h header, rec []string) (clickhouse.PriceRow, bool) {
	productID := h.get(rec, "product_id")
	categoryID := h.get(rec, "category_id")
	if productID == "" || categoryID == "" {
		return clickhouse.PriceRow{}, false
	}

	price, err := strconv.ParseFloat(h.get(rec, "price"), 64)
	if err != nil || price <= 0 {
		return clickhouse.PriceRow{}, false
	}

	date, ok := parseDate(h.get(rec, "change_date", "date"))
	if !ok {
		return clickhouse.PriceRow{}, false
	}

	return clickhouse.PriceRow{
		ProductID:  productID,
		CategoryID: categoryID,
		Name:       h.get(rec, "name"),
		Price:      price,
		Date:       date,
	}, true
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ReadCategories parses the category reference CSV. Weight stays raw; the
// composer decides what is numeric.
func (c *Cleaner) ReadCategories(r io.Reader) ([]clickhouse.CategoryRow, error) {
	utf8, _, err := textenc.NewUTF8Reader(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(utf8)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read categories header: %w", err)
	}
	h := readHeader(first)

	var rows []clickhouse.CategoryRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read category record: %w", err)
		}
		id := h.get(rec, "category_id")
		if id == "" {
			continue
		}
		rows = append(rows, clickhouse.CategoryRow{
			CategoryID: id,
			Name:       h.get(rec, "name"),
			Hierarchy:  h.get(rec, "hierarchy"),
			Weight:     h.get(rec, "weight"),
		})
	}
	return rows, nil
}

// ReadProducts parses the product reference CSV.
func (c *Cleaner) ReadProducts(r io.Reader) ([]clickhouse.ProductRow, error) {
	utf8, _, err := textenc.NewUTF8Reader(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(utf8)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read products header: %w", err)
	}
	h := readHeader(first)

	var rows []clickhouse.ProductRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read product record: %w", err)
		}
		id := h.get(rec, "product_id")
		if id == "" {
			continue
		}
		rows = append(rows, clickhouse.ProductRow{
			ProductID:  id,
			CategoryID: h.get(rec, "category_id"),
			Name:       h.get(rec, "name"),
		})
	}
	return rows, nil
}
