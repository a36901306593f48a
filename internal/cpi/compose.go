package cpi

import (
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Composer turns period aggregates, base prices, and category weights into a
// re-based CPI series. It tolerates dirty numeric input by coercing to
// explicit nulls and excluding them from every sum, and it refuses to emit an
// empty series as a success.
type Composer struct {
	log *slog.Logger
}

// NewComposer returns a Composer reporting through the given logger.
func NewComposer(log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{log: log}
}

// joinedRow is one category in one bucket after the three-way inner join.
type joinedRow struct {
	period     time.Time
	categoryID string
	avgPrice   decimal.NullDecimal
	basePrice  decimal.NullDecimal
	weight     decimal.NullDecimal
	// relative is avg/base*100, null when base is missing or zero.
	relative decimal.NullDecimal
}

// Compose runs the join, weighting, and rebase stages for one granularity.
// The returned series is ascending by period, with its earliest bucket
// re-based to exactly 100. The quality report is valid even on error.
func (c *Composer) Compose(g Granularity, periods []PeriodPrice, bases []BasePrice, weights []CategoryWeight) (Series, QualityReport, error) {
	var report QualityReport

	rows := c.join(periods, bases, weights)
	if len(rows) == 0 {
		return Series{Granularity: g}, report, &EmptyJoinError{
			Granularity: g,
			PeriodRows:  len(periods),
			BaseRows:    len(bases),
			WeightRows:  len(weights),
		}
	}

	c.relatives(rows, &report)

	points, err := c.weigh(g, rows, &report)
	if err != nil {
		return Series{Granularity: g}, report, err
	}

	c.rebase(points)

	if report.Dirty() {
		c.log.Warn("cpi composition saw dirty data",
			slog.String("granularity", string(g)),
			slog.Int("coerced_nulls", report.CoercedNulls),
			slog.Int("null_relatives", report.NullRelatives),
			slog.Int("undefined_buckets", report.UndefinedBuckets))
	}

	return Series{Granularity: g, Points: points}, report, nil
}

// join inner-joins period prices with base prices, then with weights, on
// category_id. Categories absent from either side are dropped silently:
// undercoverage is a documented data-quality trade-off, not an error.
func (c *Composer) join(periods []PeriodPrice, bases []BasePrice, weights []CategoryWeight) []joinedRow {
	baseByCat := make(map[string]decimal.NullDecimal, len(bases))
	for _, b := range bases {
		baseByCat[b.CategoryID] = b.Price
	}
	weightByCat := make(map[string]decimal.NullDecimal, len(weights))
	for _, w := range weights {
		weightByCat[w.CategoryID] = w.Weight
	}

	rows := make([]joinedRow, 0, len(periods))
	for _, p := range periods {
		base, ok := baseByCat[p.CategoryID]
		if !ok {
			continue
		}
		weight, ok := weightByCat[p.CategoryID]
		if !ok {
			continue
		}
		rows = append(rows, joinedRow{
			period:     p.Period,
			categoryID: p.CategoryID,
			avgPrice:   p.AvgPrice,
			basePrice:  base,
			weight:     weight,
		})
	}
	return rows
}

// relatives computes price_index = avg/base*100 per row. The relative is an
// explicit null, never a fabricated value, when either operand is null or
// the base price is zero. Null operands are counted once per field.
func (c *Composer) relatives(rows []joinedRow, report *QualityReport) {
	for i := range rows {
		r := &rows[i]
		for _, f := range []decimal.NullDecimal{r.avgPrice, r.basePrice, r.weight} {
			if !f.Valid {
				report.CoercedNulls++
			}
		}
		if !r.avgPrice.Valid || !r.basePrice.Valid || r.basePrice.Decimal.IsZero() {
			report.NullRelatives++
			continue
		}
		r.relative = decimal.NullDecimal{
			Decimal: r.avgPrice.Decimal.Div(r.basePrice.Decimal).Mul(hundred),
			Valid:   true,
		}
	}
}

// weigh groups rows by bucket and computes cpi = sum(relative*weight) /
// sum(weight). Null weights are excluded from the weight total; rows with a
// null relative are excluded from the weighted total. A bucket whose weight
// total is zero, or whose every relative is null, has no defined cpi and is
// dropped, flagged in the report.
func (c *Composer) weigh(g Granularity, rows []joinedRow, report *QualityReport) ([]Point, error) {
	type bucket struct {
		totalWeight   decimal.Decimal
		totalWeighted decimal.Decimal
		defined       int
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range rows {
		b := buckets[r.period]
		if b == nil {
			b = &bucket{}
			buckets[r.period] = b
		}
		if r.weight.Valid {
			b.totalWeight = b.totalWeight.Add(r.weight.Decimal)
		}
		if r.relative.Valid && r.weight.Valid {
			b.totalWeighted = b.totalWeighted.Add(r.relative.Decimal.Mul(r.weight.Decimal))
			b.defined++
		}
	}

	points := make([]Point, 0, len(buckets))
	for period, b := range buckets {
		// A bucket with no usable weights, or no defined relatives at all,
		// has no cpi. It is dropped and flagged, never reported as zero.
		if b.totalWeight.IsZero() || b.defined == 0 {
			report.UndefinedBuckets++
			c.log.Warn("bucket has no weighted relatives, cpi undefined",
				slog.String("granularity", string(g)),
				slog.Time("period", period))
			continue
		}
		points = append(points, Point{
			Period: period,
			Index:  b.totalWeighted.Div(b.totalWeight),
		})
	}
	if len(points) == 0 {
		return nil, &EmptyResultError{Granularity: g, Stage: "weighted aggregation"}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Period.Before(points[j].Period)
	})
	return points, nil
}

// rebase anchors the series so the earliest bucket equals exactly 100.
// points must be sorted ascending; ties on the minimum period resolve to the
// first row in stable order.
func (c *Composer) rebase(points []Point) {
	base := points[0].Index
	for i := range points {
		points[i].Rebased = points[i].Index.Div(base).Mul(hundred)
	}
}
