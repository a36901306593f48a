// Package cpi computes a weighted consumer price index from commodity price
// aggregates: base-period selection, per-granularity time bucketing, weighted
// index composition, dynamic re-basing, and cross-granularity merging.
package cpi

import (
	"time"

	"github.com/shopspring/decimal"
)

// Granularity selects the time-bucketing resolution for period aggregates.
type Granularity string

const (
	Daily   Granularity = "day"
	Monthly Granularity = "month"
)

// Valid reports whether g is one of the supported granularities.
func (g Granularity) Valid() bool {
	return g == Daily || g == Monthly
}

// Window is an inclusive calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// BasePrice is the average price of one category over the base window.
// One row per category with at least one observation in the window.
type BasePrice struct {
	CategoryID string
	Price      decimal.NullDecimal
}

// PeriodPrice is the average price of one category in one time bucket.
// The bucket is a calendar day, or the first day of the containing month.
type PeriodPrice struct {
	Period     time.Time
	CategoryID string
	AvgPrice   decimal.NullDecimal
}

// CategoryWeight is the relative weight of one leaf-tier category.
// Weights are consumed as given; they are not required to sum to 1.
type CategoryWeight struct {
	CategoryID string
	Weight     decimal.NullDecimal
}

// Point is one bucket of a computed CPI series. Index is the raw weighted
// average of price relatives; Rebased is Index scaled so the earliest bucket
// of the series equals exactly 100.
type Point struct {
	Period  time.Time
	Index   decimal.Decimal
	Rebased decimal.Decimal
}

// Series is an ordered CPI series tagged with the granularity it was
// computed at, so day and month outputs can be told apart side by side.
type Series struct {
	Granularity Granularity
	Points      []Point
}

// Empty reports whether the series has no buckets.
func (s Series) Empty() bool { return len(s.Points) == 0 }

// CombinedPoint is one daily backbone row enriched with the monthly bucket
// whose period is nearest in time. Monthly values repeat across consecutive
// daily rows that map to the same month.
type CombinedPoint struct {
	DayPeriod   time.Time
	DayIndex    decimal.Decimal
	MonthPeriod time.Time
	MonthIndex  decimal.Decimal
}

// QualityReport counts the non-fatal data-quality conditions observed during
// one composition run. It is reported, never raised.
type QualityReport struct {
	// CoercedNulls is the number of numeric fields that failed parse-or-null
	// coercion across the joined rows.
	CoercedNulls int
	// NullRelatives is the number of joined rows whose price relative was
	// undefined (missing or zero base price) and was excluded from weighting.
	NullRelatives int
	// UndefinedBuckets is the number of time buckets dropped because their
	// total weight was zero or null.
	UndefinedBuckets int
}

// Dirty reports whether any data-quality condition was observed.
func (q QualityReport) Dirty() bool {
	return q.CoercedNulls > 0 || q.NullRelatives > 0 || q.UndefinedBuckets > 0
}

// ParseDecimal coerces a raw value to a decimal, or to an explicit null when
// the value is empty or not numeric. Nulls are never treated as zero.
func ParseDecimal(raw string) decimal.NullDecimal {
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// DecimalFromFloat wraps a known-numeric value as a valid nullable decimal.
func DecimalFromFloat(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}
