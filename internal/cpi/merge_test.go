package cpi

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(t time.Time, rebased int64) Point {
	return Point{Period: t, Rebased: decimal.NewFromInt(rebased)}
}

func TestMergeNearestPicksClosestMonth(t *testing.T) {
	daily := Series{Granularity: Daily, Points: []Point{
		point(day(2025, 1, 15), 101),
	}}
	monthly := Series{Granularity: Monthly, Points: []Point{
		point(day(2025, 1, 1), 100),
		point(day(2025, 2, 1), 105),
	}}

	out := MergeNearest(daily, monthly)
	require.Len(t, out, 1)

	// 14 days to 2025-01-01 vs 17 days to 2025-02-01.
	assert.Equal(t, day(2025, 1, 1), out[0].MonthPeriod)
	assert.Equal(t, "100", out[0].MonthIndex.String())
}

func TestMergeNearestTieBreaksEarlier(t *testing.T) {
	daily := Series{Granularity: Daily, Points: []Point{
		point(day(2025, 1, 16), 100),
	}}
	monthly := Series{Granularity: Monthly, Points: []Point{
		point(day(2025, 1, 1), 100),
		point(day(2025, 1, 31), 104),
	}}

	out := MergeNearest(daily, monthly)
	require.Len(t, out, 1)
	// 15 days either way: the earlier monthly bucket wins.
	assert.Equal(t, day(2025, 1, 1), out[0].MonthPeriod)
}

func TestMergeCompleteness(t *testing.T) {
	var dailyPoints []Point
	start := day(2025, 1, 2)
	for i := 0; i < 90; i++ {
		dailyPoints = append(dailyPoints, point(start.AddDate(0, 0, i), int64(100+i)))
	}
	daily := Series{Granularity: Daily, Points: dailyPoints}
	monthly := Series{Granularity: Monthly, Points: []Point{
		point(day(2025, 1, 1), 100),
		point(day(2025, 2, 1), 102),
		point(day(2025, 3, 1), 104),
	}}

	out := MergeNearest(daily, monthly)
	require.Len(t, out, len(dailyPoints))

	// Every daily bucket appears exactly once, in order, with its own value.
	seen := make(map[time.Time]bool, len(out))
	for i, row := range out {
		assert.Equal(t, dailyPoints[i].Period, row.DayPeriod)
		assert.False(t, seen[row.DayPeriod], "duplicated daily bucket %s", row.DayPeriod)
		seen[row.DayPeriod] = true
	}

	// Mid-February days attach to the February bucket.
	assert.Equal(t, day(2025, 2, 1), out[44].MonthPeriod)
}

func TestMergeMonthlyValuesRepeatAcrossDays(t *testing.T) {
	daily := Series{Granularity: Daily, Points: []Point{
		point(day(2025, 1, 10), 100),
		point(day(2025, 1, 11), 101),
		point(day(2025, 1, 12), 102),
	}}
	monthly := Series{Granularity: Monthly, Points: []Point{
		point(day(2025, 1, 1), 100),
	}}

	out := MergeNearest(daily, monthly)
	require.Len(t, out, 3)
	for _, row := range out {
		assert.Equal(t, day(2025, 1, 1), row.MonthPeriod)
	}
}

func TestMergeEmptyInputsYieldEmptyOutput(t *testing.T) {
	populated := Series{Granularity: Daily, Points: []Point{point(day(2025, 1, 1), 100)}}

	assert.Empty(t, MergeNearest(Series{}, populated))
	assert.Empty(t, MergeNearest(populated, Series{}))
	assert.Empty(t, MergeNearest(Series{}, Series{}))
}
