package cpi

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves canned aggregates and can fail any query, standing in for
// the analytical store.
type fakeStore struct {
	bases   []BasePrice
	periods map[Granularity][]PeriodPrice
	weights []CategoryWeight

	baseErr   error
	periodErr error
	weightErr error

	periodCalls []Granularity
}

func (f *fakeStore) BasePrices(ctx context.Context, window Window) ([]BasePrice, error) {
	if f.baseErr != nil {
		return nil, f.baseErr
	}
	return f.bases, nil
}

func (f *fakeStore) PeriodPrices(ctx context.Context, window Window, g Granularity) ([]PeriodPrice, error) {
	f.periodCalls = append(f.periodCalls, g)
	if f.periodErr != nil {
		return nil, f.periodErr
	}
	return f.periods[g], nil
}

func (f *fakeStore) CategoryWeights(ctx context.Context, tier string) ([]CategoryWeight, error) {
	if f.weightErr != nil {
		return nil, f.weightErr
	}
	return f.weights, nil
}

func testParams() Params {
	return Params{
		BaseWindow:     Window{Start: day(2025, 5, 17), End: day(2026, 5, 17)},
		AnalysisWindow: Window{Start: day(2025, 5, 17), End: day(2028, 5, 15)},
		Tier:           "3",
	}
}

func healthyStore() *fakeStore {
	return &fakeStore{
		bases: []BasePrice{
			{CategoryID: "A", Price: num("10")},
			{CategoryID: "B", Price: num("20")},
		},
		weights: []CategoryWeight{
			{CategoryID: "A", Weight: num("0.6")},
			{CategoryID: "B", Weight: num("0.4")},
		},
		periods: map[Granularity][]PeriodPrice{
			Monthly: {
				{Period: day(2025, 6, 1), CategoryID: "A", AvgPrice: num("12")},
				{Period: day(2025, 6, 1), CategoryID: "B", AvgPrice: num("22")},
				{Period: day(2025, 7, 1), CategoryID: "A", AvgPrice: num("13")},
				{Period: day(2025, 7, 1), CategoryID: "B", AvgPrice: num("21")},
			},
			Daily: {
				{Period: day(2025, 6, 10), CategoryID: "A", AvgPrice: num("12")},
				{Period: day(2025, 6, 10), CategoryID: "B", AvgPrice: num("22")},
				{Period: day(2025, 6, 11), CategoryID: "A", AvgPrice: num("12.5")},
				{Period: day(2025, 6, 11), CategoryID: "B", AvgPrice: num("21.5")},
			},
		},
	}
}

func TestPipelineRunProducesRebasedSeries(t *testing.T) {
	store := healthyStore()
	pipeline := NewPipeline(store, store, nil)

	series, report, err := pipeline.Run(context.Background(), Monthly, testParams())
	require.NoError(t, err)
	require.Len(t, series.Points, 2)
	assert.Equal(t, Monthly, series.Granularity)
	assert.False(t, report.Dirty())
	assert.InDelta(t, 100.0, series.Points[0].Rebased.InexactFloat64(), 1e-9)
}

func TestPipelineWrapsStoreFailures(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	tests := []struct {
		name  string
		setup func(*fakeStore)
		op    string
	}{
		{name: "base query fails", setup: func(f *fakeStore) { f.baseErr = cause }, op: "base prices"},
		{name: "period query fails", setup: func(f *fakeStore) { f.periodErr = cause }, op: "period prices"},
		{name: "weight query fails", setup: func(f *fakeStore) { f.weightErr = cause }, op: "category weights"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := healthyStore()
			tt.setup(store)
			pipeline := NewPipeline(store, store, nil)

			_, _, err := pipeline.Run(context.Background(), Daily, testParams())
			require.Error(t, err)

			var dsErr *DataSourceError
			require.True(t, errors.As(err, &dsErr))
			assert.Equal(t, tt.op, dsErr.Op)
			assert.ErrorIs(t, err, cause)
		})
	}
}

func TestPipelineRunCombined(t *testing.T) {
	store := healthyStore()
	pipeline := NewPipeline(store, store, nil)

	result, err := pipeline.RunCombined(context.Background(), testParams())
	require.NoError(t, err)

	assert.Len(t, result.Monthly.Points, 2)
	assert.Len(t, result.Daily.Points, 2)
	// One combined row per daily bucket.
	require.Len(t, result.Combined, len(result.Daily.Points))
	// Both June days attach to the June monthly bucket.
	for _, row := range result.Combined {
		assert.Equal(t, day(2025, 6, 1), row.MonthPeriod)
	}
	// Both granularities were computed, month first.
	assert.Equal(t, []Granularity{Monthly, Daily}, store.periodCalls)
}

func TestPipelineRunCombinedAbortsOnFirstFailure(t *testing.T) {
	store := healthyStore()
	store.periodErr = fmt.Errorf("query timeout")
	pipeline := NewPipeline(store, store, nil)

	_, err := pipeline.RunCombined(context.Background(), testParams())
	require.Error(t, err)

	var dsErr *DataSourceError
	assert.True(t, errors.As(err, &dsErr))
	// The monthly failure aborted the run before the daily computation.
	assert.Equal(t, []Granularity{Monthly}, store.periodCalls)
}
