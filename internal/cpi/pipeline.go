package cpi

import (
	"context"
	"log/slog"
)

// Source is the read contract against the external price record store and
// weight provider. Implementations issue aggregate queries only; raw
// observations never cross this boundary.
type Source interface {
	// BasePrices returns the average price per category over the inclusive
	// window. Categories without observations produce no row.
	BasePrices(ctx context.Context, window Window) ([]BasePrice, error)
	// PeriodPrices returns the average price per (bucket, category) over the
	// inclusive window, bucketed per the granularity, ascending by bucket.
	PeriodPrices(ctx context.Context, window Window, g Granularity) ([]PeriodPrice, error)
}

// WeightSource supplies category weights for one hierarchy tier. It may be
// backed by the price store itself or by a separate reference database.
type WeightSource interface {
	CategoryWeights(ctx context.Context, tier string) ([]CategoryWeight, error)
}

// Params configures one CPI computation.
type Params struct {
	BaseWindow     Window
	AnalysisWindow Window
	// Tier selects the hierarchy level whose categories carry weights.
	// Only leaf-tier categories are weighted in this system.
	Tier string
}

// Pipeline runs the full computation for one or both granularities against a
// single source session. The session is acquired by the caller and held for
// the whole run; the pipeline itself is stateless across runs.
type Pipeline struct {
	source   Source
	weights  WeightSource
	composer *Composer
	log      *slog.Logger
}

// NewPipeline wires a pipeline from a price source, a weight source, and a
// logger. Pass the same store as both sources when weights live in the
// price store.
func NewPipeline(source Source, weights WeightSource, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		source:   source,
		weights:  weights,
		composer: NewComposer(log),
		log:      log,
	}
}

// Run computes the re-based CPI series at one granularity. Any store failure
// aborts immediately with a DataSourceError; composition never proceeds on
// partial data.
func (p *Pipeline) Run(ctx context.Context, g Granularity, params Params) (Series, QualityReport, error) {
	p.log.Info("computing cpi", slog.String("granularity", string(g)))

	bases, err := p.source.BasePrices(ctx, params.BaseWindow)
	if err != nil {
		return Series{}, QualityReport{}, &DataSourceError{Op: "base prices", Err: err}
	}
	p.log.Info("fetched base prices", slog.Int("categories", len(bases)))

	periods, err := p.source.PeriodPrices(ctx, params.AnalysisWindow, g)
	if err != nil {
		return Series{}, QualityReport{}, &DataSourceError{Op: "period prices", Err: err}
	}
	p.log.Info("fetched period prices",
		slog.String("granularity", string(g)), slog.Int("rows", len(periods)))

	weights, err := p.weights.CategoryWeights(ctx, params.Tier)
	if err != nil {
		return Series{}, QualityReport{}, &DataSourceError{Op: "category weights", Err: err}
	}
	p.log.Info("fetched category weights", slog.Int("categories", len(weights)))

	series, report, err := p.composer.Compose(g, periods, bases, weights)
	if err != nil {
		return Series{}, report, err
	}

	p.log.Info("cpi series ready",
		slog.String("granularity", string(g)),
		slog.Int("buckets", len(series.Points)),
		slog.Time("base_period", series.Points[0].Period))
	return series, report, nil
}

// CombinedResult is the output of a full two-granularity run.
type CombinedResult struct {
	Daily    Series
	Monthly  Series
	Combined []CombinedPoint
	Quality  QualityReport
}

// RunCombined computes the monthly and daily series sequentially and merges
// them on the daily backbone. The two computations are independent; a
// failure in either aborts the run without touching the other's semantics.
func (p *Pipeline) RunCombined(ctx context.Context, params Params) (*CombinedResult, error) {
	monthly, mq, err := p.Run(ctx, Monthly, params)
	if err != nil {
		return nil, err
	}
	daily, dq, err := p.Run(ctx, Daily, params)
	if err != nil {
		return nil, err
	}

	return &CombinedResult{
		Daily:    daily,
		Monthly:  monthly,
		Combined: MergeNearest(daily, monthly),
		Quality: QualityReport{
			CoercedNulls:     mq.CoercedNulls + dq.CoercedNulls,
			NullRelatives:    mq.NullRelatives + dq.NullRelatives,
			UndefinedBuckets: mq.UndefinedBuckets + dq.UndefinedBuckets,
		},
	}, nil
}
