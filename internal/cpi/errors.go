package cpi

import "fmt"

// DataSourceError wraps a failed interaction with the external price store.
// Composition must not proceed on partial data, so these abort the run.
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source: %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// EmptyJoinError signals that the three-way join of period prices, base
// prices, and weights produced zero rows. This is a coverage or
// configuration problem (mismatched category_id domains), not a transient
// fault, and CPI cannot be computed from zero categories.
type EmptyJoinError struct {
	Granularity Granularity
	PeriodRows  int
	BaseRows    int
	WeightRows  int
}

func (e *EmptyJoinError) Error() string {
	return fmt.Sprintf("%s cpi: join of %d period rows, %d base rows, %d weight rows produced no matches",
		e.Granularity, e.PeriodRows, e.BaseRows, e.WeightRows)
}

// EmptyResultError signals that the grouped weighted aggregation yielded
// zero usable buckets, e.g. when every bucket's total weight was null or
// zero. An empty series is never returned as if it were valid data.
type EmptyResultError struct {
	Granularity Granularity
	Stage       string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("%s cpi: %s produced no result rows", e.Granularity, e.Stage)
}
