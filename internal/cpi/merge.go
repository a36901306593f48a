package cpi

import "time"

// MergeNearest aligns a daily CPI series with a monthly one. The daily series
// is the backbone: every daily bucket appears exactly once in the output,
// carrying the monthly bucket whose period is nearest in time. An exact
// distance tie resolves to the earlier monthly period. If either input is
// empty the merge is empty; that is the caller's condition to handle, not an
// error.
//
// Both inputs must already be sorted ascending by period, which is how the
// Composer emits them.
func MergeNearest(daily, monthly Series) []CombinedPoint {
	if daily.Empty() || monthly.Empty() {
		return nil
	}

	out := make([]CombinedPoint, 0, len(daily.Points))
	j := 0
	for _, d := range daily.Points {
		// Advance while the next monthly bucket is strictly closer. On an
		// exact tie the earlier bucket is kept.
		for j+1 < len(monthly.Points) {
			cur := absDuration(d.Period.Sub(monthly.Points[j].Period))
			next := absDuration(d.Period.Sub(monthly.Points[j+1].Period))
			if next >= cur {
				break
			}
			j++
		}
		m := monthly.Points[j]
		out = append(out, CombinedPoint{
			DayPeriod:   d.Period,
			DayIndex:    d.Rebased,
			MonthPeriod: m.Period,
			MonthIndex:  m.Rebased,
		})
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
