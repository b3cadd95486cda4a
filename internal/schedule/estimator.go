package schedule

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultJobMinutes is used when neither history nor a customer estimate
// gives a duration.
const DefaultJobMinutes = 30

// historyWindow caps how many recent samples feed the median.
const historyWindow = 10

// HistorySource supplies completed-job durations for a customer, most recent
// first.
type HistorySource interface {
	DurationHistory(ctx context.Context, customerID string, limit int) ([]float64, error)
}

// Estimator resolves per-customer job durations from service history, backed
// by a declared estimate when history is thin or unavailable.
type Estimator struct {
	History HistorySource
}

// Estimate returns a duration in minutes and its source, "actual" when
// derived from history and "estimated" otherwise.
//
// One sample is trusted as-is, two are averaged, three or more take the
// median of the most recent window. Median keeps a single outlier visit
// (a one-off deep clean, a bad clock) from dragging every future estimate.
func (e Estimator) Estimate(ctx context.Context, customerID string, declared int) (int, string) {
	fallback := declared
	if fallback <= 0 {
		fallback = DefaultJobMinutes
	}
	if e.History == nil {
		return fallback, "estimated"
	}
	samples, err := e.History.DurationHistory(ctx, customerID, historyWindow)
	if err != nil || len(samples) == 0 {
		return fallback, "estimated"
	}
	switch len(samples) {
	case 1:
		return roundMinutes(samples[0]), "actual"
	case 2:
		return roundMinutes(stat.Mean(samples, nil)), "actual"
	}
	xs := append([]float64(nil), samples...)
	sort.Float64s(xs)
	return roundMinutes(stat.Quantile(0.5, stat.LinInterp, xs, nil)), "actual"
}

func roundMinutes(v float64) int {
	if v <= 0 {
		return DefaultJobMinutes
	}
	return int(v + 0.5)
}
