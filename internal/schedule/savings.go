package schedule

import (
	"paneplan/internal/geo"
	"paneplan/internal/model"
	"paneplan/internal/opt"
)

// StopBufferMinutes is the fixed per-stop handling allowance (parking,
// setup, payment) added to travel on both sides of the comparison.
const StopBufferMinutes = 7.0

// routeMinutes totals travel for a closed tour: start through the stops in
// the given order and back to start, plus the per-stop buffer.
func routeMinutes(start opt.StopNode, stops []opt.StopNode, order []int, speedKmh float64) float64 {
	if len(order) == 0 {
		return 0
	}
	meters := 0.0
	cur := start
	for _, idx := range order {
		meters += geo.Meters(cur.Lat, cur.Lng, stops[idx].Lat, stops[idx].Lng)
		cur = stops[idx]
	}
	meters += geo.Meters(cur.Lat, cur.Lng, start.Lat, start.Lng)
	return geo.TravelMinutes(meters, speedKmh) + StopBufferMinutes*float64(len(order))
}

// compareSavings measures the optimized order against the original input
// order for one day. TimeSavedMinutes keeps its sign here; clamping a
// negative result to zero is the presentation layer's call, and hiding a
// regression from the core would also hide sequencer bugs.
func compareSavings(start opt.StopNode, stops []opt.StopNode, optimized []int, speedKmh, costPerMinute float64) model.Savings {
	original := make([]int, len(stops))
	for i := range original {
		original[i] = i
	}
	optMin := routeMinutes(start, stops, optimized, speedKmh)
	origMin := routeMinutes(start, stops, original, speedKmh)
	saved := origMin - optMin
	s := model.Savings{
		OptimizedMinutes:   optMin,
		UnoptimizedMinutes: origMin,
		TimeSavedMinutes:   saved,
		CostSaved:          saved * costPerMinute,
	}
	if origMin > 0 {
		s.ImprovementPct = saved / origMin * 100
	}
	return s
}
