package schedule

// DefaultSlackFactor leaves headroom in each day for travel and overruns:
// once packed minutes reach this fraction of the day, the day takes no more.
const DefaultSlackFactor = 0.9

// packDay fills one working day from the urgency-ordered pool. It consumes
// from the front in order, skipping entries that no longer fit; skipped
// entries stay in the pool for later days. Returns the packed entries and
// the remaining pool.
//
// Acceptance is against the full hours*60 budget; the slack factor is a
// stop condition, not a tighter bound. Once used minutes reach
// slack*budget the day is closed and everything left goes back to the
// pool. Only job minutes count against the budget; travel is reported
// separately.
func packDay(pool []urgencyEntry, hours, slack float64) (packed, rest []urgencyEntry) {
	if slack <= 0 || slack > 1 {
		slack = DefaultSlackFactor
	}
	budget := hours * 60
	cutoff := budget * slack
	used := 0.0
	for i, e := range pool {
		if used >= cutoff {
			rest = append(rest, pool[i:]...)
			break
		}
		if used+float64(e.Duration) <= budget {
			packed = append(packed, e)
			used += float64(e.Duration)
		} else {
			rest = append(rest, e)
		}
	}
	return packed, rest
}
