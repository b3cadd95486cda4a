package opt

import (
	"fmt"
	"time"

	"paneplan/internal/geo"
)

// StopNode holds minimal info for routing heuristics
type StopNode struct {
	Lat float64
	Lng float64
}

// Sequencer orders a set of stops into an open path that begins at a fixed
// start location. The returned slice is a permutation of 0..len(stops)-1.
type Sequencer interface {
	Name() string
	Sequence(start StopNode, stops []StopNode) ([]int, error)
}

// Greedy is the default sequencer: nearest-neighbor construction followed by
// a 2-opt improvement pass.
type Greedy struct {
	Iterations int // 2-opt sweep cap; <=0 means a sane default
}

func (Greedy) Name() string { return "greedy-2opt" }

func (g Greedy) Sequence(start StopNode, stops []StopNode) ([]int, error) {
	n := len(stops)
	if n == 0 {
		return []int{}, nil
	}
	if n == 1 {
		return []int{0}, nil
	}
	order := nearestNeighborOrder(start, stops)
	iters := g.Iterations
	if iters <= 0 {
		iters = 10
	}
	order = improve2Opt(start, stops, order, iters)
	return order, nil
}

// nearestNeighborOrder builds an initial path greedily. Ties break on the
// lowest input index so repeated runs over the same input agree.
func nearestNeighborOrder(start StopNode, stops []StopNode) []int {
	n := len(stops)
	visited := make([]bool, n)
	order := make([]int, 0, n)
	cur := start
	for len(order) < n {
		best := -1
		bestDist := 0.0
		for i := 0; i < n; i++ {
			if visited[i] {
				continue
			}
			d := geo.Meters(cur.Lat, cur.Lng, stops[i].Lat, stops[i].Lng)
			if best == -1 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		visited[best] = true
		order = append(order, best)
		cur = stops[best]
	}
	return order
}

// improve2Opt applies 2-opt sweeps to an open path anchored at start. The
// start is fixed; the tail stop is free, so segment reversals may include it.
func improve2Opt(start StopNode, stops []StopNode, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestDist := openPathMeters(start, stops, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				cand := twoOptSwap(best, i, k)
				d := openPathMeters(start, stops, cand)
				if d+1e-3 < bestDist {
					best = cand
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

// openPathMeters is the total leg distance start -> order[0] -> ... -> order[n-1].
// No return leg; the path is open.
func openPathMeters(start StopNode, stops []StopNode, order []int) float64 {
	total := 0.0
	cur := start
	for _, idx := range order {
		total += geo.Meters(cur.Lat, cur.Lng, stops[idx].Lat, stops[idx].Lng)
		cur = stops[idx]
	}
	return total
}

// ForAlgorithm resolves a requested algorithm name to a sequencer. Unknown
// names are an error so callers can degrade to input order explicitly.
func ForAlgorithm(name string, budget time.Duration) (Sequencer, error) {
	switch name {
	case "", "greedy", "greedy-2opt":
		return Greedy{}, nil
	case "anneal":
		return Anneal{TimeBudget: budget}, nil
	}
	return nil, fmt.Errorf("unknown sequencing algorithm %q", name)
}
