package opt

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// Anneal is a simulated-annealing sequencer for larger stop sets where plain
// 2-opt tends to stall in a local minimum. Two neighborhood operators,
// segment reversal and single-stop relocation, are picked by roulette wheel
// with adaptive weights.
type Anneal struct {
	Seed            int64
	TimeBudget      time.Duration
	IterationsLimit int
	InitialTemp     float64
	Cooling         float64
}

// Metrics describes one annealing run for operational inspection.
type Metrics struct {
	OperatorSelects [2]int // reverse, relocate
	Iterations      int
	Improvements    int
	AcceptedWorse   int
	BestMeters      float64
	FinalMeters     float64
	FinalWeights    [2]float64
	Snapshots       []WeightSnapshot
}

type WeightSnapshot struct {
	Iteration int
	Weights   [2]float64
}

func (Anneal) Name() string { return "anneal" }

func (a Anneal) Sequence(start StopNode, stops []StopNode) ([]int, error) {
	order, _ := a.Run(start, stops)
	return order, nil
}

// Run is Sequence plus the run metrics, for callers that record them.
func (a Anneal) Run(start StopNode, stops []StopNode) ([]int, Metrics) {
	n := len(stops)
	if n == 0 {
		return []int{}, Metrics{}
	}
	if n == 1 {
		return []int{0}, Metrics{Iterations: 0, BestMeters: openPathMeters(start, stops, []int{0})}
	}
	seed := a.Seed
	if seed == 0 {
		// repeated runs over the same stop set must agree, so the default
		// seed comes from the input, not the clock
		seed = seedFor(start, stops)
	}
	rng := rand.New(rand.NewSource(seed))
	budget := a.TimeBudget
	if budget <= 0 {
		budget = 200 * time.Millisecond
	}
	// seed solution via nearest neighbor
	curr := nearestNeighborOrder(start, stops)
	currDist := openPathMeters(start, stops, curr)
	best := append([]int(nil), curr...)
	bestDist := currDist
	w := [2]float64{1, 1} // reverse, relocate
	temp := bestDist * 0.1
	if a.InitialTemp > 0 {
		temp = a.InitialTemp
	}
	cool := 0.995
	if a.Cooling > 0 && a.Cooling < 1 {
		cool = a.Cooling
	}
	// iteration-bound by default; a purely wall-clock loop would return
	// different orders for the same input depending on machine load
	limit := a.IterationsLimit
	if limit <= 0 {
		limit = 2000 * n
	}
	m := Metrics{BestMeters: bestDist}
	deadline := time.Now().Add(budget)
	snapshotEvery := 50
	for time.Now().Before(deadline) {
		m.Iterations++
		if m.Iterations >= limit {
			break
		}
		op := selectOp(w[:], rng)
		m.OperatorSelects[op]++
		var cand []int
		switch op {
		case 0:
			i := rng.Intn(n)
			k := rng.Intn(n)
			if i > k {
				i, k = k, i
			}
			cand = twoOptSwap(curr, i, k)
		case 1:
			cand = relocateOne(curr, rng)
		}
		d := openPathMeters(start, stops, cand)
		delta := d - currDist
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			curr = cand
			currDist = d
			if d+1e-3 < bestDist {
				best = append(best[:0:0], cand...)
				bestDist = d
				w[op] += 0.1
				m.Improvements++
				m.BestMeters = bestDist
			} else {
				w[op] += 0.01
				m.AcceptedWorse++
			}
		} else {
			w[op] = math.Max(0.01, w[op]*0.999)
		}
		temp *= cool
		if m.Iterations%snapshotEvery == 0 {
			m.Snapshots = append(m.Snapshots, WeightSnapshot{Iteration: m.Iterations, Weights: w})
		}
	}
	// final polish
	best = improve2Opt(start, stops, best, 3)
	m.FinalMeters = openPathMeters(start, stops, best)
	m.FinalWeights = w
	return best, m
}

// seedFor hashes the stop coordinates into a seed so that identical inputs
// replay the same random walk.
func seedFor(start StopNode, stops []StopNode) int64 {
	h := fnv.New64a()
	buf := make([]byte, 8)
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		_, _ = h.Write(buf)
	}
	put(start.Lat)
	put(start.Lng)
	for _, s := range stops {
		put(s.Lat)
		put(s.Lng)
	}
	seed := int64(h.Sum64())
	if seed == 0 {
		seed = 1
	}
	return seed
}

// relocateOne moves a random stop to a random other position.
func relocateOne(ord []int, rng *rand.Rand) []int {
	n := len(ord)
	out := append([]int(nil), ord...)
	i := rng.Intn(n)
	j := rng.Intn(n)
	if i == j {
		return out
	}
	v := out[i]
	out = append(out[:i], out[i+1:]...)
	out = append(out[:j], append([]int{v}, out[j:]...)...)
	return out
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}
