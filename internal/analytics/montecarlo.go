package analytics

import (
	"sort"
	"time"

	"quantdash/internal/model"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simulation holds the projected portfolio value paths: Runs rows of
// Days+1 values each (the initial shocked price included). Ephemeral:
// regenerated per request, never persisted.
type Simulation struct {
	Runs  int         `json:"runs"`
	Days  int         `json:"days"`
	Paths [][]float64 `json:"paths"`
}

// Simulate runs a naive geometric-Brownian-motion walk. The multi-asset
// selection is collapsed to a single asset with averaged parameters: the
// start price is the cross-symbol mean of the latest closes, and the drift
// and noise are the cross-symbol means of the per-symbol daily return
// mean/std. No correlation between assets is modeled. Each run draws one
// initial N(0, σ) shock, then compounds Days independent N(μ, σ) shocks
// multiplicatively. A shock multiplier > 1 widens every path value post-hoc
// with N(0, 0.01·shock) noise rather than feeding the generation step.
// A zero seed means time-based; a fixed seed reproduces the paths exactly.
func Simulate(m *model.PriceMatrix, runs, days int, shock float64, seed uint64) *Simulation {
	r := m.Returns()
	lastPrice := m.LastRowMean()
	dailyMean := stat.Mean(r.MeanDaily(), nil)
	dailyVol := stat.Mean(r.StdDaily(), nil)

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)
	initShock := distuv.Normal{Mu: 0, Sigma: dailyVol, Src: src}
	step := distuv.Normal{Mu: dailyMean, Sigma: dailyVol, Src: src}

	sim := &Simulation{Runs: runs, Days: days, Paths: make([][]float64, runs)}
	for i := 0; i < runs; i++ {
		path := make([]float64, days+1)
		path[0] = lastPrice * (1 + initShock.Rand())
		for t := 1; t <= days; t++ {
			path[t] = path[t-1] * (1 + step.Rand())
		}
		sim.Paths[i] = path
	}

	if shock > 1.0 {
		noise := distuv.Normal{Mu: 0, Sigma: 0.01 * shock, Src: src}
		for _, path := range sim.Paths {
			for t := range path {
				path[t] *= 1 + noise.Rand()
			}
		}
	}
	return sim
}

// PathSummary aggregates the simulation in a run-order-invariant way.
type PathSummary struct {
	Median         []float64 `json:"median"`          // per-day median across runs
	TerminalMedian float64   `json:"terminal_median"` // projected median value
	TerminalP5     float64   `json:"terminal_p5"`     // worst case at 5% risk
}

// Summary computes the median path and terminal-value quantiles.
func (s *Simulation) Summary() PathSummary {
	out := PathSummary{Median: make([]float64, s.Days+1)}
	col := make([]float64, s.Runs)
	for t := 0; t <= s.Days; t++ {
		for i := range s.Paths {
			col[i] = s.Paths[i][t]
		}
		sort.Float64s(col)
		out.Median[t] = stat.Quantile(0.5, stat.Empirical, col, nil)
	}

	terminal := make([]float64, s.Runs)
	for i := range s.Paths {
		terminal[i] = s.Paths[i][s.Days]
	}
	sort.Float64s(terminal)
	out.TerminalMedian = stat.Quantile(0.5, stat.Empirical, terminal, nil)
	out.TerminalP5 = stat.Quantile(0.05, stat.Empirical, terminal, nil)
	return out
}
