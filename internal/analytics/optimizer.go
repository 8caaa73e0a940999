package analytics

import (
	"fmt"
	"math"

	"quantdash/internal/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Allocation is the optimizer output: per-symbol weights plus the annualized
// portfolio statistics at the optimum.
type Allocation struct {
	Weights    map[string]float64 `json:"weights"` // each in [0,1], sum 1.0
	Return     float64            `json:"return"`
	Volatility float64            `json:"volatility"`
	Sharpe     float64            `json:"sharpe"`
}

const (
	penaltyWeight = 1000.0
	stdFloor      = 1e-10 // variance floor keeping the objective finite
)

// Optimize finds the long-only weights maximizing the annualized Sharpe
// ratio (risk-free rate 0): minimize −(w·μ)/√(wᵀΣw) with weights projected
// into [0,1], normalized inside the objective, and a quadratic penalty
// anchoring Σw = 1. Solved from an equal-weight start with Nelder-Mead,
// falling back to BFGS. Near-singular Σ is not validated; the solver's raw
// result is clamped, normalized and returned.
func Optimize(m *model.PriceMatrix) (*Allocation, error) {
	n := m.Cols()
	if n == 0 {
		return nil, model.ErrEmptySelection
	}
	r := m.Returns()
	if r.Rows() == 0 {
		return nil, fmt.Errorf("need at least 2 price rows to optimize, have %d", m.Rows())
	}
	if n == 1 {
		a := &Allocation{Weights: map[string]float64{m.Symbols[0]: 1.0}}
		a.Return = r.AnnualizedMean()[0]
		a.Volatility = r.AnnualizedVol()[0]
		if a.Volatility > 0 {
			a.Sharpe = a.Return / a.Volatility
		}
		return a, nil
	}

	mu := r.AnnualizedMean()
	sigma := covarianceAnnualized(r)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			w := projectUnit(x)

			sum := 0.0
			for i := range w {
				sum += w[i]
			}
			scale := math.Max(sum, 1e-10)

			var ret, variance float64
			for i := 0; i < n; i++ {
				wi := w[i] / scale
				ret += wi * mu[i]
				for j := 0; j < n; j++ {
					variance += wi * (w[j] / scale) * sigma.At(i, j)
				}
			}
			stdDev := math.Sqrt(math.Max(variance, stdFloor))

			return -ret/stdDev + penaltyWeight*(sum-1.0)*(sum-1.0)
		},
	}

	initial := make([]float64, n)
	for i := range initial {
		initial[i] = 1.0 / float64(n)
	}

	result, err := optimize.Minimize(problem, initial, nil, &optimize.NelderMead{})
	if err != nil {
		result, err = optimize.Minimize(problem, initial, nil, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("optimization failed: %w", err)
		}
	}

	// Clamp to bounds and normalize so weights sum to 1
	x := projectUnit(result.X)
	sum := 0.0
	for i := range x {
		sum += x[i]
	}
	if sum <= 0 {
		// Solver ran everything to the lower bound; fall back to the start
		copy(x, initial)
		sum = 1.0
	}

	a := &Allocation{Weights: make(map[string]float64, n)}
	var variance float64
	for i, s := range m.Symbols {
		w := x[i] / sum
		a.Weights[s] = w
		a.Return += w * mu[i]
		for j := 0; j < n; j++ {
			variance += w * (x[j] / sum) * sigma.At(i, j)
		}
	}
	a.Volatility = math.Sqrt(math.Max(variance, 0))
	if a.Volatility > 0 {
		a.Sharpe = a.Return / a.Volatility
	}
	return a, nil
}

// covarianceAnnualized builds the ×252 daily-return covariance matrix.
func covarianceAnnualized(r *model.ReturnsMatrix) *mat.SymDense {
	rows, cols := r.Rows(), len(r.Symbols)
	data := make([]float64, 0, rows*cols)
	for _, row := range r.R {
		data = append(data, row...)
	}
	x := mat.NewDense(rows, cols, data)

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	cov.ScaleSym(model.TradingDays, &cov)
	return &cov
}

// projectUnit clamps every weight into [0,1].
func projectUnit(x []float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(0, math.Min(1, x[i]))
	}
	return proj
}
