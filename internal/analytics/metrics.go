// Package analytics holds the pure computations behind the dashboard:
// returns and volatility, the max-Sharpe allocation, the Monte Carlo
// projection and the rule-based ratings. Nothing here performs I/O; every
// function takes a price matrix (plus scalar config) and returns plain
// numeric tables.
package analytics

import (
	"quantdash/internal/model"

	"gonum.org/v1/gonum/stat"
)

// Metrics bundles the per-symbol statistics derived from a price matrix.
type Metrics struct {
	Returns          *model.ReturnsMatrix `json:"-"`
	Symbols          []string             `json:"symbols"`
	Volatility       []float64            `json:"volatility"`        // annualized std of daily returns
	AnnualizedReturn []float64            `json:"annualized_return"` // mean daily return ×252
}

// Compute derives returns and annualized statistics from a price matrix.
func Compute(m *model.PriceMatrix) *Metrics {
	r := m.Returns()
	return &Metrics{
		Returns:          r,
		Symbols:          r.Symbols,
		Volatility:       r.AnnualizedVol(),
		AnnualizedReturn: r.AnnualizedMean(),
	}
}

// KPI holds the header-card numbers for the current selection.
type KPI struct {
	BestSymbol     string  `json:"best_symbol"` // top mover over the last day
	BestChange     float64 `json:"best_change"`
	WorstSymbol    string  `json:"worst_symbol"`
	WorstChange    float64 `json:"worst_change"`
	MeanVolatility float64 `json:"mean_volatility"` // cross-symbol mean, annualized
	PeriodReturn   float64 `json:"period_return"`   // mean of last/first −1
}

// KPIs computes the dashboard header cards from a price matrix with at
// least two rows.
func KPIs(m *model.PriceMatrix) KPI {
	mx := Compute(m)
	lastDay := mx.Returns.R[mx.Returns.Rows()-1]

	k := KPI{BestChange: lastDay[0], WorstChange: lastDay[0]}
	k.BestSymbol, k.WorstSymbol = m.Symbols[0], m.Symbols[0]
	for j, v := range lastDay {
		if v > k.BestChange {
			k.BestChange, k.BestSymbol = v, m.Symbols[j]
		}
		if v < k.WorstChange {
			k.WorstChange, k.WorstSymbol = v, m.Symbols[j]
		}
	}

	k.MeanVolatility = stat.Mean(mx.Volatility, nil)

	growth := make([]float64, m.Cols())
	last, first := m.Close[m.Rows()-1], m.Close[0]
	for j := range growth {
		growth[j] = last[j]/first[j] - 1
	}
	k.PeriodReturn = stat.Mean(growth, nil)
	return k
}

// RiskReturnPoint positions one symbol on the risk/return scatter used to
// visualize the neighborhood of the efficient frontier.
type RiskReturnPoint struct {
	Symbol string  `json:"symbol"`
	Risk   float64 `json:"risk"`   // annualized volatility
	Return float64 `json:"return"` // annualized mean return
	Sector string  `json:"sector,omitempty"`
}

// RiskReturn computes the per-symbol scatter points, labelled by sector.
func RiskReturn(m *model.PriceMatrix, sectors map[string]string) []RiskReturnPoint {
	mx := Compute(m)
	out := make([]RiskReturnPoint, len(mx.Symbols))
	for j, s := range mx.Symbols {
		out[j] = RiskReturnPoint{
			Symbol: s,
			Risk:   mx.Volatility[j],
			Return: mx.AnnualizedReturn[j],
			Sector: sectors[s],
		}
	}
	return out
}
