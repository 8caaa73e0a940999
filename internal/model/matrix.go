package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptySelection is returned when a slice request names no symbols or
// matches no rows; the dashboard surfaces it as a user-facing warning.
var ErrEmptySelection = errors.New("no symbols selected")

// PriceMatrix is a dates×symbols grid of close prices. After Pivot it holds
// no missing cells: any date where at least one symbol lacks a close is
// dropped entirely. Dates are strictly increasing, symbols unique and sorted.
type PriceMatrix struct {
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	Close   [][]float64 `json:"close"` // row-major, len(Dates)×len(Symbols)
}

// Pivot builds a PriceMatrix from store rows. Rows with any missing symbol
// are dropped whole, not per-symbol.
func Pivot(points []PricePoint) *PriceMatrix {
	symSet := make(map[string]bool)
	dateSet := make(map[time.Time]bool)
	for _, p := range points {
		symSet[p.Symbol] = true
		dateSet[p.Date] = true
	}

	symbols := make([]string, 0, len(symSet))
	for s := range symSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	symIdx := make(map[string]int, len(symbols))
	for i, s := range symbols {
		symIdx[s] = i
	}
	dateIdx := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		dateIdx[d] = i
	}

	grid := make([][]float64, len(dates))
	for i := range grid {
		row := make([]float64, len(symbols))
		for j := range row {
			row[j] = math.NaN()
		}
		grid[i] = row
	}
	for _, p := range points {
		grid[dateIdx[p.Date]][symIdx[p.Symbol]] = p.Close
	}

	// Whole-row drop of dates with any missing cell
	m := &PriceMatrix{Symbols: symbols}
	for i, row := range grid {
		complete := true
		for _, v := range row {
			if math.IsNaN(v) {
				complete = false
				break
			}
		}
		if complete {
			m.Dates = append(m.Dates, dates[i])
			m.Close = append(m.Close, row)
		}
	}
	return m
}

// Rows returns the number of dates.
func (m *PriceMatrix) Rows() int { return len(m.Dates) }

// Cols returns the number of symbols.
func (m *PriceMatrix) Cols() int { return len(m.Symbols) }

// Slice returns the sub-matrix for the given symbols and inclusive date
// range. A zero from/to leaves that side unbounded. The symbol order of the
// result follows the request.
func (m *PriceMatrix) Slice(symbols []string, from, to time.Time) (*PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, ErrEmptySelection
	}

	cols := make([]int, len(symbols))
	for i, s := range symbols {
		idx := -1
		for j, have := range m.Symbols {
			if have == s {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("unknown symbol %q", s)
		}
		cols[i] = idx
	}

	out := &PriceMatrix{Symbols: append([]string(nil), symbols...)}
	for i, d := range m.Dates {
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		row := make([]float64, len(cols))
		for k, j := range cols {
			row[k] = m.Close[i][j]
		}
		out.Dates = append(out.Dates, d)
		out.Close = append(out.Close, row)
	}
	if out.Rows() == 0 {
		return nil, ErrEmptySelection
	}
	return out, nil
}

// Returns derives the daily percentage-change matrix: r[t] = p[t]/p[t-1]−1
// per symbol. The first row is undefined at the boundary and dropped, so the
// result has one fewer row. A zero price yields ±Inf; not guarded.
func (m *PriceMatrix) Returns() *ReturnsMatrix {
	r := &ReturnsMatrix{Symbols: m.Symbols}
	for t := 1; t < m.Rows(); t++ {
		row := make([]float64, m.Cols())
		for j := range row {
			row[j] = m.Close[t][j]/m.Close[t-1][j] - 1
		}
		r.Dates = append(r.Dates, m.Dates[t])
		r.R = append(r.R, row)
	}
	return r
}

// Normalized rescales every symbol to the given base at the first row
// (growth-of-$base view for the market-action chart).
func (m *PriceMatrix) Normalized(base float64) [][]float64 {
	out := make([][]float64, m.Rows())
	for i := range out {
		row := make([]float64, m.Cols())
		for j := range row {
			row[j] = m.Close[i][j] / m.Close[0][j] * base
		}
		out[i] = row
	}
	return out
}

// LastRowMean is the cross-symbol mean of the latest close row, the
// equal-weight portfolio proxy used as the simulation start price.
func (m *PriceMatrix) LastRowMean() float64 {
	return stat.Mean(m.Close[m.Rows()-1], nil)
}

// Col copies out a single symbol's price series.
func (m *PriceMatrix) Col(j int) []float64 {
	out := make([]float64, m.Rows())
	for i := range out {
		out[i] = m.Close[i][j]
	}
	return out
}

// ReturnsMatrix is the per-symbol daily returns grid derived from a
// PriceMatrix; one fewer row than its source.
type ReturnsMatrix struct {
	Dates   []time.Time `json:"dates"`
	Symbols []string    `json:"symbols"`
	R       [][]float64 `json:"returns"`
}

// Rows returns the number of return observations.
func (r *ReturnsMatrix) Rows() int { return len(r.R) }

// Col copies out a single symbol's return series.
func (r *ReturnsMatrix) Col(j int) []float64 {
	out := make([]float64, r.Rows())
	for i := range out {
		out[i] = r.R[i][j]
	}
	return out
}

// MeanDaily returns the per-symbol mean daily return.
func (r *ReturnsMatrix) MeanDaily() []float64 {
	out := make([]float64, len(r.Symbols))
	for j := range out {
		out[j] = stat.Mean(r.Col(j), nil)
	}
	return out
}

// StdDaily returns the per-symbol sample standard deviation of daily
// returns. With fewer than two observations it reports 0.
func (r *ReturnsMatrix) StdDaily() []float64 {
	out := make([]float64, len(r.Symbols))
	if r.Rows() < 2 {
		return out
	}
	for j := range out {
		out[j] = stat.StdDev(r.Col(j), nil)
	}
	return out
}

// AnnualizedMean scales mean daily returns by 252 trading days.
func (r *ReturnsMatrix) AnnualizedMean() []float64 {
	out := r.MeanDaily()
	for j := range out {
		out[j] *= TradingDays
	}
	return out
}

// AnnualizedVol scales daily deviations by √252, assuming i.i.d. returns.
func (r *ReturnsMatrix) AnnualizedVol() []float64 {
	out := r.StdDaily()
	for j := range out {
		out[j] *= math.Sqrt(TradingDays)
	}
	return out
}
