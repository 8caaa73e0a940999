package analytics

import (
	"sort"

	"quantdash/internal/model"
)

// Mover pairs a symbol with its return over the quick-select window.
type Mover struct {
	Symbol string  `json:"symbol"`
	Change float64 `json:"change"`
}

// TopMovers returns the n symbols with the largest return over the last
// window rows (last/first - 1), descending. A window of 2 compares the
// last close against the previous one.
func TopMovers(m *model.PriceMatrix, window, n int) []Mover {
	if window < 2 {
		window = 2
	}
	start := m.Rows() - window
	if start < 0 {
		start = 0
	}
	first, last := m.Close[start], m.Close[m.Rows()-1]

	movers := make([]Mover, m.Cols())
	for j, s := range m.Symbols {
		movers[j] = Mover{Symbol: s, Change: last[j]/first[j] - 1}
	}
	sort.Slice(movers, func(i, j int) bool { return movers[i].Change > movers[j].Change })
	if n < len(movers) {
		movers = movers[:n]
	}
	return movers
}

// LowestVolatility returns the n symbols with the smallest daily return
// deviation, the defensive quick-select.
func LowestVolatility(m *model.PriceMatrix, n int) []string {
	std := m.Returns().StdDaily()

	idx := make([]int, m.Cols())
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return std[idx[a]] < std[idx[b]] })

	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = m.Symbols[idx[i]]
	}
	return out
}

// SectorSymbols filters the matrix symbols to one sector, capped at limit.
func SectorSymbols(symbols []string, sectors map[string]string, sector string, limit int) []string {
	var out []string
	for _, s := range symbols {
		if sectors[s] == sector {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
