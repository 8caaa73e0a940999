package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"quantdash/internal/analytics"
	"quantdash/internal/model"

	charts "github.com/vicanso/go-charts/v2"
)

const maxChartPaths = 50

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/charts/")

	m, err := s.slice(r, requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history to chart"))
		return
	}

	var png []byte
	switch name {
	case "growth.png":
		png, err = renderGrowth(m, r.URL.Query().Get("style"))
	case "simulation.png":
		png, err = s.renderSimulation(m, r)
	case "allocation.png":
		png, err = renderAllocation(m)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// renderGrowth draws each symbol's close series indexed to 100 at the first
// date, as a line, area or bar chart.
func renderGrowth(m *model.PriceMatrix, style string) ([]byte, error) {
	normalized := m.Normalized(100)

	// rows→series transpose
	values := make([][]float64, m.Cols())
	for j := range values {
		col := make([]float64, m.Rows())
		for i := range normalized {
			col[i] = normalized[i][j]
		}
		values[j] = col
	}

	labels := make([]string, m.Rows())
	for i, d := range m.Dates {
		labels[i] = d.Format(model.DateLayout)
	}
	split := 10
	if m.Rows() < split {
		split = m.Rows()
	}

	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc("Growth since "+labels[0], "indexed to 100"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.LegendOptionFunc(charts.LegendOption{Data: m.Symbols, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	}

	var painter *charts.Painter
	var err error
	switch style {
	case "bar":
		painter, err = charts.BarRender(values, opts...)
	case "area":
		seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
		for i := range seriesList {
			seriesList[i].Name = m.Symbols[i]
		}
		painter, err = charts.Render(charts.ChartOption{SeriesList: seriesList, FillArea: true}, opts...)
	default:
		painter, err = charts.LineRender(values, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("render growth chart: %w", err)
	}
	return painter.Bytes()
}

// renderSimulation draws a fan of sample Monte Carlo paths with the per-day
// median overlaid as the last series.
func (s *Server) renderSimulation(m *model.PriceMatrix, r *http.Request) ([]byte, error) {
	q := r.URL.Query()
	days := s.SimDays
	if v := q.Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 30 && n <= 365 {
			days = n
		}
	}
	shock := 1.0
	if v := q.Get("shock"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1.0 && f <= 3.0 {
			shock = f
		}
	}
	var seed uint64
	if v := q.Get("seed"); v != "" {
		seed, _ = strconv.ParseUint(v, 10, 64)
	}

	sim := analytics.Simulate(m, s.SimRuns, days, shock, seed)
	summary := sim.Summary()

	n := len(sim.Paths)
	if n > maxChartPaths {
		n = maxChartPaths
	}
	values := make([][]float64, 0, n+1)
	for i := 0; i < n; i++ {
		values = append(values, sim.Paths[i])
	}
	values = append(values, summary.Median)

	labels := make([]string, days+1)
	for i := range labels {
		labels[i] = strconv.Itoa(i)
	}

	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Projected portfolio value, %d trading days", days),
			fmt.Sprintf("median %.2f, 5%% worst case %.2f", summary.TerminalMedian, summary.TerminalP5)),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: 12}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"median"}, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, fmt.Errorf("render simulation chart: %w", err)
	}
	return painter.Bytes()
}

// renderAllocation draws the optimizer weights above 1% as a pie.
func renderAllocation(m *model.PriceMatrix) ([]byte, error) {
	alloc, err := analytics.Optimize(m)
	if err != nil {
		return nil, err
	}

	type slice struct {
		symbol string
		weight float64
	}
	var slices []slice
	for sym, wgt := range alloc.Weights {
		if wgt > 0.01 {
			slices = append(slices, slice{sym, wgt})
		}
	}
	sort.Slice(slices, func(i, j int) bool { return slices[i].weight > slices[j].weight })

	values := make([]float64, len(slices))
	labels := make([]string, len(slices))
	for i, sl := range slices {
		values[i] = sl.weight
		labels[i] = fmt.Sprintf("%s (%.1f%%)", sl.symbol, sl.weight*100)
	}

	painter, err := charts.PieRender(values,
		charts.TitleTextOptionFunc("Max-Sharpe allocation",
			fmt.Sprintf("return %.1f%%, vol %.1f%%, sharpe %.2f", alloc.Return*100, alloc.Volatility*100, alloc.Sharpe)),
		charts.LegendOptionFunc(charts.LegendOption{Data: labels, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, fmt.Errorf("render allocation chart: %w", err)
	}
	return painter.Bytes()
}
