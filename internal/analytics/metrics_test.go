package analytics

import (
	"math"
	"testing"
	"time"

	"quantdash/internal/model"
)

// matrixOf builds a price matrix with consecutive daily dates.
func matrixOf(symbols []string, closes [][]float64) *model.PriceMatrix {
	dates := make([]time.Time, len(closes))
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return &model.PriceMatrix{Dates: dates, Symbols: symbols, Close: closes}
}

// growth builds a single-symbol series compounding at a constant daily rate.
func growth(start, rate float64, days int) []float64 {
	out := make([]float64, days)
	out[0] = start
	for i := 1; i < days; i++ {
		out[i] = out[i-1] * (1 + rate)
	}
	return out
}

// columns zips per-symbol series into matrix rows.
func columns(series ...[]float64) [][]float64 {
	rows := make([][]float64, len(series[0]))
	for i := range rows {
		row := make([]float64, len(series))
		for j := range series {
			row[j] = series[j][i]
		}
		rows[i] = row
	}
	return rows
}

func TestCompute_Annualization(t *testing.T) {
	// Constant 1% daily growth: mean daily return 0.01, deviation ~0
	m := matrixOf([]string{"A"}, columns(growth(100, 0.01, 50)))
	mx := Compute(m)

	wantMean := 0.01 * model.TradingDays
	if math.Abs(mx.AnnualizedReturn[0]-wantMean) > 1e-9 {
		t.Errorf("annualized return = %v, want %v", mx.AnnualizedReturn[0], wantMean)
	}
	if mx.Volatility[0] > 1e-10 {
		t.Errorf("constant-rate growth should have ~0 volatility, got %v", mx.Volatility[0])
	}
}

func TestKPIs(t *testing.T) {
	// Last day: A +10%, B −10%
	m := matrixOf([]string{"A", "B"}, [][]float64{
		{100, 100},
		{100, 100},
		{110, 90},
	})
	k := KPIs(m)

	if k.BestSymbol != "A" || math.Abs(k.BestChange-0.10) > 1e-12 {
		t.Errorf("best mover = %s %v, want A 0.10", k.BestSymbol, k.BestChange)
	}
	if k.WorstSymbol != "B" || math.Abs(k.WorstChange+0.10) > 1e-12 {
		t.Errorf("worst mover = %s %v, want B -0.10", k.WorstSymbol, k.WorstChange)
	}
	// Period return: mean of (+10%, −10%) = 0
	if math.Abs(k.PeriodReturn) > 1e-12 {
		t.Errorf("period return = %v, want 0", k.PeriodReturn)
	}
}

func TestRiskReturn_SectorLabels(t *testing.T) {
	m := matrixOf([]string{"AAPL", "JPM"}, columns(growth(100, 0.01, 30), growth(50, 0.002, 30)))
	pts := RiskReturn(m, map[string]string{"AAPL": "Technology", "JPM": "Finance"})

	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %d", len(pts))
	}
	if pts[0].Symbol != "AAPL" || pts[0].Sector != "Technology" {
		t.Errorf("unexpected first point %+v", pts[0])
	}
	if pts[0].Return <= pts[1].Return {
		t.Errorf("expected AAPL return > JPM return: %v vs %v", pts[0].Return, pts[1].Return)
	}
}

func TestRatings_Thresholds(t *testing.T) {
	up := growth(100, 0.01, 100) // strong steady winner
	down := growth(100, -0.01, 100)
	// Positive drift with heavy swings: sharpe between 0 and 1
	wavy := make([]float64, 100)
	wavy[0] = 100
	for i := 1; i < 100; i++ {
		r := 0.0005 + 0.05*math.Sin(float64(i))
		wavy[i] = wavy[i-1] * (1 + r)
	}

	m := matrixOf([]string{"DOWN", "UP", "WAVY"}, columns(down, up, wavy))
	ratings := Ratings(m)

	byName := map[string]Rating{}
	for _, r := range ratings {
		byName[r.Symbol] = r
	}

	if byName["UP"].Rating != "STRONG BUY" {
		t.Errorf("UP rated %s (sharpe %v), want STRONG BUY", byName["UP"].Rating, byName["UP"].Sharpe)
	}
	if byName["DOWN"].Rating != "SELL" {
		t.Errorf("DOWN rated %s (sharpe %v), want SELL", byName["DOWN"].Rating, byName["DOWN"].Sharpe)
	}
	if r := byName["WAVY"]; r.Rating != "HOLD" && r.Rating != "BUY" {
		t.Errorf("WAVY rated %s (sharpe %v), want HOLD or BUY", r.Rating, r.Sharpe)
	}
	if math.Abs(byName["UP"].Momentum-(up[99]/up[0]-1)) > 1e-9 {
		t.Errorf("unexpected momentum %v", byName["UP"].Momentum)
	}
}

func TestTopMovers(t *testing.T) {
	m := matrixOf([]string{"A", "B", "C"}, [][]float64{
		{100, 100, 100},
		{100, 100, 100},
		{120, 90, 105},
	})
	movers := TopMovers(m, 2, 2)
	if len(movers) != 2 {
		t.Fatalf("expected 2 movers, got %d", len(movers))
	}
	if movers[0].Symbol != "A" || movers[1].Symbol != "C" {
		t.Errorf("unexpected order %v", movers)
	}
	if movers[0].Change == 0 {
		t.Errorf("top mover has zero change: %v", movers[0])
	}

	// a window below 2 clamps to the last two rows instead of
	// comparing a row against itself
	clamped := TopMovers(m, 1, 3)
	for _, mv := range clamped {
		if mv.Change == 0 {
			t.Errorf("clamped window produced zero change for %s", mv.Symbol)
		}
	}
}

func TestLowestVolatility(t *testing.T) {
	steady := growth(100, 0.001, 50)
	wild := make([]float64, 50)
	wild[0] = 100
	for i := 1; i < 50; i++ {
		wild[i] = wild[i-1] * (1 + 0.1*math.Sin(float64(i)))
	}
	m := matrixOf([]string{"STEADY", "WILD"}, columns(steady, wild))

	safe := LowestVolatility(m, 1)
	if len(safe) != 1 || safe[0] != "STEADY" {
		t.Errorf("expected [STEADY], got %v", safe)
	}
}

func TestSectorSymbols(t *testing.T) {
	sectors := map[string]string{"AAPL": "Technology", "MSFT": "Technology", "JPM": "Finance"}
	got := SectorSymbols([]string{"AAPL", "JPM", "MSFT"}, sectors, "Technology", 5)
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("unexpected sector filter %v", got)
	}
	capped := SectorSymbols([]string{"AAPL", "MSFT"}, sectors, "Technology", 1)
	if len(capped) != 1 {
		t.Errorf("expected limit 1, got %v", capped)
	}
}
