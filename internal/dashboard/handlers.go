package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quantdash/internal/analytics"
	"quantdash/internal/model"
	"quantdash/internal/store/sqlite"
)

const maxPathsInResponse = 50

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		// ±Inf/NaN from degenerate inputs is not representable in JSON
		http.Error(w, "result not representable: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlite.ErrEmptyStore):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "price store is empty: run the ingest job first",
		})
	case errors.Is(err, model.ErrEmptySelection):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case strings.Contains(err.Error(), "unknown symbol"):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// requestFromQuery builds an AnalyticsRequest from GET query parameters.
func requestFromQuery(r *http.Request) model.AnalyticsRequest {
	q := r.URL.Query()
	var req model.AnalyticsRequest
	if s := q.Get("symbols"); s != "" {
		for _, sym := range strings.Split(s, ",") {
			if sym = strings.TrimSpace(sym); sym != "" {
				req.Symbols = append(req.Symbols, sym)
			}
		}
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(model.DateLayout, v); err == nil {
			req.From = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(model.DateLayout, v); err == nil {
			req.To = t
		}
	}
	return req
}

// slice loads the cached matrix and narrows it to the request selection.
// An empty symbol list selects every stored symbol.
func (s *Server) slice(r *http.Request, req model.AnalyticsRequest) (*model.PriceMatrix, error) {
	m, _, err := s.loader.Load(r.Context())
	if err != nil {
		return nil, err
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = m.Symbols
	}
	return m.Slice(symbols, req.From, req.To)
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := s.loader.Reader().Tickers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := s.loader.Reader().Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tickers":    tickers,
		"first_date": stats.FirstDate,
		"last_date":  stats.LastDate,
		"price_rows": stats.PriceRows,
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	m, err := s.slice(r, requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	dates := make([]string, m.Rows())
	for i, d := range m.Dates {
		dates[i] = d.Format(model.DateLayout)
	}

	resp := map[string]interface{}{
		"dates":   dates,
		"symbols": m.Symbols,
	}
	if b := r.URL.Query().Get("base"); b != "" {
		base, err := strconv.ParseFloat(b, 64)
		if err != nil || base <= 0 {
			base = 100.0
		}
		resp["normalized"] = m.Normalized(base)
	} else {
		resp["close"] = m.Close
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.slice(r, requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history for analytics (need 2+ trading days)"))
		return
	}

	start := time.Now()
	mx := analytics.Compute(m)
	kpi := analytics.KPIs(m)
	movers := analytics.TopMovers(m, 2, 5)
	if s.mx != nil {
		s.mx.ComputeDur.WithLabelValues("metrics").Observe(time.Since(start).Seconds())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols":           mx.Symbols,
		"volatility":        mx.Volatility,
		"annualized_return": mx.AnnualizedReturn,
		"kpi":               kpi,
		"movers":            movers,
	})
}

func (s *Server) handleRatings(w http.ResponseWriter, r *http.Request) {
	m, err := s.slice(r, requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history for ratings (need 2+ trading days)"))
		return
	}

	start := time.Now()
	ratings := analytics.Ratings(m)
	if s.mx != nil {
		s.mx.ComputeDur.WithLabelValues("ratings").Observe(time.Since(start).Seconds())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ratings": ratings})
}

func (s *Server) handleFrontier(w http.ResponseWriter, r *http.Request) {
	m, err := s.slice(r, requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history for the risk/return scatter"))
		return
	}

	sectors, err := s.loader.Reader().SectorMap(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"points": analytics.RiskReturn(m, sectors),
	})
}

// handleQuickSelect resolves the UI's preset buttons to a symbol list.
func (s *Server) handleQuickSelect(w http.ResponseWriter, r *http.Request) {
	m, _, err := s.loader.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history for quick selection"))
		return
	}

	q := r.URL.Query()
	n := 5
	if v := q.Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	var symbols []string
	switch kind := q.Get("kind"); kind {
	case "movers":
		movers := analytics.TopMovers(m, 30, n)
		for _, mv := range movers {
			symbols = append(symbols, mv.Symbol)
		}
	case "defensive":
		symbols = analytics.LowestVolatility(m, n)
	case "sector":
		sectors, err := s.loader.Reader().SectorMap(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		symbols = analytics.SectorSymbols(m.Symbols, sectors, q.Get("sector"), n)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "kind must be one of movers, defensive, sector",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"symbols": symbols})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.AnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	m, err := s.slice(r, req)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	alloc, err := analytics.Optimize(m)
	if s.mx != nil {
		s.mx.ComputeDur.WithLabelValues("optimize").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	// weights above 1% feed the allocation pie
	pie := make(map[string]float64)
	for sym, wgt := range alloc.Weights {
		if wgt > 0.01 {
			pie[sym] = wgt
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"allocation": alloc,
		"pie":        pie,
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.AnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if req.SimRuns <= 0 {
		req.SimRuns = s.SimRuns
	}
	if req.SimDays == 0 {
		req.SimDays = s.SimDays
	}
	if req.Shock == 0 {
		req.Shock = 1.0
	}
	if req.SimDays < 30 || req.SimDays > 365 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sim_days must be between 30 and 365"})
		return
	}
	if req.Shock < 1.0 || req.Shock > 3.0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shock must be between 1.0 and 3.0"})
		return
	}

	m, err := s.slice(r, req)
	if err != nil {
		writeError(w, err)
		return
	}
	if m.Rows() < 2 {
		writeError(w, errors.New("not enough history to estimate simulation parameters"))
		return
	}

	start := time.Now()
	sim := analytics.Simulate(m, req.SimRuns, req.SimDays, req.Shock, req.Seed)
	summary := sim.Summary()
	if s.mx != nil {
		s.mx.ComputeDur.WithLabelValues("simulate").Observe(time.Since(start).Seconds())
	}

	resp := map[string]interface{}{
		"runs":    sim.Runs,
		"days":    sim.Days,
		"summary": summary,
	}
	if r.URL.Query().Get("paths") == "1" {
		n := len(sim.Paths)
		if n > maxPathsInResponse {
			n = maxPathsInResponse
		}
		resp["paths"] = sim.Paths[:n]
	}
	writeJSON(w, http.StatusOK, resp)
}
