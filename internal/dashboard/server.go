// Package dashboard serves the finance dashboard: a JSON API over the
// price store and analytics, server-rendered PNG charts, an embedded
// single-page UI and a WebSocket feed for store updates.
package dashboard

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"quantdash/internal/cache"
	"quantdash/internal/logger"
	"quantdash/internal/metrics"
	"quantdash/internal/model"

	"github.com/rs/cors"
)

// Server is the dashboard HTTP server.
type Server struct {
	loader *cache.Loader
	mx     *metrics.Metrics
	hub    *Hub
	logger *slog.Logger
	srv    *http.Server

	// Monte Carlo defaults used when a request leaves them unset.
	SimRuns int
	SimDays int
}

// NewServer wires the routes, CORS and observability middleware.
func NewServer(addr string, loader *cache.Loader, mx *metrics.Metrics, lg *slog.Logger) *Server {
	s := &Server{
		loader:  loader,
		mx:      mx,
		logger:  lg,
		hub:     NewHub(loader, mx),
		SimRuns: 200,
		SimDays: model.TradingDays,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/v1/tickers", s.handleTickers)
	mux.HandleFunc("/api/v1/prices", s.handlePrices)
	mux.HandleFunc("/api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/api/v1/ratings", s.handleRatings)
	mux.HandleFunc("/api/v1/frontier", s.handleFrontier)
	mux.HandleFunc("/api/v1/quickselect", s.handleQuickSelect)
	mux.HandleFunc("/api/v1/optimize", s.handleOptimize)
	mux.HandleFunc("/api/v1/simulate", s.handleSimulate)
	mux.HandleFunc("/api/v1/charts/", s.handleChart)
	mux.HandleFunc("/ws", s.hub.HandleWS)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.srv = &http.Server{
		Addr:    addr,
		Handler: c.Handler(s.observe(mux)),
	}
	return s
}

// Handler exposes the fully wired handler chain, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Hub returns the WebSocket hub so the caller can start its store watcher.
func (s *Server) Hub() *Hub { return s.hub }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[dashboard] serving at http://localhost%s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[dashboard] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// statusWriter captures the response code for logging and metrics. It
// passes Hijack through so the WebSocket upgrade keeps working.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		ctx := logger.WithRequestID(r.Context(), logger.NewRequestID(r.URL.Path, start))
		next.ServeHTTP(sw, r.WithContext(ctx))

		elapsed := time.Since(start)
		if s.mx != nil {
			s.mx.HTTPRequests.WithLabelValues(r.URL.Path, strconv.Itoa(sw.status)).Inc()
			s.mx.HTTPDuration.WithLabelValues(r.URL.Path).Observe(elapsed.Seconds())
		}
		if s.logger != nil {
			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", float64(elapsed.Microseconds()) / 1000.0,
			}
			s.logger.Info("request", append(args, logger.WithRequest(ctx)...)...)
		}
	})
}
