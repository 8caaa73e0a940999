package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantdash/config"
	"quantdash/internal/cache"
	"quantdash/internal/dashboard"
	"quantdash/internal/logger"
	"quantdash/internal/metrics"
	"quantdash/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	lg := logger.Init("dashboard", slog.LevelInfo)
	lg.Info("starting")

	cfg := config.Load()

	reader, err := sqlite.NewReader(cfg.SQLitePath)
	if err != nil {
		lg.Error("sqlite open failed", "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	// Redis is optional: the matrix cache degrades to direct store reads
	rdb, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		lg.Warn("redis unavailable, matrix cache disabled", "error", err)
		rdb = nil
	}

	mx := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetSQLiteOK(true)
	health.SetRedisEnabled(rdb != nil)

	loader := cache.NewLoader(reader, rdb, cfg.CacheTTL)
	loader.Metrics = mx

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health.StartLivenessChecker(ctx, rdb, reader.DB(), 15*time.Second)
	go trackStoreRows(ctx, reader, mx, health)

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	srv := dashboard.NewServer(cfg.DashboardAddr, loader, mx, lg)
	srv.SimRuns = cfg.SimRuns
	srv.SimDays = cfg.SimDays
	go srv.Hub().Watch(ctx, cfg.FingerprintPoll)
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	lg.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		lg.Error("dashboard shutdown error", "error", err)
	}
	metricsSrv.Stop(shutdownCtx)
}

// trackStoreRows refreshes the store-size gauge and healthz row counts.
func trackStoreRows(ctx context.Context, reader *sqlite.Reader, mx *metrics.Metrics, health *metrics.HealthStatus) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		stats, err := reader.Stats(ctx)
		if err == nil {
			mx.StorePriceRow.Set(float64(stats.PriceRows))
			health.SetPriceRows(stats.PriceRows)
			if stats.LastDate != "" {
				if d, perr := time.Parse("2006-01-02", stats.LastDate); perr == nil {
					health.SetLastIngestAt(d)
				}
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
