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
	"quantdash/internal/ingest"
	"quantdash/internal/logger"
	"quantdash/internal/provider"
	"quantdash/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	lg := logger.Init("ingest", slog.LevelInfo)
	lg.Info("starting")

	cfg := config.Load()
	universe := cfg.ParseTickers()
	if len(universe) == 0 {
		lg.Error("no tickers configured")
		os.Exit(1)
	}
	lg.Info("universe loaded", "tickers", len(universe), "lookback_years", cfg.LookbackYears)

	store, err := sqlite.New(sqlite.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		lg.Error("sqlite open failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// a signal aborts the run mid-universe; completed tickers stay committed
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Warn("signal received, aborting run")
		cancel()
	}()

	job := ingest.New(store, provider.New(cfg.ProviderBaseURL), universe, cfg.LookbackYears)
	res, err := job.Run(ctx)
	if err != nil {
		lg.Error("ingest run failed", "error", err)
		os.Exit(1)
	}

	lg.Info("ingest run complete",
		"rows_inserted", res.RowsInserted,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)
}
