// Package ingest implements the sequential fetch-and-upsert job that keeps
// the price store current. It runs as its own process (cmd/ingest) and is
// assumed never to run concurrently with dashboard reads.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"quantdash/internal/model"
	"quantdash/internal/provider"
	"quantdash/internal/store/sqlite"
)

// Job pulls daily bars for the configured universe into the store.
type Job struct {
	store    *sqlite.Writer
	provider *provider.Client
	universe []model.Ticker
	lookback int // years of history on first fetch

	now func() time.Time // injectable clock for tests
}

// New creates an ingest job over the given store, provider and universe.
func New(store *sqlite.Writer, prov *provider.Client, universe []model.Ticker, lookbackYears int) *Job {
	return &Job{
		store:    store,
		provider: prov,
		universe: universe,
		lookback: lookbackYears,
		now:      time.Now,
	}
}

// Result summarizes one ingest run.
type Result struct {
	RowsInserted int
	Updated      int // tickers with new bars
	Skipped      int // tickers already current or with no new data
	Failed       int // tickers whose fetch or insert errored
}

// Run processes each ticker in order: ensure the tickers row exists, find
// the incremental start date (last stored bar + 1 day, or lookback years
// back when no history), fetch, upsert. Fetch errors are logged and the
// ticker skipped. No retry, no backoff.
func (j *Job) Run(ctx context.Context) (Result, error) {
	var res Result
	for _, t := range j.universe {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := j.update(ctx, t)
		switch {
		case err != nil:
			res.Failed++
			log.Printf("[ingest] %s: %v", t.Symbol, err)
		case n == 0:
			res.Skipped++
			log.Printf("[ingest] %s: no new data", t.Symbol)
		default:
			res.Updated++
			res.RowsInserted += n
			log.Printf("[ingest] %s: saved %d bars", t.Symbol, n)
		}
	}

	if res.Failed > 0 && res.Updated == 0 && res.Skipped == 0 {
		return res, fmt.Errorf("all %d tickers failed", res.Failed)
	}
	return res, nil
}

// update fetches and upserts new bars for one ticker, returning the row count.
func (j *Job) update(ctx context.Context, t model.Ticker) (int, error) {
	if err := j.store.UpsertTicker(t); err != nil {
		return 0, err
	}

	now := j.now().UTC()
	last, err := j.store.LastDate(t.Symbol)
	if err != nil {
		return 0, fmt.Errorf("last date: %w", err)
	}

	var start time.Time
	if last.IsZero() {
		start = now.AddDate(-j.lookback, 0, 0)
		log.Printf("[ingest] %s: fetching full history from %s", t.Symbol, start.Format(model.DateLayout))
	} else {
		start = last.AddDate(0, 0, 1)
		log.Printf("[ingest] %s: updating from %s", t.Symbol, start.Format(model.DateLayout))
	}
	if !start.Before(now) {
		return 0, nil
	}

	bars, err := j.provider.Daily(ctx, t.Symbol, start, now)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		// The provider can pad the window with bars we already hold;
		// upsert keeps this idempotent, but don't step before start.
		if b.Date.Before(start.Truncate(24 * time.Hour)) {
			continue
		}
		points = append(points, model.PricePoint{
			Symbol: t.Symbol,
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	if len(points) == 0 {
		return 0, nil
	}
	if err := j.store.InsertBars(points); err != nil {
		return 0, fmt.Errorf("insert bars: %w", err)
	}
	return len(points), nil
}
