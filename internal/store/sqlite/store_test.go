package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"quantdash/internal/model"
)

func newTestStore(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	t.Cleanup(func() { r.Close() })

	return w, r
}

func bar(sym string, d int, close float64) model.PricePoint {
	return model.PricePoint{
		Symbol: sym,
		Date:   time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC),
		Open:   close - 1,
		High:   close + 1,
		Low:    close - 2,
		Close:  close,
		Volume: 1000,
	}
}

func TestEmptyStore(t *testing.T) {
	_, r := newTestStore(t)
	ctx := context.Background()

	if _, err := r.LoadClosePrices(ctx); err != ErrEmptyStore {
		t.Errorf("expected ErrEmptyStore, got %v", err)
	}

	fp, err := r.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fp != "0-" {
		t.Errorf("expected empty fingerprint '0-', got %q", fp)
	}
}

func TestReaderOnFreshFile(t *testing.T) {
	// dashboard started before any ingest run: no writer has ever touched
	// the file, so the reader must create the schema itself
	path := filepath.Join(t.TempDir(), "never_ingested.db")
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()
	ctx := context.Background()

	if _, err := r.LoadClosePrices(ctx); err != ErrEmptyStore {
		t.Errorf("expected ErrEmptyStore, got %v", err)
	}
	fp, err := r.Fingerprint(ctx)
	if err != nil {
		t.Fatalf("fingerprint on fresh file: %v", err)
	}
	if fp != "0-" {
		t.Errorf("expected empty fingerprint '0-', got %q", fp)
	}
}

func TestInsertAndLoad(t *testing.T) {
	w, r := newTestStore(t)
	ctx := context.Background()

	if err := w.UpsertTicker(model.Ticker{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"}); err != nil {
		t.Fatal(err)
	}
	if err := w.InsertBars([]model.PricePoint{bar("AAPL", 2, 185.5), bar("AAPL", 3, 186.1)}); err != nil {
		t.Fatal(err)
	}

	points, err := r.LoadClosePrices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Symbol != "AAPL" || points[0].Close != 185.5 {
		t.Errorf("unexpected first point %+v", points[0])
	}
	if !points[0].Date.Before(points[1].Date) {
		t.Error("points not ordered by date")
	}
}

func TestInsertBars_UpsertsOnConflict(t *testing.T) {
	w, r := newTestStore(t)
	ctx := context.Background()

	if err := w.UpsertTicker(model.Ticker{Symbol: "SPY"}); err != nil {
		t.Fatal(err)
	}
	if err := w.InsertBars([]model.PricePoint{bar("SPY", 2, 470)}); err != nil {
		t.Fatal(err)
	}
	// Same (symbol, date) with a corrected close replaces the row
	if err := w.InsertBars([]model.PricePoint{bar("SPY", 2, 471)}); err != nil {
		t.Fatal(err)
	}

	points, err := r.LoadClosePrices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point after upsert, got %d", len(points))
	}
	if points[0].Close != 471 {
		t.Errorf("expected replaced close 471, got %v", points[0].Close)
	}
}

func TestLastDate(t *testing.T) {
	w, _ := newTestStore(t)

	if err := w.UpsertTicker(model.Ticker{Symbol: "QQQ"}); err != nil {
		t.Fatal(err)
	}

	last, err := w.LastDate("QQQ")
	if err != nil {
		t.Fatal(err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time for empty symbol, got %v", last)
	}

	if err := w.InsertBars([]model.PricePoint{bar("QQQ", 5, 400), bar("QQQ", 8, 401)}); err != nil {
		t.Fatal(err)
	}
	last, err = w.LastDate("QQQ")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	if !last.Equal(want) {
		t.Errorf("expected last date %v, got %v", want, last)
	}
}

func TestFingerprint_ChangesAfterIngest(t *testing.T) {
	w, r := newTestStore(t)
	ctx := context.Background()

	if err := w.UpsertTicker(model.Ticker{Symbol: "GLD"}); err != nil {
		t.Fatal(err)
	}
	if err := w.InsertBars([]model.PricePoint{bar("GLD", 2, 190)}); err != nil {
		t.Fatal(err)
	}
	fp1, err := r.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.InsertBars([]model.PricePoint{bar("GLD", 3, 191)}); err != nil {
		t.Fatal(err)
	}
	fp2, err := r.Fingerprint(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if fp1 == fp2 {
		t.Errorf("fingerprint did not change after ingest: %q", fp1)
	}
}

func TestSectorMapAndStats(t *testing.T) {
	w, r := newTestStore(t)
	ctx := context.Background()

	for _, tk := range []model.Ticker{
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Technology"},
		{Symbol: "JPM", Name: "JPMorgan Chase", Sector: "Finance"},
	} {
		if err := w.UpsertTicker(tk); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.InsertBars([]model.PricePoint{bar("AAPL", 2, 185), bar("JPM", 2, 170)}); err != nil {
		t.Fatal(err)
	}

	sectors, err := r.SectorMap(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sectors["AAPL"] != "Technology" || sectors["JPM"] != "Finance" {
		t.Errorf("unexpected sector map %v", sectors)
	}

	stats, err := r.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Tickers != 2 || stats.PriceRows != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.LastDate != "2024-01-02" {
		t.Errorf("unexpected last date %q", stats.LastDate)
	}
}
