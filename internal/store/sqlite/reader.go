package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"quantdash/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrEmptyStore means no price rows exist yet. The dashboard maps it to a
// user-facing instruction to run the ingest job.
var ErrEmptyStore = errors.New("price store is empty")

// Reader provides read-only access to SQLite for the dashboard.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading. The schema is created
// when missing so a dashboard started before any ingest run sees an empty
// store, not a query error.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (r *Reader) DB() *sql.DB { return r.db }

// LoadClosePrices reads every close price joined with its ticker, ordered by
// date. Returns ErrEmptyStore when the table has no rows.
func (r *Reader) LoadClosePrices(ctx context.Context) ([]model.PricePoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.symbol, p.date, p.close
		FROM price_points p
		JOIN tickers t ON p.symbol = t.symbol
		ORDER BY p.date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query prices: %w", err)
	}
	defer rows.Close()

	var points []model.PricePoint
	for rows.Next() {
		var p model.PricePoint
		var date string
		if err := rows.Scan(&p.Symbol, &date, &p.Close); err != nil {
			return nil, fmt.Errorf("sqlite scan price: %w", err)
		}
		p.Date, err = time.ParseInLocation(model.DateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("sqlite parse date %q: %w", date, err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrEmptyStore
	}
	return points, nil
}

// Tickers returns the stored universe ordered by sector then symbol.
func (r *Reader) Tickers(ctx context.Context) ([]model.Ticker, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, name, sector FROM tickers ORDER BY sector, symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query tickers: %w", err)
	}
	defer rows.Close()

	var out []model.Ticker
	for rows.Next() {
		var t model.Ticker
		if err := rows.Scan(&t.Symbol, &t.Name, &t.Sector); err != nil {
			return nil, fmt.Errorf("sqlite scan ticker: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SectorMap returns symbol → sector for every stored ticker.
func (r *Reader) SectorMap(ctx context.Context) (map[string]string, error) {
	tickers, err := r.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(tickers))
	for _, t := range tickers {
		m[t.Symbol] = t.Sector
	}
	return m, nil
}

// Fingerprint digests the store contents as "rowcount-maxdate". It changes
// whenever ingestion adds rows, and keys the dashboard's matrix cache;
// replacing the implicit process-wide caching the loader would otherwise need.
func (r *Reader) Fingerprint(ctx context.Context) (string, error) {
	var count int64
	var maxDate sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(date) FROM price_points`,
	).Scan(&count, &maxDate)
	if err != nil {
		return "", fmt.Errorf("sqlite fingerprint: %w", err)
	}
	if !maxDate.Valid {
		return "0-", nil
	}
	return fmt.Sprintf("%d-%s", count, maxDate.String), nil
}

// Stats reports row counts and date bounds for healthz.
type Stats struct {
	Tickers   int64  `json:"tickers"`
	PriceRows int64  `json:"price_rows"`
	FirstDate string `json:"first_date,omitempty"`
	LastDate  string `json:"last_date,omitempty"`
}

// Stats returns store statistics.
func (r *Reader) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickers`).Scan(&s.Tickers); err != nil {
		return s, fmt.Errorf("sqlite count tickers: %w", err)
	}
	var first, last sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(date), MAX(date) FROM price_points`,
	).Scan(&s.PriceRows, &first, &last)
	if err != nil {
		return s, fmt.Errorf("sqlite price stats: %w", err)
	}
	if first.Valid {
		s.FirstDate = first.String
	}
	if last.Valid {
		s.LastDate = last.String
	}
	return s, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
