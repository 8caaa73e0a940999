// Package sqlite persists the ticker universe and daily price bars.
// It is the system's single source of truth: the ingest job writes,
// the dashboard only reads.
package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"quantdash/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/finance.db"
}

// Writer is the single-writer SQLite handle used by the ingest job.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer: the ingest job never runs concurrently with itself
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS tickers (
			symbol TEXT PRIMARY KEY,
			name   TEXT,
			sector TEXT
		);

		CREATE TABLE IF NOT EXISTS price_points (
			symbol TEXT    NOT NULL REFERENCES tickers(symbol),
			date   TEXT    NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL,
			volume INTEGER,
			PRIMARY KEY (symbol, date)
		);

		CREATE INDEX IF NOT EXISTS idx_price_points_date ON price_points(date);
	`)
	return err
}

// UpsertTicker inserts the ticker if missing and refreshes name/sector.
func (w *Writer) UpsertTicker(t model.Ticker) error {
	_, err := w.db.Exec(`
		INSERT INTO tickers (symbol, name, sector) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET name = excluded.name, sector = excluded.sector
	`, t.Symbol, t.Name, t.Sector)
	if err != nil {
		return fmt.Errorf("sqlite upsert ticker %s: %w", t.Symbol, err)
	}
	return nil
}

// InsertBars upserts a batch of daily bars in a single transaction.
func (w *Writer) InsertBars(points []model.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_points (symbol, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		_, err := stmt.Exec(p.Symbol, p.DateString(), p.Open, p.High, p.Low, p.Close, p.Volume)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LastDate returns the most recent stored bar date for a symbol.
// The zero time means no bars exist yet.
func (w *Writer) LastDate(symbol string) (time.Time, error) {
	var d sql.NullString
	err := w.db.QueryRow(
		`SELECT MAX(date) FROM price_points WHERE symbol = ?`, symbol,
	).Scan(&d)
	if err != nil {
		return time.Time{}, err
	}
	if !d.Valid {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(model.DateLayout, d.String, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite parse last date %q: %w", d.String, err)
	}
	return t, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
