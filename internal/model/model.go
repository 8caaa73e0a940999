package model

import "time"

// TradingDays is the number of trading days assumed per year when
// annualizing daily statistics (×252 for means, ×√252 for deviations).
const TradingDays = 252

// Ticker is one instrument in the configured universe.
type Ticker struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// PricePoint is one daily OHLCV bar for a single ticker.
// One row exists per (symbol, date).
type PricePoint struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"` // UTC, day-aligned
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// DateLayout is the canonical wire/storage format for bar dates.
const DateLayout = "2006-01-02"

// DateString returns the bar date in storage format.
func (p PricePoint) DateString() string {
	return p.Date.UTC().Format(DateLayout)
}
