package model

import "time"

// AnalyticsRequest is the immutable request object threaded through the
// analytics handlers: selected symbols, date range and simulation knobs.
// It replaces ambient UI selection state: every computation receives its
// full input explicitly.
type AnalyticsRequest struct {
	Symbols []string  `json:"symbols"`
	From    time.Time `json:"from,omitempty"`
	To      time.Time `json:"to,omitempty"`

	SimRuns int     `json:"sim_runs,omitempty"`
	SimDays int     `json:"sim_days,omitempty"`
	Shock   float64 `json:"shock,omitempty"` // volatility multiplier, 1.0–3.0
	Seed    uint64  `json:"seed,omitempty"`  // 0 = time-based
}
