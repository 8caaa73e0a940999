package analytics

import (
	"quantdash/internal/model"
)

// Rating is the rule-based verdict for one symbol: Sharpe ratio drives the
// rating, momentum is reported alongside for context.
type Rating struct {
	Symbol   string  `json:"symbol"`
	Sharpe   float64 `json:"sharpe"`
	Momentum float64 `json:"momentum"` // last/first −1 over the selection
	Rating   string  `json:"rating"`
	Reason   string  `json:"reason"`
}

// Ratings scores every symbol in the matrix. Thresholds: Sharpe > 2 strong
// buy, > 1 buy, > 0 hold, otherwise sell.
func Ratings(m *model.PriceMatrix) []Rating {
	r := m.Returns()
	annMean := r.AnnualizedMean()
	annVol := r.AnnualizedVol()

	out := make([]Rating, m.Cols())
	for j, s := range m.Symbols {
		// Division by zero volatility is not guarded; degenerate inputs
		// propagate as ±Inf/NaN and fail the current request.
		sharpe := annMean[j] / annVol[j]
		rating := Rating{
			Symbol:   s,
			Sharpe:   sharpe,
			Momentum: m.Close[m.Rows()-1][j]/m.Close[0][j] - 1,
		}
		switch {
		case sharpe > 2.0:
			rating.Rating, rating.Reason = "STRONG BUY", "Exceptional risk-adjusted returns."
		case sharpe > 1.0:
			rating.Rating, rating.Reason = "BUY", "Solid performance with acceptable risk."
		case sharpe > 0:
			rating.Rating, rating.Reason = "HOLD", "Positive returns but high volatility."
		default:
			rating.Rating, rating.Reason = "SELL", "Negative risk-adjusted performance."
		}
		out[j] = rating
	}
	return out
}
