// Package provider fetches daily OHLCV bars from the market-data provider
// (Yahoo Finance chart API shape). The response decodes into a fixed record
// shape, with no runtime sniffing of scalar-vs-array fields.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bar is one daily OHLCV bar as returned by the provider.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// chartResp mirrors the provider's chart payload. Null cells decode to zero
// and are filtered at this boundary.
type chartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Client talks to the market-data provider over plain HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a provider client. baseURL is e.g. "https://query1.finance.yahoo.com".
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Daily fetches daily bars for symbol in [from, to]. Bars with a missing
// close are skipped here so the store never sees a null price. An empty
// result (nothing traded in the window) is not an error.
func (c *Client) Daily(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error) {
	url := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits",
		c.baseURL, symbol, from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "curl/8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("provider read %s: %w", symbol, err)
	}
	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 120 {
			preview = preview[:120]
		}
		return nil, fmt.Errorf("provider returned %d for %s: %s", resp.StatusCode, symbol, preview)
	}

	var cr chartResp
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("provider parse %s: %w", symbol, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("provider error for %s: %s: %s", symbol, cr.Chart.Error.Code, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	res := cr.Chart.Result[0]
	quote := res.Indicators.Quote[0]

	var bars []Bar
	for i, ts := range res.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		b := Bar{Date: day, Close: quote.Close[i]}
		if i < len(quote.Open) {
			b.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			b.High = quote.High[i]
		}
		if i < len(quote.Low) {
			b.Low = quote.Low[i]
		}
		if i < len(quote.Volume) {
			b.Volume = int64(quote.Volume[i])
		}
		bars = append(bars, b)
	}
	return bars, nil
}
