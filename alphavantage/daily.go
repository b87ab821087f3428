package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// Bar is one day of a price series.
type Bar struct {
	Date   string // YYYY-MM-DD
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

type dailyResponse struct {
	TimeSeries map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
}

// DailySeries fetches the daily price series of symbol (TIME_SERIES_DAILY),
// most recent day first.
//
// It returns ErrNoData if the response has no series, and an *APIError if the
// API reported an error or a rate limit.
func (c *Client) DailySeries(ctx context.Context, symbol string) ([]Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	raw, err := c.query(ctx, "TIME_SERIES_DAILY", params)
	if err != nil {
		return nil, err
	}

	var resp dailyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("alphavantage TIME_SERIES_DAILY %s: %w", symbol, err)
	}
	if len(resp.TimeSeries) == 0 {
		return nil, ErrNoData
	}

	bars := make([]Bar, 0, len(resp.TimeSeries))
	for day, ohlcv := range resp.TimeSeries {
		bar := Bar{Date: day}
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&bar.Open, ohlcv.Open},
			{&bar.High, ohlcv.High},
			{&bar.Low, ohlcv.Low},
			{&bar.Close, ohlcv.Close},
		} {
			if *f.dst, err = decimal.NewFromString(f.src); err != nil {
				return nil, fmt.Errorf("alphavantage %s %s: invalid price %q: %w", symbol, day, f.src, err)
			}
		}
		if bar.Volume, err = strconv.ParseInt(ohlcv.Volume, 10, 64); err != nil {
			return nil, fmt.Errorf("alphavantage %s %s: invalid volume %q: %w", symbol, day, ohlcv.Volume, err)
		}
		bars = append(bars, bar)
	}
	// ISO dates sort lexically.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date > bars[j].Date })
	return bars, nil
}
