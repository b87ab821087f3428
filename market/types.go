package market

import (
	"encoding/json"

	"github.com/etnz/allocation"
	"github.com/shopspring/decimal"
)

// DailyPrice is one day of quotes of a stock.
type DailyPrice struct {
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// MarshalJSON writes prices as JSON numbers.
func (d DailyPrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Open   json.Number `json:"open"`
		High   json.Number `json:"high"`
		Low    json.Number `json:"low"`
		Close  json.Number `json:"close"`
		Volume int64       `json:"volume"`
	}{
		json.Number(d.Open.String()),
		json.Number(d.High.String()),
		json.Number(d.Low.String()),
		json.Number(d.Close.String()),
		d.Volume,
	})
}

// PriceSeries is the recent history of one stock, or the reason it is not
// available.
type PriceSeries struct {
	// Prices maps a date (YYYY-MM-DD) to the quotes of that day.
	Prices map[string]DailyPrice
	// PercentChange is the change between the oldest and the latest close, in
	// percent, rounded to 2 decimals.
	PercentChange allocation.Percent
	// LastClose is the most recent close.
	LastClose decimal.Decimal
	// Err is the error marker, empty on success.
	Err string
}

// OK returns true if the series holds data.
func (s PriceSeries) OK() bool { return s.Err == "" }

// MarshalJSON writes either {"prices", "percent_change"} or {"error"}.
func (s PriceSeries) MarshalJSON() ([]byte, error) {
	if !s.OK() {
		return json.Marshal(errorMarker{s.Err})
	}
	prices := s.Prices
	if prices == nil {
		prices = map[string]DailyPrice{}
	}
	return json.Marshal(struct {
		Prices        map[string]DailyPrice `json:"prices"`
		PercentChange allocation.Percent    `json:"percent_change"`
	}{prices, s.PercentChange})
}

// Article is a news article.
type Article struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
	Description string `json:"description"`
}

// NewsResult is the list of recent articles about one stock, or the reason it
// is not available.
type NewsResult struct {
	Articles []Article
	Err      string
}

// MarshalJSON writes either the list of articles or {"error"}.
func (n NewsResult) MarshalJSON() ([]byte, error) {
	if n.Err != "" {
		return json.Marshal(errorMarker{n.Err})
	}
	if n.Articles == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(n.Articles)
}

// Match is a symbol search result.
type Match struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

type errorMarker struct {
	Error string `json:"error"`
}
