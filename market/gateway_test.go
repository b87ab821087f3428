package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/etnz/allocation/alphavantage"
	"github.com/etnz/allocation/newsapi"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves canned series, and errors for unknown symbols.
type fakeProvider struct {
	series   map[string][]alphavantage.Bar
	matches  []alphavantage.Match
	articles map[string][]newsapi.Article
	delay    time.Duration

	mu    sync.Mutex
	calls map[string]int
	// running and peak track concurrent calls.
	running, peak atomic.Int32
}

func (f *fakeProvider) enter(symbol string) func() {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[symbol]++
	f.mu.Unlock()
	n := f.running.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return func() { f.running.Add(-1) }
}

func (f *fakeProvider) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeProvider) DailySeries(ctx context.Context, symbol string) ([]alphavantage.Bar, error) {
	defer f.enter(symbol)()
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	bars, ok := f.series[symbol]
	if !ok {
		return nil, &alphavantage.APIError{Key: "Error Message", Message: "Invalid API call for " + symbol}
	}
	return bars, nil
}

func (f *fakeProvider) SymbolSearch(ctx context.Context, keywords string) ([]alphavantage.Match, error) {
	if keywords == "" {
		return nil, errors.New("keywords required")
	}
	return f.matches, nil
}

func (f *fakeProvider) Everything(ctx context.Context, query string, pageSize int) ([]newsapi.Article, error) {
	defer f.enter(query)()
	articles, ok := f.articles[query]
	if !ok {
		return nil, &newsapi.APIError{Code: "rateLimited", Message: "You have made too many requests recently."}
	}
	return articles, nil
}

func bar(date string, close float64) alphavantage.Bar {
	c := decimal.NewFromFloat(close)
	return alphavantage.Bar{Date: date, Open: c, High: c, Low: c, Close: c, Volume: 1000}
}

// bars returns n consecutive daily bars, most recent first, closing at
// 100, 101, ... from the oldest.
func bars(n int) []alphavantage.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	res := make([]alphavantage.Bar, n)
	for i := range n {
		res[n-1-i] = bar(start.AddDate(0, 0, i).Format(time.DateOnly), float64(100+i))
	}
	return res
}

func TestGateway_Prices(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{
		"AAPL": {bar("2024-03-04", 175.1), bar("2024-03-01", 179.66), bar("2024-02-29", 180.75)},
		"ONE":  {bar("2024-03-04", 10)},
	}}
	g := NewGateway(f, f)

	got := g.Prices(context.Background(), []string{"AAPL", "ONE"}, 7)
	require.Len(t, got, 2)

	aapl := got["AAPL"]
	require.True(t, aapl.OK())
	assert.Len(t, aapl.Prices, 3)
	assert.Equal(t, "-3.13", aapl.PercentChange.String())
	assert.Equal(t, "175.1", aapl.LastClose.String())

	one := got["ONE"]
	require.True(t, one.OK())
	assert.True(t, one.PercentChange.IsZero(), "a single day has no change")
}

func TestGateway_PricesKeepsRecentDays(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{"AAPL": bars(30)}}
	g := NewGateway(f, f)

	s := g.Prices(context.Background(), []string{"AAPL"}, 2)["AAPL"]
	require.True(t, s.OK())
	assert.Len(t, s.Prices, 2)
	assert.Contains(t, s.Prices, "2024-01-30")
	assert.Contains(t, s.Prices, "2024-01-29")
	// 128 to 129
	assert.Equal(t, "0.78", s.PercentChange.String())

	s = g.Prices(context.Background(), []string{"AAPL"}, 0)["AAPL"]
	assert.Len(t, s.Prices, 1, "days is at least one")

	s = g.Prices(context.Background(), []string{"AAPL"}, 1000)["AAPL"]
	assert.Len(t, s.Prices, 30)
}

func TestGateway_PricesPartialFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	f := &fakeProvider{series: map[string][]alphavantage.Bar{"AAPL": bars(3)}}
	g := NewGateway(f, f, WithLogger(logger))

	got := g.Prices(context.Background(), []string{"AAPL", "XXXX"}, 7)

	assert.True(t, got["AAPL"].OK())
	assert.Equal(t, "Invalid API call for XXXX", got["XXXX"].Err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "XXXX", entry.Data["symbol"])
}

func TestGateway_PricesDeduplicates(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{"AAPL": bars(3)}}
	g := NewGateway(f, f)

	got := g.Prices(context.Background(), []string{"AAPL", "AAPL", "AAPL"}, 7)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, f.calls["AAPL"])
}

func TestGateway_Concurrency(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{}, delay: 20 * time.Millisecond}
	var symbols []string
	for i := range 12 {
		symbols = append(symbols, fmt.Sprintf("S%02d", i))
	}
	g := NewGateway(f, f, WithConcurrency(3))

	got := g.Prices(context.Background(), symbols, 7)
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
}

func TestGateway_Timeout(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{"AAPL": bars(3)}, delay: time.Second}
	g := NewGateway(f, f, WithTimeout(10*time.Millisecond))

	s := g.Prices(context.Background(), []string{"AAPL"}, 7)["AAPL"]
	assert.Equal(t, context.DeadlineExceeded.Error(), s.Err)
}

func TestGateway_MarkersHideAPIKeys(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close() // connections are refused from now on

	logger, hook := test.NewNullLogger()
	prices := alphavantage.NewClient("AVSECRET", alphavantage.WithBaseURL(addr+"/query"))
	news := newsapi.NewClient("NEWSSECRET", newsapi.WithBaseURL(addr+"/v2/everything"))
	g := NewGateway(prices, news, WithLogger(logger))

	s := g.Prices(context.Background(), []string{"AAPL"}, 7)["AAPL"]
	require.NotEmpty(t, s.Err)
	assert.NotContains(t, s.Err, "AVSECRET")
	assert.Contains(t, s.Err, addr+"/query")

	n := g.News(context.Background(), []string{"AAPL"}, 5)["AAPL"]
	require.NotEmpty(t, n.Err)
	assert.NotContains(t, n.Err, "NEWSSECRET")

	for _, e := range hook.AllEntries() {
		msg, err := e.String()
		require.NoError(t, err)
		assert.NotContains(t, msg, "SECRET")
	}
}

func TestGateway_News(t *testing.T) {
	article := func(title string) newsapi.Article {
		a := newsapi.Article{Title: title, URL: "https://example.com/" + title, PublishedAt: "2024-03-04T10:00:00Z"}
		a.Source.Name = "Reuters"
		return a
	}
	f := &fakeProvider{articles: map[string][]newsapi.Article{
		"AAPL": {article("a"), article("b"), article("c")},
		"MSFT": {},
	}}
	g := NewGateway(f, f)

	got := g.News(context.Background(), []string{"AAPL", "MSFT", "XXXX"}, 2)

	require.Len(t, got["AAPL"].Articles, 2, "articles are capped")
	assert.Equal(t, Article{Title: "a", Source: "Reuters", URL: "https://example.com/a", PublishedAt: "2024-03-04T10:00:00Z"}, got["AAPL"].Articles[0])
	assert.Empty(t, got["MSFT"].Articles)
	assert.Equal(t, "You have made too many requests recently.", got["XXXX"].Err)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"AAPL": [
			{"title":"a","source":"Reuters","url":"https://example.com/a","published_at":"2024-03-04T10:00:00Z","description":""},
			{"title":"b","source":"Reuters","url":"https://example.com/b","published_at":"2024-03-04T10:00:00Z","description":""}
		],
		"MSFT": [],
		"XXXX": {"error":"You have made too many requests recently."}
	}`, string(data))
}

func TestGateway_Search(t *testing.T) {
	f := &fakeProvider{matches: []alphavantage.Match{
		{Symbol: "TSCO.LON", Name: "Tesco PLC", Type: "Equity", Region: "United Kingdom", Currency: "GBX"},
	}}
	g := NewGateway(f, f)

	got, err := g.Search(context.Background(), "tesco")
	require.NoError(t, err)
	assert.Equal(t, []Match{{Symbol: "TSCO.LON", Name: "Tesco PLC", Type: "Equity", Region: "United Kingdom"}}, got)

	_, err = g.Search(context.Background(), "")
	assert.Error(t, err)
}

func TestPriceSeries_MarshalJSON(t *testing.T) {
	f := &fakeProvider{series: map[string][]alphavantage.Bar{
		"AAPL": {bar("2024-03-04", 110), bar("2024-03-01", 100)},
	}}
	got := NewGateway(f, f).Prices(context.Background(), []string{"AAPL", "XXXX"}, 7)

	data, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"AAPL": {
			"prices": {
				"2024-03-04": {"open":110,"high":110,"low":110,"close":110,"volume":1000},
				"2024-03-01": {"open":100,"high":100,"low":100,"close":100,"volume":1000}
			},
			"percent_change": 10
		},
		"XXXX": {"error": "Invalid API call for XXXX"}
	}`, string(data))
}

func TestSymbols(t *testing.T) {
	assert.Equal(t, []string{"B", "A", "C"}, Symbols([]string{"B", "A", "B", "C", "A"}))
	assert.Empty(t, Symbols(nil))
}
