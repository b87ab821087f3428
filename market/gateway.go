// Package market fetches stock prices, news and symbols from remote providers.
//
// Calls for several symbols are issued concurrently, and tolerate partial
// failures: a symbol that cannot be fetched gets an error marker in its slot.
package market

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/etnz/allocation"
	"github.com/etnz/allocation/alphavantage"
	"github.com/etnz/allocation/newsapi"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Limits on the history and news sizes.
const (
	MaxDays     = 100
	MaxArticles = newsapi.MaxPageSize
)

// PriceProvider serves daily price series and symbol search.
type PriceProvider interface {
	DailySeries(ctx context.Context, symbol string) ([]alphavantage.Bar, error)
	SymbolSearch(ctx context.Context, keywords string) ([]alphavantage.Match, error)
}

// NewsProvider serves news articles.
type NewsProvider interface {
	Everything(ctx context.Context, query string, pageSize int) ([]newsapi.Article, error)
}

// Gateway is the entry point to market data.
type Gateway struct {
	prices  PriceProvider
	news    NewsProvider
	limit   int
	timeout time.Duration
	log     logrus.FieldLogger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithConcurrency sets the maximum number of concurrent provider calls.
func WithConcurrency(n int) Option { return func(g *Gateway) { g.limit = max(1, n) } }

// WithTimeout sets the timeout of each provider call. Zero means no timeout.
func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.timeout = d } }

// WithLogger sets the logger used to report per symbol failures.
func WithLogger(log logrus.FieldLogger) Option { return func(g *Gateway) { g.log = log } }

// NewGateway returns a Gateway over the providers.
func NewGateway(prices PriceProvider, news NewsProvider, options ...Option) *Gateway {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	g := &Gateway{prices: prices, news: news, limit: 4, log: discard}
	for _, option := range options {
		option(g)
	}
	return g
}

// call runs f under the gateway timeout.
func (g *Gateway) call(ctx context.Context, f func(context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return f(ctx)
}

// forEach calls f for each distinct symbol, concurrently.
func (g *Gateway) forEach(symbols []string, f func(symbol string)) {
	var eg errgroup.Group
	eg.SetLimit(g.limit)
	for _, symbol := range Symbols(symbols) {
		eg.Go(func() error {
			f(symbol)
			return nil
		})
	}
	eg.Wait() // f reports errors in its own result slot.
}

// Prices returns the most recent days of quotes of each symbol.
//
// days is capped to [1, MaxDays].
func (g *Gateway) Prices(ctx context.Context, symbols []string, days int) map[string]PriceSeries {
	days = max(1, min(days, MaxDays))
	var mu sync.Mutex
	res := make(map[string]PriceSeries, len(symbols))
	g.forEach(symbols, func(symbol string) {
		var bars []alphavantage.Bar
		err := g.call(ctx, func(ctx context.Context) (err error) {
			bars, err = g.prices.DailySeries(ctx, symbol)
			return err
		})
		var s PriceSeries
		if err != nil {
			g.log.WithField("symbol", symbol).WithError(err).Warn("cannot fetch prices")
			s = PriceSeries{Err: err.Error()}
		} else {
			s = series(bars, days)
		}
		mu.Lock()
		res[symbol] = s
		mu.Unlock()
	})
	return res
}

// series keeps the days most recent bars (bars are most recent first).
func series(bars []alphavantage.Bar, days int) PriceSeries {
	bars = bars[:min(days, len(bars))]
	s := PriceSeries{Prices: make(map[string]DailyPrice, len(bars))}
	for _, b := range bars {
		s.Prices[b.Date] = DailyPrice{Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	if len(bars) > 0 {
		s.LastClose = bars[0].Close
	}
	if len(bars) >= 2 {
		s.PercentChange = change(bars[len(bars)-1].Close, bars[0].Close)
	}
	return s
}

// change returns the change from first to last in percent, rounded to 2 decimals.
func change(first, last decimal.Decimal) allocation.Percent {
	if first.IsZero() {
		return allocation.Percent{}
	}
	return allocation.P(last.Sub(first)).Ratio(allocation.P(first)).Round(2)
}

// News returns up to maxArticles recent articles about each symbol.
//
// maxArticles is capped to [1, MaxArticles].
func (g *Gateway) News(ctx context.Context, symbols []string, maxArticles int) map[string]NewsResult {
	maxArticles = max(1, min(maxArticles, MaxArticles))
	var mu sync.Mutex
	res := make(map[string]NewsResult, len(symbols))
	g.forEach(symbols, func(symbol string) {
		var articles []newsapi.Article
		err := g.call(ctx, func(ctx context.Context) (err error) {
			articles, err = g.news.Everything(ctx, symbol, maxArticles)
			return err
		})
		var n NewsResult
		if err != nil {
			g.log.WithField("symbol", symbol).WithError(err).Warn("cannot fetch news")
			n = NewsResult{Err: err.Error()}
		} else {
			n.Articles = make([]Article, 0, len(articles))
			for _, a := range articles[:min(maxArticles, len(articles))] {
				n.Articles = append(n.Articles, Article{
					Title:       a.Title,
					Source:      a.Source.Name,
					URL:         a.URL,
					PublishedAt: a.PublishedAt,
					Description: a.Description,
				})
			}
		}
		mu.Lock()
		res[symbol] = n
		mu.Unlock()
	})
	return res
}

// Search returns the symbols matching a company name or symbol fragment.
func (g *Gateway) Search(ctx context.Context, query string) ([]Match, error) {
	var matches []alphavantage.Match
	err := g.call(ctx, func(ctx context.Context) (err error) {
		matches, err = g.prices.SymbolSearch(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}
	res := make([]Match, 0, len(matches))
	for _, m := range matches {
		res = append(res, Match{Symbol: m.Symbol, Name: m.Name, Type: m.Type, Region: m.Region})
	}
	return res, nil
}

// Symbols returns the distinct symbols in order of first appearance.
func Symbols(symbols []string) []string {
	res := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !slices.Contains(res, s) {
			res = append(res, s)
		}
	}
	return res
}
