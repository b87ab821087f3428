// Package tools implements the operations offered to AI agents: recording an
// allocation, viewing it, fetching market data and generating reports.
//
// Every operation performs at most one load and one save of the user record.
package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/allocation"
	"github.com/etnz/allocation/market"
	"github.com/etnz/allocation/renderer"
	"github.com/sirupsen/logrus"
)

// Default sizes of market data requests.
const (
	DefaultDays        = 7
	DefaultMaxArticles = 5
)

// Market is the market data source, implemented by *market.Gateway.
type Market interface {
	Prices(ctx context.Context, symbols []string, days int) map[string]market.PriceSeries
	News(ctx context.Context, symbols []string, maxArticles int) map[string]market.NewsResult
	Search(ctx context.Context, query string) ([]market.Match, error)
}

// Toolbox implements the operations.
type Toolbox struct {
	store    *allocation.Store
	market   Market
	log      logrus.FieldLogger
	currency string
}

// Option configures a Toolbox.
type Option func(*Toolbox)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option { return func(t *Toolbox) { t.log = log } }

// WithCurrency sets the currency quotes are expressed in, USD by default.
func WithCurrency(code string) Option { return func(t *Toolbox) { t.currency = code } }

// New returns a Toolbox over a store and a market data source.
func New(store *allocation.Store, m Market, options ...Option) *Toolbox {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	t := &Toolbox{store: store, market: m, log: discard, currency: "USD"}
	for _, option := range options {
		option(t)
	}
	return t
}

// Store returns the underlying store.
func (t *Toolbox) Store() *allocation.Store { return t.store }

func (t *Toolbox) load(userID string) (allocation.Portfolio, error) {
	if userID == "" {
		return allocation.Portfolio{}, validation("user_id is required")
	}
	return t.store.Load(userID)
}

// UpdatePortfolio merges stocks and bonds into the user's allocation and
// saves it. A total allocation away from 100% is reported, not rejected.
func (t *Toolbox) UpdatePortfolio(ctx context.Context, userID string, stocks, bonds map[string]allocation.Percent) (string, error) {
	if err := allocation.ValidateAllocations(stocks, bonds); err != nil {
		return "", &Error{Category: CategoryValidation, Err: err}
	}
	p, err := t.load(userID)
	if err != nil {
		return "", err
	}
	p, total := allocation.ApplyUpdate(p, stocks, bonds)
	if err := t.store.Save(userID, &p); err != nil {
		return "", err
	}
	t.log.WithFields(logrus.Fields{"user_id": userID, "total": total.String()}).Info("portfolio updated")

	msg := fmt.Sprintf("Portfolio updated successfully for user %s (%d stocks, %d bonds). Total allocation: %s%%",
		userID, len(p.Stocks), len(p.Bonds), total)
	if warning := allocation.AllocationWarning(total); warning != "" {
		msg += "\n" + warning
	}
	return msg, nil
}

// ViewPortfolio returns the markdown summary of the user's allocation.
func (t *Toolbox) ViewPortfolio(ctx context.Context, userID string) (string, error) {
	p, err := t.load(userID)
	if err != nil {
		return "", err
	}
	return renderer.RenderView(renderer.NewView(p)), nil
}

// RemoveInvestment removes stocks and bonds from the user's allocation. Keys
// not in the allocation are ignored. The record is saved in any case.
func (t *Toolbox) RemoveInvestment(ctx context.Context, userID string, stockSymbols, bondIDs []string) (string, error) {
	p, err := t.load(userID)
	if err != nil {
		return "", err
	}
	p, removed := allocation.ApplyRemoval(p, stockSymbols, bondIDs)
	if err := t.store.Save(userID, &p); err != nil {
		return "", err
	}
	t.log.WithFields(logrus.Fields{"user_id": userID, "removed": len(removed)}).Info("investments removed")

	if len(removed) == 0 {
		return "No matching investments are found for removal.", nil
	}
	return fmt.Sprintf("Removed investments: %s from user %s's portfolio.", strings.Join(removed, ", "), userID), nil
}

func requireSymbols(symbols []string) error {
	if len(symbols) == 0 {
		return validation("at least one symbol is required")
	}
	for _, s := range symbols {
		if strings.TrimSpace(s) == "" {
			return validation("empty symbol")
		}
	}
	return nil
}

// GetStockPrices returns the recent daily prices of each symbol. Symbols that
// cannot be fetched carry an error marker.
func (t *Toolbox) GetStockPrices(ctx context.Context, symbols []string, days int) (map[string]market.PriceSeries, error) {
	if err := requireSymbols(symbols); err != nil {
		return nil, err
	}
	return t.market.Prices(ctx, symbols, days), nil
}

// GetStockNews returns recent news about each symbol.
func (t *Toolbox) GetStockNews(ctx context.Context, symbols []string, maxArticles int) (map[string]market.NewsResult, error) {
	if err := requireSymbols(symbols); err != nil {
		return nil, err
	}
	return t.market.News(ctx, symbols, maxArticles), nil
}

// SearchStocks returns the symbols matching a company name.
func (t *Toolbox) SearchStocks(ctx context.Context, query string) ([]market.Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validation("query is required")
	}
	matches, err := t.market.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot search %q: %w", query, err)
	}
	return matches, nil
}

// GeneratePortfolioReport returns the markdown analysis of the user's
// allocation, with the recent performance of each stock.
func (t *Toolbox) GeneratePortfolioReport(ctx context.Context, userID string) (string, error) {
	p, err := t.load(userID)
	if err != nil {
		return "", err
	}
	if p.IsEmpty() {
		return renderer.EmptyPortfolio, nil
	}
	stocks, total := t.performance(ctx, p)
	return renderer.RenderReport(&renderer.Report{
		StockAllocation:   p.StockAllocation(),
		BondAllocation:    p.BondAllocation(),
		Stocks:            stocks,
		Bonds:             renderer.Lines(p.Bonds, p.BondIDs()),
		TotalContribution: total,
		Currency:          t.currency,
	}), nil
}

// performance returns the recent performance of each stock of p and their
// total contribution.
func (t *Toolbox) performance(ctx context.Context, p allocation.Portfolio) ([]renderer.StockPerformance, allocation.Percent) {
	symbols := p.StockSymbols()
	var prices map[string]market.PriceSeries
	if len(symbols) > 0 {
		prices = t.market.Prices(ctx, symbols, DefaultDays)
	}
	var total allocation.Percent
	res := make([]renderer.StockPerformance, 0, len(symbols))
	for _, symbol := range symbols {
		sp := renderer.StockPerformance{Symbol: symbol, Allocation: p.Stocks[symbol]}
		if s, ok := prices[symbol]; ok && s.OK() {
			sp.HasData = true
			sp.Change = s.PercentChange
			sp.Contribution = sp.Allocation.Contribution(s.PercentChange)
			sp.LastClose = s.LastClose
			total = total.Add(sp.Contribution)
		}
		res = append(res, sp)
	}
	return res, total
}

// GetInvestmentRecommendations returns basic markdown advice on the user's allocation.
func (t *Toolbox) GetInvestmentRecommendations(ctx context.Context, userID string) (string, error) {
	p, err := t.load(userID)
	if err != nil {
		return "", err
	}
	return renderer.RenderRecommendations(recommend(p)), nil
}

// VisualizePortfolio returns a PNG pie chart of the user's allocation.
func (t *Toolbox) VisualizePortfolio(ctx context.Context, userID string) ([]byte, error) {
	p, err := t.load(userID)
	if err != nil {
		return nil, err
	}
	return renderer.Chart("Portfolio Allocation for User "+userID, p)
}
