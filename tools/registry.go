package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/etnz/allocation"
)

// Result is the outcome of a successful tool call.
type Result struct {
	// Text is the textual result, markdown or indented JSON.
	Text string
	// Image is set for tools returning an image.
	Image    []byte
	MIMEType string
}

// Tool is an operation exposed to agents.
type Tool struct {
	Name        string
	Title       string
	Description string
	InputSchema *Schema
	// ReadOnly is true for tools that do not modify any record.
	ReadOnly bool
	// Call runs the tool with JSON arguments.
	Call func(ctx context.Context, arguments json.RawMessage) (Result, error)
}

// decode unmarshals JSON arguments into params. Empty arguments leave params untouched.
func decode(arguments json.RawMessage, params any) error {
	arguments = bytes.TrimSpace(arguments)
	if len(arguments) == 0 || bytes.Equal(arguments, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(arguments, params); err != nil {
		return validation("invalid arguments: %w", err)
	}
	return nil
}

// call decodes the arguments into a fresh P and runs f.
func call[P any](f func(ctx context.Context, params *P) (Result, error)) func(context.Context, json.RawMessage) (Result, error) {
	return func(ctx context.Context, arguments json.RawMessage) (Result, error) {
		params := new(P)
		if err := decode(arguments, params); err != nil {
			return Result{}, err
		}
		return f(ctx, params)
	}
}

func text(s string, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	return Result{Text: s}, nil
}

func indented(v any, err error) (Result, error) {
	if err != nil {
		return Result{}, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("cannot encode result: %w", err)
	}
	return Result{Text: string(data)}, nil
}

type userParams struct {
	UserID string `json:"user_id"`
}

type updateParams struct {
	UserID string                        `json:"user_id"`
	Stocks map[string]allocation.Percent `json:"stocks"`
	Bonds  map[string]allocation.Percent `json:"bonds"`
}

type removeParams struct {
	UserID       string   `json:"user_id"`
	StockSymbols []string `json:"stock_symbols"`
	BondIDs      []string `json:"bond_ids"`
}

type pricesParams struct {
	Symbols []string `json:"symbols"`
	Days    *int     `json:"days"`
}

type newsParams struct {
	Symbols     []string `json:"symbols"`
	MaxArticles *int     `json:"max_articles"`
}

type searchParams struct {
	Query string `json:"query"`
}

func orDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

// Tools returns the tools in a stable order.
func (t *Toolbox) Tools() []Tool {
	userOnly := object([]string{"user_id"}, map[string]*Schema{"user_id": userIDSchema})
	return []Tool{
		{
			Name:  "update_portfolio",
			Title: "Update portfolio",
			Description: `Update a user's investment portfolio. The given stocks and bonds are merged into the
current allocation: existing entries are overwritten, others are kept. A warning is returned
when the total allocation is not close to 100%, the portfolio is saved anyway.`,
			InputSchema: object([]string{"user_id"}, map[string]*Schema{
				"user_id": userIDSchema,
				"stocks":  allocations(`Stock symbols to allocation percentage (e.g. {"AAPL": 10.5, "MSFT": 15.0})`),
				"bonds":   allocations(`Bond identifiers to allocation percentage (e.g. {"US10Y": 30.0, "CORP_AAA": 20.0})`),
			}),
			Call: call(func(ctx context.Context, p *updateParams) (Result, error) {
				return text(t.UpdatePortfolio(ctx, p.UserID, p.Stocks, p.Bonds))
			}),
		},
		{
			Name:        "view_portfolio",
			Title:       "View portfolio",
			Description: "View a user's current portfolio allocation.",
			InputSchema: userOnly,
			ReadOnly:    true,
			Call: call(func(ctx context.Context, p *userParams) (Result, error) {
				return text(t.ViewPortfolio(ctx, p.UserID))
			}),
		},
		{
			Name:        "remove_investment",
			Title:       "Remove investments",
			Description: "Remove stocks and/or bonds from a user's portfolio. Unknown entries are ignored.",
			InputSchema: object([]string{"user_id"}, map[string]*Schema{
				"user_id":       userIDSchema,
				"stock_symbols": stringList("Stock symbols to remove"),
				"bond_ids":      stringList("Bond identifiers to remove"),
			}),
			Call: call(func(ctx context.Context, p *removeParams) (Result, error) {
				return text(t.RemoveInvestment(ctx, p.UserID, p.StockSymbols, p.BondIDs))
			}),
		},
		{
			Name:        "get_stock_prices",
			Title:       "Get stock prices",
			Description: "Get recent daily price data for multiple stocks, and their percent change over the period.",
			InputSchema: object([]string{"symbols"}, map[string]*Schema{
				"symbols": stringList("Stock symbols to fetch data for"),
				"days":    integer("Number of days of history to include", DefaultDays, 1, 100),
			}),
			ReadOnly: true,
			Call: call(func(ctx context.Context, p *pricesParams) (Result, error) {
				return indented(t.GetStockPrices(ctx, p.Symbols, orDefault(p.Days, DefaultDays)))
			}),
		},
		{
			Name:        "get_stock_news",
			Title:       "Get stock news",
			Description: "Get recent news articles about stocks.",
			InputSchema: object([]string{"symbols"}, map[string]*Schema{
				"symbols":      stringList("Stock symbols to get news for"),
				"max_articles": integer("Maximum number of articles to return per symbol", DefaultMaxArticles, 1, 100),
			}),
			ReadOnly: true,
			Call: call(func(ctx context.Context, p *newsParams) (Result, error) {
				return indented(t.GetStockNews(ctx, p.Symbols, orDefault(p.MaxArticles, DefaultMaxArticles)))
			}),
		},
		{
			Name:        "search_stocks",
			Title:       "Search stocks",
			Description: "Search stock symbols by company name or symbol fragment.",
			InputSchema: object([]string{"query"}, map[string]*Schema{
				"query": str("Company name or symbol fragment"),
			}),
			ReadOnly: true,
			Call: call(func(ctx context.Context, p *searchParams) (Result, error) {
				return indented(t.SearchStocks(ctx, p.Query))
			}),
		},
		{
			Name:        "generate_portfolio_report",
			Title:       "Generate portfolio report",
			Description: "Generate a report on the current portfolio with the recent performance of its stocks.",
			InputSchema: userOnly,
			ReadOnly:    true,
			Call: call(func(ctx context.Context, p *userParams) (Result, error) {
				return text(t.GeneratePortfolioReport(ctx, p.UserID))
			}),
		},
		{
			Name:        "get_investment_recommendations",
			Title:       "Get investment recommendations",
			Description: "Get basic investment recommendations based on the current portfolio allocation.",
			InputSchema: userOnly,
			ReadOnly:    true,
			Call: call(func(ctx context.Context, p *userParams) (Result, error) {
				return text(t.GetInvestmentRecommendations(ctx, p.UserID))
			}),
		},
		{
			Name:        "visualize_portfolio",
			Title:       "Visualize portfolio",
			Description: "Create a pie chart of the current portfolio allocation, stocks in blue and bonds in green.",
			InputSchema: userOnly,
			ReadOnly:    true,
			Call: call(func(ctx context.Context, p *userParams) (Result, error) {
				img, err := t.VisualizePortfolio(ctx, p.UserID)
				if err != nil {
					return Result{}, err
				}
				return Result{Image: img, MIMEType: "image/png"}, nil
			}),
		},
	}
}

// Lookup returns the tool named name.
func Lookup(tools []Tool, name string) (Tool, bool) {
	for _, tool := range tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return Tool{}, false
}
