package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/allocation"
	"github.com/etnz/allocation/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMarket serves canned series. Unknown symbols get an error marker.
type fakeMarket struct {
	series  map[string]market.PriceSeries
	matches []market.Match
	err     error
	calls   [][]string
}

func (f *fakeMarket) Prices(ctx context.Context, symbols []string, days int) map[string]market.PriceSeries {
	f.calls = append(f.calls, symbols)
	res := make(map[string]market.PriceSeries)
	for _, s := range symbols {
		if ps, ok := f.series[s]; ok {
			res[s] = ps
		} else {
			res[s] = market.PriceSeries{Err: "No data available"}
		}
	}
	return res
}

func (f *fakeMarket) News(ctx context.Context, symbols []string, maxArticles int) map[string]market.NewsResult {
	res := make(map[string]market.NewsResult)
	for _, s := range symbols {
		res[s] = market.NewsResult{Articles: []market.Article{{Title: s + " news", Source: "Reuters"}}}
	}
	return res
}

func (f *fakeMarket) Search(ctx context.Context, query string) ([]market.Match, error) {
	return f.matches, f.err
}

func series(change float64, lastClose string) market.PriceSeries {
	return market.PriceSeries{
		Prices:        map[string]market.DailyPrice{},
		PercentChange: allocation.P(change),
		LastClose:     decimal.RequireFromString(lastClose),
	}
}

func newToolbox(t *testing.T, m *fakeMarket) *Toolbox {
	t.Helper()
	store, err := allocation.NewStore(t.TempDir())
	require.NoError(t, err)
	if m == nil {
		m = &fakeMarket{}
	}
	return New(store, m)
}

func pcts(kv map[string]float64) map[string]allocation.Percent {
	m := make(map[string]allocation.Percent, len(kv))
	for k, v := range kv {
		m[k] = allocation.P(v)
	}
	return m
}

// TestScenarios runs the update, view and remove flow of a single user.
func TestScenarios(t *testing.T) {
	ctx := context.Background()
	tb := newToolbox(t, nil)

	// A: a balanced allocation.
	msg, err := tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 60}), pcts(map[string]float64{"US10Y": 40}))
	require.NoError(t, err)
	assert.Equal(t, "Portfolio updated successfully for user u1 (1 stocks, 1 bonds). Total allocation: 100%", msg)

	view, err := tb.ViewPortfolio(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, view, "- AAPL: 60%")
	assert.Contains(t, view, "- US10Y: 40%")
	assert.Contains(t, view, "- Total allocation: 100%")

	// B: overwriting a stock leaves the bonds, and the out of range total is still saved.
	msg, err = tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 80}), nil)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio updated successfully for user u1 (1 stocks, 1 bonds). Total allocation: 120%\n"+
		"Warning: Total allocation is 120%, which is not close to 100%", msg)

	view, err = tb.ViewPortfolio(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, view, "- AAPL: 80%")
	assert.Contains(t, view, "- US10Y: 40%")
	assert.Contains(t, view, "- Total allocation: 120%")

	// C: removing a present and an absent stock.
	msg, err = tb.RemoveInvestment(ctx, "u1", []string{"AAPL", "MSFT"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Removed investments: AAPL from user u1's portfolio.", msg)

	p, err := tb.Store().Load("u1")
	require.NoError(t, err)
	assert.Empty(t, p.Stocks)
	assert.Equal(t, []string{"US10Y"}, p.BondIDs())
}

func TestUpdatePortfolio_Validation(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()

	_, err := tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": -5}), nil)
	assert.Equal(t, CategoryValidation, Classify(err).Category)

	_, err = tb.UpdatePortfolio(ctx, "", pcts(map[string]float64{"AAPL": 5}), nil)
	assert.Equal(t, CategoryValidation, Classify(err).Category)

	users, err := tb.Store().Users()
	require.NoError(t, err)
	assert.Empty(t, users, "rejected updates are not saved")
}

func TestUpdatePortfolio_NothingSupplied(t *testing.T) {
	tb := newToolbox(t, nil)

	msg, err := tb.UpdatePortfolio(context.Background(), "u1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Portfolio updated successfully for user u1 (0 stocks, 0 bonds). Total allocation: 0%\n"+
		"Warning: Total allocation is 0%, which is not close to 100%", msg)

	p, err := tb.Store().Load("u1")
	require.NoError(t, err)
	assert.NotNil(t, p.LastUpdated, "the record is saved")
}

func TestRemoveInvestment_NoMatch(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()
	_, err := tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 100}), nil)
	require.NoError(t, err)

	msg, err := tb.RemoveInvestment(ctx, "u1", []string{"TSLA"}, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "No matching investments are found for removal.", msg)

	p, err := tb.Store().Load("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, p.StockSymbols())
}

func TestViewPortfolio_CorruptedRecord(t *testing.T) {
	tb := newToolbox(t, nil)
	path := filepath.Join(tb.Store().Dir(), "u1_portfolio.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	view, err := tb.ViewPortfolio(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio is empty. Use update_portfolio tool to add investments.", view)
}

func TestGeneratePortfolioReport(t *testing.T) {
	m := &fakeMarket{series: map[string]market.PriceSeries{
		"AAPL": series(2.5, "175.1"),
		"MSFT": series(-1.25, "410"),
	}}
	tb := newToolbox(t, m)
	ctx := context.Background()
	_, err := tb.UpdatePortfolio(ctx, "u1",
		pcts(map[string]float64{"AAPL": 40, "MSFT": 20, "XXXX": 10}),
		pcts(map[string]float64{"US10Y": 30}))
	require.NoError(t, err)

	report, err := tb.GeneratePortfolioReport(ctx, "u1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report, "# Portfolio Analysis Report\n"))
	assert.Contains(t, report, "- **Stocks**: 70%")
	assert.Contains(t, report, "- **AAPL** (40% of portfolio): 2.5% change, contributing 1.00% to portfolio (last close $175.10)")
	assert.Contains(t, report, "- **MSFT** (20% of portfolio): -1.25% change, contributing -0.25% to portfolio (last close $410.00)")
	assert.Contains(t, report, "- **XXXX** (10% of portfolio): No recent data available")
	assert.Contains(t, report, "- **US10Y** (30% of portfolio)")
	assert.Contains(t, report, "approximately 0.75% recently")
	require.Len(t, m.calls, 1, "prices are fetched once")
	assert.Equal(t, []string{"AAPL", "MSFT", "XXXX"}, m.calls[0])
}

func TestGeneratePortfolioReport_Empty(t *testing.T) {
	m := &fakeMarket{}
	tb := newToolbox(t, m)

	report, err := tb.GeneratePortfolioReport(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio is empty. Use update_portfolio tool to add investments.", report)
	assert.Empty(t, m.calls)
}

func TestGetInvestmentRecommendations(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()
	_, err := tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 60}), pcts(map[string]float64{"US10Y": 40}))
	require.NoError(t, err)

	got, err := tb.GetInvestmentRecommendations(ctx, "u1")
	require.NoError(t, err)
	assert.Contains(t, got, "## Diversification")
	assert.Contains(t, got, "Current allocation: 60.0% stocks, 40.0% bonds")
	assert.Contains(t, got, "reasonably balanced")
	assert.Contains(t, got, "**AAPL** represents 60% of your portfolio")
	assert.NotContains(t, got, "well-structured")
}

// A portfolio without stocks still gets the split and the well-structured note.
func TestGetInvestmentRecommendations_BondsOnly(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()
	_, err := tb.UpdatePortfolio(ctx, "u1", nil, pcts(map[string]float64{"US10Y": 60, "CORP_AAA": 40}))
	require.NoError(t, err)

	got, err := tb.GetInvestmentRecommendations(ctx, "u1")
	require.NoError(t, err)

	want := []string{
		"# Investment Recommendations",
		"## Asset Allocation",
		"Current allocation: 0.0% stocks, 100.0% bonds",
		"Your portfolio is very conservative with a high bond allocation.",
		"Consider increasing stock allocation for greater long-term growth potential.",
		"Your portfolio appears well-structured based on basic checks.",
	}
	last := -1
	for _, line := range want {
		i := strings.Index(got, line)
		require.GreaterOrEqual(t, i, 0, "missing %q in:\n%s", line, got)
		assert.Greater(t, i, last, "%q is out of order", line)
		last = i
	}
	assert.NotContains(t, got, "## Diversification")
	assert.NotContains(t, got, "represents")
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name         string
		stocks       map[string]float64
		bonds        map[string]float64
		diversify    bool
		balance      string
		concentrated []string
	}{
		{
			name:    "diversified and balanced",
			stocks:  map[string]float64{"A": 10, "B": 10, "C": 10, "D": 10, "E": 10},
			bonds:   map[string]float64{"US10Y": 50},
			balance: "balanced",
		},
		{
			name:         "heavy stocks",
			stocks:       map[string]float64{"A": 90},
			bonds:        map[string]float64{"US10Y": 10},
			diversify:    true,
			balance:      "stocks",
			concentrated: []string{"A"},
		},
		{
			name:    "bonds only",
			bonds:   map[string]float64{"US10Y": 100},
			balance: "bonds",
		},
		{
			name:    "small stock share",
			stocks:  map[string]float64{"A": 10, "B": 10},
			bonds:   map[string]float64{"US10Y": 80},
			balance: "bonds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := allocation.ApplyUpdate(allocation.NewPortfolio(), pcts(tt.stocks), pcts(tt.bonds))
			r := recommend(p)

			assert.False(t, r.Empty)
			assert.True(t, r.HasSplit)
			assert.Equal(t, tt.diversify, r.Diversify)
			assert.Equal(t, tt.balance, r.Balance)
			var concentrated []string
			for _, l := range r.Concentrated {
				concentrated = append(concentrated, l.Key)
			}
			assert.Equal(t, tt.concentrated, concentrated)
			assert.Equal(t, tt.diversify == false && len(tt.concentrated) == 0, r.WellStructured())
		})
	}
}

func TestRecommend_ZeroTotal(t *testing.T) {
	p, _ := allocation.ApplyUpdate(allocation.NewPortfolio(), pcts(map[string]float64{"A": 0}), nil)
	r := recommend(p)
	assert.False(t, r.Empty)
	assert.False(t, r.HasSplit)
}

func TestVisualizePortfolio(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()

	_, err := tb.VisualizePortfolio(ctx, "u1")
	assert.Equal(t, CategoryNotFound, Classify(err).Category)

	_, err = tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 60}), pcts(map[string]float64{"US10Y": 40}))
	require.NoError(t, err)
	img, err := tb.VisualizePortfolio(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(img[:4]))
}

func TestMarketData(t *testing.T) {
	m := &fakeMarket{
		series:  map[string]market.PriceSeries{"AAPL": series(2.5, "175.1")},
		matches: []market.Match{{Symbol: "AAPL", Name: "Apple Inc", Type: "Equity", Region: "United States"}},
	}
	tb := newToolbox(t, m)
	ctx := context.Background()

	prices, err := tb.GetStockPrices(ctx, []string{"AAPL", "XXXX"}, 7)
	require.NoError(t, err)
	assert.True(t, prices["AAPL"].OK())
	assert.Equal(t, "No data available", prices["XXXX"].Err)

	_, err = tb.GetStockPrices(ctx, nil, 7)
	assert.Equal(t, CategoryValidation, Classify(err).Category)

	news, err := tb.GetStockNews(ctx, []string{"AAPL"}, 5)
	require.NoError(t, err)
	assert.Equal(t, "AAPL news", news["AAPL"].Articles[0].Title)

	matches, err := tb.SearchStocks(ctx, "apple")
	require.NoError(t, err)
	assert.Equal(t, m.matches, matches)

	_, err = tb.SearchStocks(ctx, " ")
	assert.Equal(t, CategoryValidation, Classify(err).Category)

	m.err = context.DeadlineExceeded
	_, err = tb.SearchStocks(ctx, "apple")
	assert.Equal(t, CategoryTransient, Classify(err).Category)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, CategoryValidation, Classify(allocation.ErrInvalidUserID).Category)
	assert.Equal(t, CategoryInternal, Classify(errors.New("boom")).Category)
	assert.Equal(t, CategoryTransient, Classify(context.Canceled).Category)
	assert.True(t, Classify(context.Canceled).Retryable())

	err := notFound("no %s", "thing")
	assert.Same(t, err, Classify(err))
}

func TestPerformanceResource(t *testing.T) {
	m := &fakeMarket{series: map[string]market.PriceSeries{"AAPL": series(2.5, "175.1")}}
	tb := newToolbox(t, m)
	ctx := context.Background()
	_, err := tb.UpdatePortfolio(ctx, "u1", pcts(map[string]float64{"AAPL": 60, "XXXX": 10}), pcts(map[string]float64{"US10Y": 30}))
	require.NoError(t, err)

	got, err := tb.ReadResource(ctx, "portfolio://u1/performance")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"symbols": {"AAPL": {"allocation": 60, "percent_change": 2.5, "contribution": 1.5}},
		"total_contribution": 1.5
	}`, got)
}

func TestRecordResource(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()

	got, err := tb.ReadResource(ctx, "portfolio://u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"stocks":{},"bonds":{},"last_updated":null}`, got)

	_, err = tb.UpdatePortfolio(ctx, "bob@example.com", pcts(map[string]float64{"AAPL": 100}), nil)
	require.NoError(t, err)
	got, err = tb.ReadResource(ctx, "portfolio://bob%40example.com")
	require.NoError(t, err)
	var record map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(got), &record))
	assert.JSONEq(t, `{"AAPL":100}`, string(record["stocks"]))

	for _, uri := range []string{"file:///etc/passwd", "portfolio://", "portfolio://%zz"} {
		_, err := tb.ReadResource(ctx, uri)
		assert.Error(t, err, uri)
	}
}

func TestListResources(t *testing.T) {
	tb := newToolbox(t, nil)
	ctx := context.Background()
	for _, u := range []string{"bob", "alice"} {
		_, err := tb.UpdatePortfolio(ctx, u, nil, nil)
		require.NoError(t, err)
	}

	got, err := tb.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "portfolio://alice", got[0].URI)
	assert.Equal(t, "portfolio://bob", got[1].URI)
	assert.Len(t, ResourceTemplates(), 2)
}
