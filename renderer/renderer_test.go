package renderer

import (
	"bytes"
	"image/png"
	"io/fs"
	"strings"
	"testing"
	"text/template"

	"github.com/etnz/allocation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// headings returns the headings of a markdown document, prefixed by their level.
func headings(t *testing.T, md string) []string {
	t.Helper()
	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	var res []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		res = append(res, strings.Repeat("#", h.Level)+" "+b.String())
		return ast.WalkSkipChildren, nil
	})
	require.NoError(t, err)
	return res
}

func portfolio(stocks, bonds map[string]float64) allocation.Portfolio {
	p := allocation.NewPortfolio()
	for k, v := range stocks {
		p.Stocks[k] = allocation.P(v)
	}
	for k, v := range bonds {
		p.Bonds[k] = allocation.P(v)
	}
	return p
}

func TestTemplatesParse(t *testing.T) {
	files, err := fs.Glob(templates, "*.md")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			content, err := fs.ReadFile(templates, file)
			require.NoError(t, err)
			_, err = template.New(file).Funcs(funcs).Parse(string(content))
			assert.NoError(t, err)
		})
	}
}

func TestRenderView(t *testing.T) {
	p := portfolio(map[string]float64{"MSFT": 20, "AAPL": 40.5}, map[string]float64{"US10Y": 39.5})

	got := RenderView(NewView(p))

	assert.Equal(t, `# Current Portfolio Allocation

## Stocks
- AAPL: 40.5%
- MSFT: 20%

## Bonds
- US10Y: 39.5%

## Summary
- Total stock allocation: 60.5%
- Total bond allocation: 39.5%
- Total allocation: 100%
`, got)
	assert.Equal(t, []string{
		"# Current Portfolio Allocation",
		"## Stocks",
		"## Bonds",
		"## Summary",
	}, headings(t, got))
}

func TestRenderView_StocksOnly(t *testing.T) {
	got := RenderView(NewView(portfolio(map[string]float64{"AAPL": 150}, nil)))

	assert.Equal(t, []string{"# Current Portfolio Allocation", "## Stocks", "## Summary"}, headings(t, got))
	assert.Contains(t, got, "- Total bond allocation: 0%")
	assert.Contains(t, got, "- Total allocation: 150%")
}

func TestRenderView_Empty(t *testing.T) {
	assert.Equal(t, EmptyPortfolio, RenderView(NewView(allocation.NewPortfolio())))
}

func TestRenderReport(t *testing.T) {
	r := &Report{
		StockAllocation: allocation.P(70),
		BondAllocation:  allocation.P(30),
		Stocks: []StockPerformance{
			{
				Symbol:       "AAPL",
				Allocation:   allocation.P(60),
				HasData:      true,
				Change:       allocation.P(2.5),
				Contribution: allocation.P(1.5),
				LastClose:    decimal.RequireFromString("175.1"),
			},
			{Symbol: "XXXX", Allocation: allocation.P(10)},
		},
		Bonds:             []Line{{Key: "US10Y", Percent: allocation.P(30)}},
		TotalContribution: allocation.P(1.5),
		Currency:          "USD",
	}

	got := RenderReport(r)

	assert.Equal(t, `# Portfolio Analysis Report

## Current Allocation
- **Stocks**: 70%
- **Bonds**: 30%

## Recent Performance
### Stocks
- **AAPL** (60% of portfolio): 2.5% change, contributing 1.50% to portfolio (last close $175.10)
- **XXXX** (10% of portfolio): No recent data available

### Bonds
Bond data typically changes less frequently than stocks.
- **US10Y** (30% of portfolio)

## Overall Portfolio Performance
The portfolio has changed approximately 1.50% recently based on stock performance.
`, got)
}

func TestRenderReport_BondsOnly(t *testing.T) {
	r := &Report{
		BondAllocation: allocation.P(100),
		Bonds:          []Line{{Key: "US10Y", Percent: allocation.P(100)}},
		Currency:       "USD",
	}
	assert.Equal(t, []string{
		"# Portfolio Analysis Report",
		"## Current Allocation",
		"## Recent Performance",
		"### Bonds",
		"## Overall Portfolio Performance",
	}, headings(t, RenderReport(r)))
	assert.Contains(t, RenderReport(r), "approximately 0.00% recently")
}

func TestRenderReport_Empty(t *testing.T) {
	assert.Equal(t, EmptyPortfolio, RenderReport(&Report{}))
}

func TestRenderRecommendations(t *testing.T) {
	tests := []struct {
		name string
		r    Recommendations
		want string
	}{
		{
			name: "concentrated",
			r: Recommendations{
				Diversify:    true,
				HasSplit:     true,
				StockShare:   allocation.P(60),
				BondShare:    allocation.P(40),
				Balance:      "balanced",
				Concentrated: []Line{{Key: "AAPL", Percent: allocation.P(60)}},
			},
			want: `# Investment Recommendations

## Diversification
Your stock portfolio appears concentrated in a small number of stocks.
Consider adding more stocks to reduce company-specific risk.

## Asset Allocation
Current allocation: 60.0% stocks, 40.0% bonds
Your current stock/bond allocation appears reasonably balanced.

**AAPL** represents 60% of your portfolio, which is relatively high.
Consider reducing this position to limit single-stock risk.

`,
		},
		{
			name: "well-structured",
			r: Recommendations{
				HasSplit:   true,
				StockShare: allocation.P(85.25),
				BondShare:  allocation.P(14.75),
				Balance:    "stocks",
			},
			want: `# Investment Recommendations

## Asset Allocation
Current allocation: 85.3% stocks, 14.8% bonds
Your portfolio is heavily weighted toward stocks, which increases volatility.
Consider increasing bond allocation for more stability.

Your portfolio appears well-structured based on basic checks.
For more detailed recommendations, consider adding more information about your financial goals and risk tolerance.
`,
		},
		{
			name: "conservative",
			r: Recommendations{
				HasSplit:  true,
				BondShare: allocation.P(100),
				Balance:   "bonds",
			},
			want: `# Investment Recommendations

## Asset Allocation
Current allocation: 0.0% stocks, 100.0% bonds
Your portfolio is very conservative with a high bond allocation.
Consider increasing stock allocation for greater long-term growth potential.

Your portfolio appears well-structured based on basic checks.
For more detailed recommendations, consider adding more information about your financial goals and risk tolerance.
`,
		},
		{
			name: "no split",
			r:    Recommendations{},
			want: `# Investment Recommendations

## Asset Allocation

Your portfolio appears well-structured based on basic checks.
For more detailed recommendations, consider adding more information about your financial goals and risk tolerance.
`,
		},
		{
			name: "empty",
			r:    Recommendations{Empty: true},
			want: "Portfolio is empty. Use update_portfolio tool to add investments first.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderRecommendations(&tt.r))
		})
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"175.1", "USD", "$175.10"},
		{"1234.567", "USD", "$1,234.57"},
		{"0.005", "USD", "$0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMoney(decimal.RequireFromString(tt.amount), tt.currency))
		})
	}
}

func TestChart(t *testing.T) {
	p := portfolio(map[string]float64{"AAPL": 40, "MSFT": 20}, map[string]float64{"US10Y": 40})

	data, err := Chart("Portfolio Allocation for User alice", p)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 700, img.Bounds().Dy())
}

func TestChart_Nothing(t *testing.T) {
	_, err := Chart("empty", allocation.NewPortfolio())
	assert.ErrorIs(t, err, ErrNothingToChart)

	_, err = Chart("zeros", portfolio(map[string]float64{"AAPL": 0}, nil))
	assert.ErrorIs(t, err, ErrNothingToChart)
}

func TestShade(t *testing.T) {
	assert.Equal(t, uint8(77), shade(0))
	assert.Equal(t, uint8(204), shade(5))
	assert.Equal(t, uint8(204), shade(12))
}
