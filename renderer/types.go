package renderer

import (
	"github.com/etnz/allocation"
	"github.com/shopspring/decimal"
)

// Line is one holding of a portfolio.
type Line struct {
	Key     string
	Percent allocation.Percent
}

// Lines returns the lines of an allocation mapping in lexical order of keys.
func Lines(m map[string]allocation.Percent, keys []string) []Line {
	res := make([]Line, 0, len(keys))
	for _, k := range keys {
		res = append(res, Line{Key: k, Percent: m[k]})
	}
	return res
}

// View is the data rendered by RenderView.
type View struct {
	Stocks          []Line
	Bonds           []Line
	StockAllocation allocation.Percent
	BondAllocation  allocation.Percent
	TotalAllocation allocation.Percent
}

// NewView returns the view of p.
func NewView(p allocation.Portfolio) *View {
	return &View{
		Stocks:          Lines(p.Stocks, p.StockSymbols()),
		Bonds:           Lines(p.Bonds, p.BondIDs()),
		StockAllocation: p.StockAllocation(),
		BondAllocation:  p.BondAllocation(),
		TotalAllocation: p.TotalAllocation(),
	}
}

func (v *View) Empty() bool { return len(v.Stocks) == 0 && len(v.Bonds) == 0 }

// Report is the data rendered by RenderReport.
type Report struct {
	StockAllocation allocation.Percent
	BondAllocation  allocation.Percent
	Stocks          []StockPerformance
	Bonds           []Line
	// TotalContribution is the sum of the stock contributions.
	TotalContribution allocation.Percent
	// Currency of the quotes.
	Currency string
}

func (r *Report) Empty() bool { return len(r.Stocks) == 0 && len(r.Bonds) == 0 }

// StockPerformance is the recent performance of one stock.
type StockPerformance struct {
	Symbol     string
	Allocation allocation.Percent
	// HasData is false if no recent prices are available.
	HasData bool
	// Change over the period, in percent.
	Change allocation.Percent
	// Contribution is the change weighted by the allocation.
	Contribution allocation.Percent
	LastClose    decimal.Decimal
}

// Recommendations is the data rendered by RenderRecommendations.
type Recommendations struct {
	Empty bool
	// Diversify is true if the stocks are too few for their weight.
	Diversify bool
	// HasSplit is false when the total allocation is zero.
	HasSplit   bool
	StockShare allocation.Percent // share of stocks in the total allocation
	BondShare  allocation.Percent
	// Balance is one of "stocks", "bonds" or "balanced", the side the
	// portfolio leans to.
	Balance string
	// Concentrated lists the stocks weighting too much on their own.
	Concentrated []Line
}

// WellStructured returns true if neither diversification nor concentration advice applies.
func (r *Recommendations) WellStructured() bool { return !r.Diversify && len(r.Concentrated) == 0 }
