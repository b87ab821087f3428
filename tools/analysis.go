package tools

import (
	"github.com/etnz/allocation"
	"github.com/etnz/allocation/renderer"
)

// Thresholds of the recommendations, in percent.
var (
	diversifiedCount   = 5 // stocks
	diversifyAbove     = allocation.P(30)
	stocksHeavyAbove   = allocation.P(80)
	conservativeBelow  = allocation.P(30)
	concentrationAbove = allocation.P(15)
)

// recommend applies simple rules of thumb to p.
func recommend(p allocation.Portfolio) *renderer.Recommendations {
	if p.IsEmpty() {
		return &renderer.Recommendations{Empty: true}
	}
	stocks, total := p.StockAllocation(), p.TotalAllocation()
	r := &renderer.Recommendations{
		Diversify: len(p.Stocks) < diversifiedCount && stocks.GreaterThan(diversifyAbove),
	}

	if total.GreaterThan(allocation.Percent{}) {
		r.HasSplit = true
		r.StockShare = stocks.Ratio(total)
		r.BondShare = allocation.P(100).Sub(r.StockShare)
		switch {
		case r.StockShare.GreaterThan(stocksHeavyAbove):
			r.Balance = "stocks"
		case r.StockShare.LessThan(conservativeBelow):
			r.Balance = "bonds"
		default:
			r.Balance = "balanced"
		}
	}

	for _, symbol := range p.StockSymbols() {
		if v := p.Stocks[symbol]; v.GreaterThan(concentrationAbove) {
			r.Concentrated = append(r.Concentrated, renderer.Line{Key: symbol, Percent: v})
		}
	}
	return r
}
