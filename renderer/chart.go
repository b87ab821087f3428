package renderer

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/etnz/allocation"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNothingToChart is returned for a portfolio without any positive allocation.
var ErrNothingToChart = errors.New("portfolio has no allocation to chart")

// shade returns the i-th shade of a color channel: darkest first, capped to 80%.
func shade(i int) uint8 {
	v := min(0.8, 0.3+float64(i)*0.1)
	return uint8(math.Round(v * 255))
}

// Chart renders the allocation of p as a PNG pie chart. Stocks are drawn in
// shades of blue, bonds in shades of green.
func Chart(title string, p allocation.Portfolio) ([]byte, error) {
	var values []chart.Value
	add := func(lines []Line, color func(i int) drawing.Color) {
		for i, l := range lines {
			if !l.Percent.GreaterThan(allocation.Percent{}) {
				continue
			}
			values = append(values, chart.Value{
				Label: fmt.Sprintf("%s (%s%%)", l.Key, l.Percent),
				Value: l.Percent.Float64(),
				Style: chart.Style{
					FillColor:   color(i),
					StrokeColor: drawing.ColorWhite,
					FontColor:   drawing.ColorWhite,
				},
			})
		}
	}
	add(Lines(p.Stocks, p.StockSymbols()), func(i int) drawing.Color { return drawing.Color{B: shade(i), A: 255} })
	add(Lines(p.Bonds, p.BondIDs()), func(i int) drawing.Color { return drawing.Color{G: shade(i), A: 255} })
	if len(values) == 0 {
		return nil, ErrNothingToChart
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  1000,
		Height: 700,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("cannot render chart: %w", err)
	}
	return buf.Bytes(), nil
}
