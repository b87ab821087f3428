// Package renderer renders portfolios and reports to markdown, and charts to PNG.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed *.md
var templates embed.FS

// EmptyPortfolio is the message rendered for a portfolio with neither stocks nor bonds.
const EmptyPortfolio = "Portfolio is empty. Use update_portfolio tool to add investments."

// RenderView renders the current allocation of a portfolio.
func RenderView(v *View) string {
	if v.Empty() {
		return EmptyPortfolio
	}
	partials := map[string]string{
		"view_stocks":  "view_stocks.md",
		"view_bonds":   "view_bonds.md",
		"view_summary": "view_summary.md",
	}
	return renderTemplate("view", "view.md", partials, v)
}

// RenderReport renders the analysis report of a portfolio.
func RenderReport(r *Report) string {
	if r.Empty() {
		return EmptyPortfolio
	}
	partials := map[string]string{
		"report_allocation":  "report_allocation.md",
		"report_stocks":      "report_stocks.md",
		"report_bonds":       "report_bonds.md",
		"report_performance": "report_performance.md",
	}
	return renderTemplate("report", "report.md", partials, r)
}

// RenderRecommendations renders investment recommendations.
func RenderRecommendations(r *Recommendations) string {
	if r.Empty {
		return "Portfolio is empty. Use update_portfolio tool to add investments first."
	}
	partials := map[string]string{
		"recommendations_diversification": "recommendations_diversification.md",
		"recommendations_allocation":      "recommendations_allocation.md",
		"recommendations_concentration":   "recommendations_concentration.md",
	}
	return renderTemplate("recommendations", "recommendations.md", partials, r)
}

// funcs available to every template.
var funcs = template.FuncMap{
	"money": formatMoney,
}

// formatMoney formats amount in currency, rounded to the currency fraction.
func formatMoney(amount decimal.Decimal, currency string) string {
	// to get a never nil currency I need to call the Money constructor
	cur := *money.New(0, currency).Currency()
	dec := amount.Round(int32(cur.Fraction)).Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		// An empty file name is a valid case, resulting in an empty template.
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
