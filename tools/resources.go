package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/etnz/allocation"
)

const (
	resourceScheme      = "portfolio://"
	performanceResource = "/performance"
)

// ResourceInfo describes a readable resource.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceTemplate describes a family of resources addressed by a URI template.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mimeType,omitempty"`
}

// ResourceTemplates returns the resource families served by ReadResource.
func ResourceTemplates() []ResourceTemplate {
	return []ResourceTemplate{
		{
			URITemplate: resourceScheme + "{user_id}",
			Name:        "portfolio",
			Description: "The persisted portfolio record of a user.",
			MIMEType:    "application/json",
		},
		{
			URITemplate: resourceScheme + "{user_id}" + performanceResource,
			Name:        "portfolio-performance",
			Description: "Recent performance of each stock of a user's portfolio and their total contribution.",
			MIMEType:    "application/json",
		},
	}
}

// ListResources returns the portfolio record of every known user.
func (t *Toolbox) ListResources(ctx context.Context) ([]ResourceInfo, error) {
	users, err := t.store.Users()
	if err != nil {
		return nil, err
	}
	res := make([]ResourceInfo, 0, len(users))
	for _, u := range users {
		res = append(res, ResourceInfo{
			URI:      resourceScheme + url.PathEscape(u),
			Name:     u + " portfolio",
			MIMEType: "application/json",
		})
	}
	return res, nil
}

// parseResourceURI returns the user and whether the performance is addressed.
func parseResourceURI(uri string) (userID string, performance bool, err error) {
	path, ok := strings.CutPrefix(uri, resourceScheme)
	if !ok {
		return "", false, notFound("unsupported resource URI: %s", uri)
	}
	path, performance = strings.CutSuffix(path, performanceResource)
	userID, err = url.PathUnescape(path)
	if err != nil {
		return "", false, validation("invalid resource URI %s: %w", uri, err)
	}
	if userID == "" {
		return "", false, validation("empty user in resource URI: %s", uri)
	}
	return userID, performance, nil
}

// ReadResource returns the JSON content of a resource.
func (t *Toolbox) ReadResource(ctx context.Context, uri string) (string, error) {
	userID, performance, err := parseResourceURI(uri)
	if err != nil {
		return "", err
	}
	if !performance {
		raw, err := t.store.Raw(userID)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	perf, err := t.Performance(ctx, userID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Performance is the recent performance of a portfolio's stocks.
type Performance struct {
	Symbols           map[string]SymbolPerformance `json:"symbols"`
	TotalContribution allocation.Percent           `json:"total_contribution"`
}

// SymbolPerformance is the recent performance of one stock.
type SymbolPerformance struct {
	Allocation    allocation.Percent `json:"allocation"`
	PercentChange allocation.Percent `json:"percent_change"`
	Contribution  allocation.Percent `json:"contribution"`
}

// Performance returns the recent performance of the user's stocks. Stocks
// without recent prices are left out.
func (t *Toolbox) Performance(ctx context.Context, userID string) (Performance, error) {
	p, err := t.load(userID)
	if err != nil {
		return Performance{}, err
	}
	stocks, total := t.performance(ctx, p)
	res := Performance{Symbols: make(map[string]SymbolPerformance), TotalContribution: total}
	for _, s := range stocks {
		if !s.HasData {
			continue
		}
		res.Symbols[s.Symbol] = SymbolPerformance{
			Allocation:    s.Allocation,
			PercentChange: s.Change,
			Contribution:  s.Contribution,
		}
	}
	return res, nil
}
