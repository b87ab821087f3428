package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Match is a symbol search result.
type Match struct {
	Symbol   string `json:"1. symbol"`
	Name     string `json:"2. name"`
	Type     string `json:"3. type"`
	Region   string `json:"4. region"`
	Currency string `json:"8. currency"`
}

// SymbolSearch returns the best matching symbols for keywords (SYMBOL_SEARCH).
func (c *Client) SymbolSearch(ctx context.Context, keywords string) ([]Match, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	raw, err := c.query(ctx, "SYMBOL_SEARCH", params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		BestMatches []Match `json:"bestMatches"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("alphavantage SYMBOL_SEARCH %q: %w", keywords, err)
	}
	return resp.BestMatches, nil
}
