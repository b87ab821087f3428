package allocation

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Portfolio is the whole persisted state of one user: how the user splits the
// portfolio between stocks and bonds.
//
// The zero value is not ready to use, call NewPortfolio.
type Portfolio struct {
	// Stocks maps a stock symbol to its allocation. Symbols are case-sensitive.
	Stocks map[string]Percent
	// Bonds maps a bond identifier to its allocation.
	Bonds map[string]Percent
	// LastUpdated is the time of the last successful save, nil if never saved.
	LastUpdated *time.Time
}

// NewPortfolio returns the empty portfolio.
func NewPortfolio() Portfolio {
	return Portfolio{
		Stocks: make(map[string]Percent),
		Bonds:  make(map[string]Percent),
	}
}

// Clone returns a deep copy of p.
func (p Portfolio) Clone() Portfolio {
	c := Portfolio{
		Stocks: make(map[string]Percent, len(p.Stocks)),
		Bonds:  make(map[string]Percent, len(p.Bonds)),
	}
	maps.Copy(c.Stocks, p.Stocks)
	maps.Copy(c.Bonds, p.Bonds)
	if p.LastUpdated != nil {
		t := *p.LastUpdated
		c.LastUpdated = &t
	}
	return c
}

// IsEmpty returns true if p holds neither stocks nor bonds.
func (p Portfolio) IsEmpty() bool { return len(p.Stocks) == 0 && len(p.Bonds) == 0 }

// StockAllocation returns the sum of all stock allocations.
func (p Portfolio) StockAllocation() Percent { return sum(p.Stocks) }

// BondAllocation returns the sum of all bond allocations.
func (p Portfolio) BondAllocation() Percent { return sum(p.Bonds) }

// TotalAllocation returns the sum of all allocations.
func (p Portfolio) TotalAllocation() Percent { return p.StockAllocation().Add(p.BondAllocation()) }

// IsValid returns true if the total allocation is close enough to 100%.
func (p Portfolio) IsValid() bool { return IsValidTotal(p.TotalAllocation()) }

// StockSymbols returns the stock symbols in lexical order.
func (p Portfolio) StockSymbols() []string { return slices.Sorted(maps.Keys(p.Stocks)) }

// BondIDs returns the bond identifiers in lexical order.
func (p Portfolio) BondIDs() []string { return slices.Sorted(maps.Keys(p.Bonds)) }

func sum(m map[string]Percent) Percent {
	var total Percent
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}

// timestamp layouts accepted when decoding last_updated. The second one is
// the naive ISO-8601 format used by records written by earlier tools.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid last_updated timestamp %q", s)
}

// MarshalJSON writes the persisted record layout, fields in order.
func (p Portfolio) MarshalJSON() ([]byte, error) {
	stocks, bonds := p.Stocks, p.Bonds
	if stocks == nil {
		stocks = map[string]Percent{}
	}
	if bonds == nil {
		bonds = map[string]Percent{}
	}
	var lastUpdated *string
	if p.LastUpdated != nil {
		s := p.LastUpdated.Format(time.RFC3339Nano)
		lastUpdated = &s
	}

	var w jsonObjectWriter
	w.Append("stocks", stocks)
	w.Append("bonds", bonds)
	w.Append("last_updated", lastUpdated)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the persisted record layout. Missing mappings decode as
// empty ones.
func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var raw struct {
		Stocks      map[string]Percent `json:"stocks"`
		Bonds       map[string]Percent `json:"bonds"`
		LastUpdated *string            `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res := NewPortfolio()
	maps.Copy(res.Stocks, raw.Stocks)
	maps.Copy(res.Bonds, raw.Bonds)
	if raw.LastUpdated != nil {
		t, err := parseTimestamp(*raw.LastUpdated)
		if err != nil {
			return err
		}
		res.LastUpdated = &t
	}
	*p = res
	return nil
}
