package allocation

import "maps"

// ApplyUpdate merges stocks and bonds into a copy of p.
//
// Keys already present are overwritten, other keys are left untouched. A nil
// mapping leaves the corresponding side of the portfolio as is. It returns
// the merged portfolio and its total allocation.
//
// The total is not checked: see AllocationWarning.
func ApplyUpdate(p Portfolio, stocks, bonds map[string]Percent) (Portfolio, Percent) {
	res := p.Clone()
	maps.Copy(res.Stocks, stocks)
	maps.Copy(res.Bonds, bonds)
	return res, res.TotalAllocation()
}

// ApplyRemoval removes the given stock symbols and bond identifiers from a
// copy of p.
//
// Unknown identifiers are ignored. It returns the keys actually removed in
// the order they were requested, stocks first.
func ApplyRemoval(p Portfolio, stockSymbols, bondIDs []string) (Portfolio, []string) {
	res := p.Clone()
	removed := make([]string, 0, len(stockSymbols)+len(bondIDs))
	for _, s := range stockSymbols {
		if _, exists := res.Stocks[s]; exists {
			delete(res.Stocks, s)
			removed = append(removed, s)
		}
	}
	for _, id := range bondIDs {
		if _, exists := res.Bonds[id]; exists {
			delete(res.Bonds, id)
			removed = append(removed, id)
		}
	}
	return res, removed
}
