package allocation

import (
	"fmt"
	"sort"
	"strings"
)

// Bounds of the soft rule on the total allocation.
var (
	MinTotal = P(95)
	MaxTotal = P(105)
)

// IsValidTotal returns true if total is within [MinTotal, MaxTotal].
func IsValidTotal(total Percent) bool { return total.Between(MinTotal, MaxTotal) }

// AllocationWarning returns the advisory message for a total allocation
// outside of [MinTotal, MaxTotal], or "" if total is fine.
//
// It is only advisory: a portfolio with such a total is still a valid record.
func AllocationWarning(total Percent) string {
	if IsValidTotal(total) {
		return ""
	}
	return fmt.Sprintf("Warning: Total allocation is %s%%, which is not close to 100%%", total)
}

// ValidateAllocations checks the input of an update. Allocations must be
// non-negative and within Percent.CheckRange, keys non-empty.
func ValidateAllocations(stocks, bonds map[string]Percent) error {
	var errs []string
	check := func(kind string, m map[string]Percent) {
		for k, v := range m {
			if strings.TrimSpace(k) == "" {
				errs = append(errs, fmt.Sprintf("empty %s identifier", kind))
			}
			switch {
			case v.CheckRange() != nil:
				errs = append(errs, fmt.Sprintf("%s %q has an allocation out of range", kind, k))
			case v.IsNegative():
				errs = append(errs, fmt.Sprintf("%s %q has a negative allocation %s%%", kind, k, v))
			}
		}
	}
	check("stock", stocks)
	check("bond", bonds)
	if len(errs) == 0 {
		return nil
	}
	sort.Strings(errs)
	return fmt.Errorf("invalid allocations: %s", strings.Join(errs, "; "))
}
