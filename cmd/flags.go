package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/etnz/allocation"
	"github.com/shopspring/decimal"
)

// allocationFlag is a repeatable flag of KEY=PERCENT pairs.
type allocationFlag map[string]allocation.Percent

func (f allocationFlag) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+f[k].String())
	}
	return strings.Join(pairs, ",")
}

func (f allocationFlag) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("invalid allocation %q, want KEY=PERCENT", s)
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(value), "%"))
	if err != nil {
		return fmt.Errorf("invalid percent in %q: %w", s, err)
	}
	f[key] = allocation.P(d)
	return nil
}

// listFlag is a repeatable flag, each value may hold comma separated items.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*f = append(*f, item)
		}
	}
	return nil
}
