package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"github.com/google/subcommands"
)

// chartCmd holds the flags for the 'chart' subcommand.
type chartCmd struct {
	user   string
	output string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw the allocation of a portfolio as a pie chart" }
func (*chartCmd) Usage() string {
	return `pfm chart -user <id> [-o <file.png>]

  Writes a PNG pie chart of the allocation: stocks in blue, bonds in green.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User identifier")
	f.StringVar(&c.output, "o", "portfolio.png", "Output PNG file")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireUser(c.user) {
		return subcommands.ExitUsageError
	}
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	img, err := a.toolbox.VisualizePortfolio(ctx, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error drawing chart: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := renameio.WriteFile(c.output, img, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Chart written to %s\n", c.output)
	return subcommands.ExitSuccess
}

// recordCmd holds the flags for the 'record' subcommand.
type recordCmd struct {
	user        string
	performance bool
}

func (*recordCmd) Name() string     { return "record" }
func (*recordCmd) Synopsis() string { return "print the persisted record of a portfolio" }
func (*recordCmd) Usage() string {
	return `pfm record -user <id> [-performance]

  Prints the JSON record of the user, as served by the portfolio://<id> resource,
  or its recent performance with -performance.
`
}

func (c *recordCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User identifier")
	f.BoolVar(&c.performance, "performance", false, "Print the recent performance instead")
}

func (c *recordCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireUser(c.user) {
		return subcommands.ExitUsageError
	}
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	if c.performance {
		perf, err := a.toolbox.Performance(ctx, c.user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return printJSON(perf)
	}
	raw, err := a.store.Raw(c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, string(raw))
	return subcommands.ExitSuccess
}
