package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/allocation/tools"
	"github.com/google/subcommands"
)

// pricesCmd holds the flags for the 'prices' subcommand.
type pricesCmd struct {
	days int
}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "fetch the recent daily prices of stocks" }
func (*pricesCmd) Usage() string {
	return `pfm prices [-days <n>] SYMBOL...

  Prints the recent daily prices of each stock as JSON, and their change over the period.
`
}

func (c *pricesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", tools.DefaultDays, "Number of days of history, at most 100")
}

func (c *pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	res, err := a.toolbox.GetStockPrices(ctx, f.Args(), c.days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return printJSON(res)
}

// newsCmd holds the flags for the 'news' subcommand.
type newsCmd struct {
	max int
}

func (*newsCmd) Name() string     { return "news" }
func (*newsCmd) Synopsis() string { return "fetch recent news about stocks" }
func (*newsCmd) Usage() string {
	return `pfm news [-max <n>] SYMBOL...

  Prints recent news articles about each stock as JSON.
`
}

func (c *newsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.max, "max", tools.DefaultMaxArticles, "Maximum number of articles per stock")
}

func (c *newsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	res, err := a.toolbox.GetStockNews(ctx, f.Args(), c.max)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return printJSON(res)
}

// searchCmd is the 'search' subcommand.
type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search stock symbols by company name" }
func (*searchCmd) Usage() string {
	return `pfm search <query>

  Prints the symbols matching the query as JSON.
`
}

func (*searchCmd) SetFlags(*flag.FlagSet) {}

func (*searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	res, err := a.toolbox.SearchStocks(ctx, strings.Join(f.Args(), " "))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return printJSON(res)
}
