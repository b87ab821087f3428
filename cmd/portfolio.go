package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

// updateCmd holds the flags for the 'update' subcommand.
type updateCmd struct {
	user   string
	stocks allocationFlag
	bonds  allocationFlag
}

func (*updateCmd) Name() string     { return "update" }
func (*updateCmd) Synopsis() string { return "merge stock and bond allocations into a portfolio" }
func (*updateCmd) Usage() string {
	return `pfm update -user <id> [-stock SYMBOL=PERCENT]... [-bond ID=PERCENT]...

  Sets the allocation of the given stocks and bonds, leaving the others unchanged.
  The portfolio is saved even when the total allocation is not close to 100%.
`
}

func (c *updateCmd) SetFlags(f *flag.FlagSet) {
	c.stocks, c.bonds = allocationFlag{}, allocationFlag{}
	f.StringVar(&c.user, "user", "", "User identifier")
	f.Var(c.stocks, "stock", "Stock allocation as SYMBOL=PERCENT, repeatable")
	f.Var(c.bonds, "bond", "Bond allocation as ID=PERCENT, repeatable")
}

func (c *updateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireUser(c.user) {
		return subcommands.ExitUsageError
	}
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	msg, err := a.toolbox.UpdatePortfolio(ctx, c.user, c.stocks, c.bonds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error updating portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, msg)
	return subcommands.ExitSuccess
}

// removeCmd holds the flags for the 'remove' subcommand.
type removeCmd struct {
	user   string
	stocks listFlag
	bonds  listFlag
}

func (*removeCmd) Name() string     { return "remove" }
func (*removeCmd) Synopsis() string { return "remove stocks and bonds from a portfolio" }
func (*removeCmd) Usage() string {
	return `pfm remove -user <id> [-stock SYMBOL]... [-bond ID]...

  Removes the given stocks and bonds. Unknown ones are ignored.
`
}

func (c *removeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User identifier")
	f.Var(&c.stocks, "stock", "Stock symbol to remove, repeatable or comma separated")
	f.Var(&c.bonds, "bond", "Bond identifier to remove, repeatable or comma separated")
}

func (c *removeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireUser(c.user) {
		return subcommands.ExitUsageError
	}
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	msg, err := a.toolbox.RemoveInvestment(ctx, c.user, c.stocks, c.bonds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error removing investments: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, msg)
	return subcommands.ExitSuccess
}

// userCmd is a command taking only a user and printing markdown.
type userCmd struct {
	name, synopsis, usage string
	run                   func(ctx context.Context, a *app, user string) (string, error)
	user                  string
}

func (c *userCmd) Name() string     { return c.name }
func (c *userCmd) Synopsis() string { return c.synopsis }
func (c *userCmd) Usage() string    { return c.usage }

func (c *userCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.user, "user", "", "User identifier")
}

func (c *userCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !requireUser(c.user) {
		return subcommands.ExitUsageError
	}
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	md, err := c.run(ctx, a, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

func newViewCmd() *userCmd {
	return &userCmd{
		name:     "view",
		synopsis: "display the current allocation of a portfolio",
		usage:    "pfm view -user <id>\n\n  Displays the stocks and bonds of the portfolio and their totals.\n",
		run: func(ctx context.Context, a *app, user string) (string, error) {
			return a.toolbox.ViewPortfolio(ctx, user)
		},
	}
}

func newReportCmd() *userCmd {
	return &userCmd{
		name:     "report",
		synopsis: "display the recent performance of a portfolio",
		usage:    "pfm report -user <id>\n\n  Fetches the recent prices of the stocks and reports their contribution to the portfolio.\n",
		run: func(ctx context.Context, a *app, user string) (string, error) {
			return a.toolbox.GeneratePortfolioReport(ctx, user)
		},
	}
}

func newRecommendCmd() *userCmd {
	return &userCmd{
		name:     "recommend",
		synopsis: "display basic recommendations on a portfolio allocation",
		usage:    "pfm recommend -user <id>\n\n  Checks diversification, the stock/bond split and concentration.\n",
		run: func(ctx context.Context, a *app, user string) (string, error) {
			return a.toolbox.GetInvestmentRecommendations(ctx, user)
		},
	}
}
