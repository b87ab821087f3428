// Command pfm manages portfolio allocations, and serves them to AI agents
// over the Model Context Protocol.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/etnz/allocation/cmd"
	"github.com/google/subcommands"
)

func main() {
	// exits when invoked by the shell to complete the command line.
	cmd.Completion().Complete("pfm")

	commander := subcommands.NewCommander(flag.CommandLine, "pfm")
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := commander.Execute(ctx)
	stop()
	os.Exit(int(code))
}
