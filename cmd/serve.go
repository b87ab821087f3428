package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/allocation/mcp"
	"github.com/google/subcommands"
)

func (a *app) server() *mcp.Server {
	return mcp.NewServer(a.toolbox.Tools(), a.toolbox,
		mcp.WithLogger(a.log),
		mcp.WithVersion(Version))
}

// serveCmd is the 'serve' subcommand.
type serveCmd struct{}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the portfolio tools over MCP on stdio" }
func (*serveCmd) Usage() string {
	return `pfm serve

  Serves the Model Context Protocol on stdin/stdout, one JSON-RPC message per line.
  Logs are written to stderr.
`
}

func (*serveCmd) SetFlags(*flag.FlagSet) {}

func (*serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	a.log.WithField("data_dir", a.cfg.DataDir).Info("serving MCP on stdio")
	if err := a.server().Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// serveHTTPCmd holds the flags for the 'serve-http' subcommand.
type serveHTTPCmd struct {
	addr string
}

func (*serveHTTPCmd) Name() string     { return "serve-http" }
func (*serveHTTPCmd) Synopsis() string { return "serve the portfolio tools over MCP on HTTP" }
func (*serveHTTPCmd) Usage() string {
	return `pfm serve-http [-addr <host:port>]

  Serves the Model Context Protocol on POST /mcp, one JSON-RPC message per request.
  GET /healthz reports liveness.
`
}

func (c *serveHTTPCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Overrides PORTFOLIO_HTTP_ADDR.")
}

func (c *serveHTTPCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a := mustApp()
	if a == nil {
		return subcommands.ExitFailure
	}
	addr := c.addr
	if addr == "" {
		addr = a.cfg.HTTPAddr
	}
	if err := a.server().ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
