// Package cmd implements the pfm command line: the MCP servers, the assistant
// and direct access to the portfolio operations.
package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/allocation"
	"github.com/etnz/allocation/alphavantage"
	"github.com/etnz/allocation/config"
	"github.com/etnz/allocation/fetch"
	"github.com/etnz/allocation/market"
	"github.com/etnz/allocation/newsapi"
	"github.com/etnz/allocation/tools"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Version is the version of pfm, set at build time.
var Version = "dev"

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var dataDir = flag.String("data-dir", "", "Directory of the portfolio records. Overrides PORTFOLIO_DIR.")
var logLevel = flag.String("log-level", "", "Log level: debug, info, warn or error. Overrides LOG_LEVEL.")

// stdout is where commands print their results.
var stdout io.Writer = os.Stdout

// Register the subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&serveCmd{}, "mcp")
	c.Register(&serveHTTPCmd{}, "mcp")
	c.Register(&assistCmd{}, "mcp")

	c.Register(&updateCmd{}, "portfolio")
	c.Register(newViewCmd(), "portfolio")
	c.Register(&removeCmd{}, "portfolio")
	c.Register(newReportCmd(), "portfolio")
	c.Register(newRecommendCmd(), "portfolio")
	c.Register(&chartCmd{}, "portfolio")
	c.Register(&recordCmd{}, "portfolio")

	c.Register(&pricesCmd{}, "market")
	c.Register(&newsCmd{}, "market")
	c.Register(&searchCmd{}, "market")
}

// app holds the components shared by the commands.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	store   *allocation.Store
	toolbox *tools.Toolbox
}

// loadConfig returns the configuration, with the global flags applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	return cfg, cfg.Validate()
}

// newApp wires the store, the market data providers and the toolbox.
// Logs go to stderr: stdout belongs to the command output, or to the MCP
// protocol.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := config.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	store, err := allocation.NewStore(cfg.DataDir, allocation.WithLogger(log))
	if err != nil {
		return nil, err
	}

	httpClient := func(provider string, cacheable func([]byte) bool) *http.Client {
		opts := []fetch.Option{fetch.WithTimeout(cfg.HTTPTimeout), fetch.WithLogger(log.WithField("provider", provider))}
		if cfg.CacheDir != "" {
			opts = append(opts, fetch.WithCache(filepath.Join(cfg.CacheDir, provider)), fetch.WithCacheFilter(cacheable))
		}
		return fetch.NewClient(opts...)
	}
	prices := alphavantage.NewClient(cfg.AlphaVantageKey,
		alphavantage.WithHTTPClient(httpClient("alphavantage", alphavantage.Cacheable)))
	news := newsapi.NewClient(cfg.NewsAPIKey,
		newsapi.WithHTTPClient(httpClient("newsapi", newsapi.Cacheable)))

	gateway := market.NewGateway(prices, news,
		market.WithConcurrency(cfg.FetchConcurrency),
		market.WithTimeout(cfg.HTTPTimeout),
		market.WithLogger(log))

	return &app{
		cfg:   cfg,
		log:   log,
		store: store,
		toolbox: tools.New(store, gateway,
			tools.WithLogger(log),
			tools.WithCurrency(cfg.QuoteCurrency)),
	}, nil
}

// mustApp is newApp for commands: it reports the error and returns nil on failure.
func mustApp() *app {
	a, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil
	}
	return a
}

// renderMarkdown renders md for the terminal, it returns md as is when it cannot.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printMarkdown(md string) { fmt.Fprintln(stdout, renderMarkdown(md)) }

// printJSON prints v as indented JSON.
func printJSON(v any) subcommands.ExitStatus {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// requireUser checks the -user flag.
func requireUser(user string) bool {
	if user == "" {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		return false
	}
	return true
}
