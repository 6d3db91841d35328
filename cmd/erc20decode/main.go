package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "erc20decode",
		Usage: "Decode ERC20 and ether transfers from transaction calldata",
		Description: `Companion tool for the indexer.

Decode a single transaction from flags, a CSV file of transactions, or a mined
transaction fetched over JSON-RPC, using the same decoder the indexer runs.
The wallet command reads what the indexer has stored in Neo4J.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			decodeCommand(),
			csvCommand(),
			fetchCommand(),
			tokensCommand(),
			walletCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"APP_LOG_LEVEL"},
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output format: text, json or csv",
				Value:   outputText,
			},
		},
	}
}
