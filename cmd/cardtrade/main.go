package main

import (
	"context"
	"embed"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatalf("cardtrade: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "cardtrade",
		Usage: "trade-in valuation service for a trading card store",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			quoteCommand(),
			resolveCommand(),
			exportCommand(),
			rulesCommand(),
		},
	}
}
