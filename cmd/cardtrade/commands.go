package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/cardtrade/internal/api"
	"github.com/mtlprog/cardtrade/internal/config"
	"github.com/mtlprog/cardtrade/internal/database"
	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/export"
	"github.com/mtlprog/cardtrade/internal/external"
	"github.com/mtlprog/cardtrade/internal/price"
	"github.com/mtlprog/cardtrade/internal/recalc"
	"github.com/mtlprog/cardtrade/internal/trade"
	"github.com/mtlprog/cardtrade/internal/valuation"
	"github.com/mtlprog/cardtrade/internal/worker"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API and background workers",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	ctx := c.Context
	cfg := config.Load()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	stack, err := newPricingStack(cfg, pool)
	if err != nil {
		return err
	}
	trades := trade.NewService(trade.NewPgRepository(pool), stack.pricer, stack.calc,
		recalc.WithDebounce(cfg.ValueDebounce))

	// Start workers
	go worker.NewCacheSweeper(stack.cache, cfg.CacheSweepInterval).Run(ctx)

	if cfg.ProductsFile != "" && cfg.PriceLookupURL != "" && !cfg.LivePrices() {
		products, err := external.LoadProducts(cfg.ProductsFile)
		if err != nil {
			return err
		}
		syncer := external.NewService(newLookupClient(cfg), price.NewPgMarketPrices(pool))
		go worker.NewQuoteWorker(syncer, products, cfg.QuoteWorkerInterval).Run(ctx)
	}

	var hook worker.AfterReportHook
	if cfg.SheetsEnabled() {
		writer, err := export.NewSheetsWriter(ctx, cfg.SheetsSpreadsheetID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return fmt.Errorf("creating sheets writer: %w", err)
		}
		hook = export.NewService(writer)
	}
	go worker.NewReportWorker(trades, cfg.ReportWorkerInterval, hook).Run(ctx)

	srv := api.NewServer(api.ServerConfig{
		Port:           cfg.HTTPPort,
		AdminAPIKey:    cfg.AdminAPIKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, trades, stack.calc, stack.pricer)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	slog.Info("shutdown complete")
	return nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply pending database migrations",
		Action: func(c *cli.Context) error {
			pool, err := database.Connect(c.Context, config.Load().DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrations, err := embeddedMigrations()
			if err != nil {
				return err
			}
			applied, err := database.RunMigrations(c.Context, pool, migrations)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(c.App.Writer, "database is up to date")
			}
			for _, file := range applied {
				fmt.Fprintln(c.App.Writer, "applied", file)
			}
			return nil
		},
	}
}

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "mirror prices for a product catalog from the Price Lookup Service into the local table",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "products", Usage: "products YAML file (default PRODUCTS_FILE)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			if cfg.PriceLookupURL == "" {
				return errors.New("PRICE_LOOKUP_URL is required")
			}
			path := c.String("products")
			if path == "" {
				path = cfg.ProductsFile
			}
			if path == "" {
				return errors.New("no products file: pass --products or set PRODUCTS_FILE")
			}
			products, err := external.LoadProducts(path)
			if err != nil {
				return err
			}

			pool, err := openDatabase(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := external.NewService(newLookupClient(cfg), price.NewPgMarketPrices(pool))
			stored := svc.SyncAll(c.Context, products)
			fmt.Fprintf(c.App.Writer, "synced %d products, stored %d prices\n", len(products), stored)
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "price and value one card",
		ArgsUsage: "<product-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "game", Usage: "card game, e.g. pokemon", Required: true},
			&cli.StringFlag{Name: "condition", Usage: "condition, e.g. NM or near_mint", Value: string(domain.ConditionNearMint)},
			&cli.BoolFlag{Name: "first-edition"},
			&cli.BoolFlag{Name: "holo"},
			&cli.BoolFlag{Name: "reverse-holo"},
		},
		Action: func(c *cli.Context) error {
			req, err := resolveRequestFromFlags(c)
			if err != nil {
				return err
			}

			cfg := config.Load()
			pool, err := openDatabase(c.Context, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			stack, err := newPricingStack(cfg, pool)
			if err != nil {
				return err
			}
			return printQuote(c, stack.pricer, stack.calc, req)
		},
	}
}

// resolveRequestFromFlags builds a lookup request from the resolve command line.
func resolveRequestFromFlags(c *cli.Context) (price.LookupRequest, error) {
	if c.NArg() != 1 {
		return price.LookupRequest{}, errors.New("exactly one product id is required")
	}
	cond, err := domain.ParseCondition(c.String("condition"))
	if err != nil {
		return price.LookupRequest{}, err
	}
	finish := domain.Finish{
		FirstEdition: c.Bool("first-edition"),
		Holo:         c.Bool("holo"),
		ReverseHolo:  c.Bool("reverse-holo"),
	}
	if err := finish.Validate(); err != nil {
		return price.LookupRequest{}, err
	}
	return price.LookupRequest{
		ProductID: c.Args().First(),
		Game:      domain.NormalizeGame(c.String("game")),
		Condition: cond,
		Finish:    finish,
	}, nil
}

func printQuote(c *cli.Context, pricer recalc.Pricer, valuer recalc.Valuer, req price.LookupRequest) error {
	card := domain.CardRef{ProductID: req.ProductID, Game: req.Game}
	result, err := pricer.ResolvePrice(c.Context, card, req.Condition, req.Finish)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if result.Unavailable {
		fmt.Fprintf(out, "%s (%s): no price available\n", req.ProductID, req.Condition.Label())
		return nil
	}

	fmt.Fprintf(out, "%s (%s): market price %s\n", req.ProductID, req.Condition.Label(), domain.FormatMoney(result.Price))
	if result.UsedFallback {
		fmt.Fprintf(out, "  priced as %s\n", result.ActualCondition.Label())
	}
	for _, a := range result.Anomalies {
		fmt.Fprintf(out, "  capped %s from %s to %s\n", a.Condition.Label(), domain.FormatMoney(a.Raw), domain.FormatMoney(a.CappedTo))
	}

	v := valuer.Calculate(c.Context, req.Game, result.Price)
	fmt.Fprintf(out, "  cash %s, trade %s\n", domain.FormatMoney(v.CashValue), domain.FormatMoney(v.TradeValue))
	if v.UsedFallback {
		fmt.Fprintf(out, "  fallback valuation: %s\n", v.FallbackReason)
	}
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write a trade-in list to an XLSX workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "trade", Usage: "trade ID", Required: true},
			&cli.StringFlag{Name: "out", Usage: "output file (default trade-<id>.xlsx)"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.Load()
			pool, err := database.Connect(c.Context, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			t, err := trade.NewPgRepository(pool).Get(c.Context, c.String("trade"))
			if err != nil {
				return err
			}

			path := c.String("out")
			if path == "" {
				path = fmt.Sprintf("trade-%s.xlsx", t.ID)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			if err := export.WriteTradeXLSX(f, t); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", path, err)
			}
			fmt.Fprintln(c.App.Writer, "wrote", path)
			return nil
		},
	}
}

func rulesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "manage valuation rules stored in the database",
		Subcommands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "replace the stored rules of every game in a YAML rules file",
				ArgsUsage: "<rules.yaml>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return errors.New("exactly one rules file is required")
					}
					rules, err := valuation.LoadRulesFile(c.Args().First())
					if err != nil {
						return err
					}

					pool, err := openDatabase(c.Context, config.Load())
					if err != nil {
						return err
					}
					defer pool.Close()

					if err := valuation.NewPgRulesStore(pool).ReplaceRules(c.Context, rules.Rules()); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "imported %d rules\n", len(rules.Rules()))
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "print the stored rules",
				Action: func(c *cli.Context) error {
					pool, err := openDatabase(c.Context, config.Load())
					if err != nil {
						return err
					}
					defer pool.Close()

					rules, err := valuation.NewPgRulesStore(pool).ListRules(c.Context)
					if err != nil {
						return err
					}
					for _, r := range rules {
						fmt.Fprintln(c.App.Writer, formatRule(r))
					}
					return nil
				},
			},
		},
	}
}

// formatRule renders a rule as one line, e.g. "pokemon  10.00 - 49.99  cash 40%  trade 60%".
func formatRule(r valuation.Rule) string {
	upper := "∞"
	if r.MaxValue != nil {
		upper = domain.FormatMoney(*r.MaxValue)
	}
	cash := r.CashPercentage.String() + "%"
	if r.FixedCashValue != nil {
		cash = "fixed " + domain.FormatMoney(*r.FixedCashValue)
	}
	tradeValue := r.TradePercentage.String() + "%"
	if r.FixedTradeValue != nil {
		tradeValue = "fixed " + domain.FormatMoney(*r.FixedTradeValue)
	}
	return fmt.Sprintf("%s  %s - %s  cash %s  trade %s",
		r.Game, domain.FormatMoney(r.MinValue), upper, cash, tradeValue)
}
