package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/cardtrade/internal/config"
	"github.com/mtlprog/cardtrade/internal/database"
	"github.com/mtlprog/cardtrade/internal/external"
	"github.com/mtlprog/cardtrade/internal/price"
	"github.com/mtlprog/cardtrade/internal/valuation"
)

// openDatabase connects and applies pending migrations.
func openDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	migrationsSub, err := embeddedMigrations()
	if err != nil {
		pool.Close()
		return nil, err
	}
	applied, err := database.RunMigrations(ctx, pool, migrationsSub)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		slog.Info("migrations applied", "files", applied)
	}
	return pool, nil
}

// pricingStack is the read side shared by the server and the one-off commands.
type pricingStack struct {
	cache  *price.CachedLookup
	pricer *price.Pricer
	calc   *valuation.Calculator
}

func newPricingStack(cfg config.Config, pool *pgxpool.Pool) (pricingStack, error) {
	var lookup price.LookupService
	if cfg.LivePrices() {
		lookup = newLookupClient(cfg)
		slog.Info("pricing from Price Lookup Service", "url", cfg.PriceLookupURL)
	} else {
		lookup = price.NewMarketLookup(price.NewPgMarketPrices(pool))
		slog.Info("pricing from local market table")
	}
	cache := price.NewCachedLookup(lookup, cfg.PriceCacheTTL, time.Now)

	rules, err := newRulesStore(cfg, pool)
	if err != nil {
		return pricingStack{}, err
	}

	return pricingStack{
		cache:  cache,
		pricer: price.NewPricer(cache),
		calc:   valuation.NewCalculator(rules),
	}, nil
}

func newLookupClient(cfg config.Config) *external.LookupClient {
	return external.NewLookupClient(cfg.PriceLookupURL, cfg.PriceLookupRetryDelay, cfg.PriceLookupRetryMax)
}

// newRulesStore prefers a rules file over the database table when one is configured.
func newRulesStore(cfg config.Config, pool *pgxpool.Pool) (valuation.RulesStore, error) {
	if cfg.RulesFile == "" {
		return valuation.NewPgRulesStore(pool), nil
	}
	rules, err := valuation.LoadRulesFile(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	slog.Info("valuation rules loaded from file", "path", cfg.RulesFile, "rules", len(rules.Rules()))
	return rules, nil
}

func embeddedMigrations() (fs.FS, error) {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	return sub, nil
}
