package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// PgRulesStore implements RulesStore with PostgreSQL.
type PgRulesStore struct {
	pool *pgxpool.Pool
}

// NewPgRulesStore creates a new PostgreSQL rules store.
func NewPgRulesStore(pool *pgxpool.Pool) *PgRulesStore {
	return &PgRulesStore{pool: pool}
}

const ruleColumns = `id, game, min_value, max_value, cash_percentage, trade_percentage, fixed_cash_value, fixed_trade_value`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	var game string
	err := row.Scan(&r.ID, &game, &r.MinValue, &r.MaxValue, &r.CashPercentage, &r.TradePercentage, &r.FixedCashValue, &r.FixedTradeValue)
	r.Game = domain.Game(game)
	return r, err
}

// GetRule returns the covering bracket with the highest min_value.
func (s *PgRulesStore) GetRule(ctx context.Context, game domain.Game, marketPrice decimal.Decimal) (Rule, error) {
	r, err := scanRule(s.pool.QueryRow(ctx,
		`SELECT `+ruleColumns+` FROM valuation_rules
		 WHERE game = $1 AND min_value <= $2 AND (max_value IS NULL OR max_value >= $2)
		 ORDER BY min_value DESC LIMIT 1`,
		game, marketPrice))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, fmt.Errorf("querying valuation rule for %s: %w", game, err)
	}

	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM valuation_rules WHERE game = $1)`, game).Scan(&exists); err != nil {
		return Rule{}, fmt.Errorf("checking valuation rules for %s: %w", game, err)
	}
	if exists {
		return Rule{}, fmt.Errorf("%w: %s at %s", ErrNoPriceRangeMatch, game, marketPrice)
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrNoSettings, game)
}

// ListRules returns all rules ordered by game and bracket.
func (s *PgRulesStore) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM valuation_rules ORDER BY game, min_value`)
	if err != nil {
		return nil, fmt.Errorf("querying valuation rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning valuation rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating valuation rules: %w", err)
	}
	return rules, nil
}

// ReplaceRules atomically replaces every rule for the games present in rules.
func (s *PgRulesStore) ReplaceRules(ctx context.Context, rules []Rule) error {
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	games := make(map[domain.Game]bool)
	for _, r := range rules {
		if !games[r.Game] {
			games[r.Game] = true
			if _, err := tx.Exec(ctx, `DELETE FROM valuation_rules WHERE game = $1`, r.Game); err != nil {
				return fmt.Errorf("clearing rules for %s: %w", r.Game, err)
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO valuation_rules (game, min_value, max_value, cash_percentage, trade_percentage, fixed_cash_value, fixed_trade_value)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.Game, r.MinValue, r.MaxValue, r.CashPercentage, r.TradePercentage, r.FixedCashValue, r.FixedTradeValue); err != nil {
			return fmt.Errorf("inserting rule for %s: %w", r.Game, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing rules: %w", err)
	}
	return nil
}
