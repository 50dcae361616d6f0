package price

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// MarketPrice is one stored raw market price row.
type MarketPrice struct {
	Game      domain.Game      `json:"game"`
	ProductID string           `json:"productId"`
	Finish    domain.Finish    `json:"finish"`
	Condition domain.Condition `json:"condition"`
	Price     decimal.Decimal  `json:"price"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// PgMarketPrices stores raw per-condition market prices in PostgreSQL and serves them as a TableSource.
type PgMarketPrices struct {
	pool *pgxpool.Pool
}

// NewPgMarketPrices creates a new PostgreSQL market price store.
func NewPgMarketPrices(pool *pgxpool.Pool) *PgMarketPrices {
	return &PgMarketPrices{pool: pool}
}

func (r *PgMarketPrices) FetchConditionTable(ctx context.Context, game domain.Game, productID string, finish domain.Finish) (ConditionTable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT condition, price FROM market_prices
		 WHERE game = $1 AND product_id = $2
		   AND first_edition = $3 AND holo = $4 AND reverse_holo = $5`,
		game, productID, finish.FirstEdition, finish.Holo, finish.ReverseHolo)
	if err != nil {
		return nil, fmt.Errorf("querying market prices for %s: %w", productID, err)
	}
	defer rows.Close()

	table := make(ConditionTable)
	for rows.Next() {
		var cond string
		var p decimal.Decimal
		if err := rows.Scan(&cond, &p); err != nil {
			return nil, fmt.Errorf("scanning market price: %w", err)
		}
		c := domain.Condition(cond)
		if !c.Valid() {
			continue
		}
		table[c] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating market prices: %w", err)
	}
	return table, nil
}

// Upsert stores a raw market price.
func (r *PgMarketPrices) Upsert(ctx context.Context, mp MarketPrice) error {
	if !mp.Condition.Valid() {
		return fmt.Errorf("%w: unknown condition %q", ErrInvalidInput, mp.Condition)
	}
	if err := mp.Finish.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO market_prices (game, product_id, first_edition, holo, reverse_holo, condition, price, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (game, product_id, first_edition, holo, reverse_holo, condition)
		 DO UPDATE SET price = $7, updated_at = NOW()`,
		mp.Game, mp.ProductID, mp.Finish.FirstEdition, mp.Finish.Holo, mp.Finish.ReverseHolo, mp.Condition, mp.Price)
	if err != nil {
		return fmt.Errorf("saving market price for %s: %w", mp.ProductID, err)
	}
	return nil
}
