package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/cardtrade/internal/domain"
)

// Repository defines persistent storage for trades.
type Repository interface {
	Save(ctx context.Context, t Trade) error
	Get(ctx context.Context, id string) (Trade, error)
	List(ctx context.Context, status Status, limit int) ([]Trade, error)
	ListDecided(ctx context.Context, status Status, from, to time.Time) ([]Trade, error)
}

// PgRepository implements Repository with PostgreSQL. Items are stored as a JSONB array.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL trade repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const tradeColumns = `id, customer_name, note, status, items, decided_by, decision_note,
	created_at, updated_at, submitted_at, decided_at`

func (r *PgRepository) Save(ctx context.Context, t Trade) error {
	if t.Items == nil {
		t.Items = []domain.TradeItem{}
	}
	items, err := json.Marshal(t.Items)
	if err != nil {
		return fmt.Errorf("marshaling trade items: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO trades (id, customer_name, note, status, items, decided_by, decision_note,
		                     created_at, updated_at, submitted_at, decided_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   customer_name = $2, note = $3, status = $4, items = $5::jsonb,
		   decided_by = $6, decision_note = $7, updated_at = $9,
		   submitted_at = $10, decided_at = $11`,
		t.ID, t.CustomerName, t.Note, string(t.Status), items, t.DecidedBy, t.DecisionNote,
		t.CreatedAt, t.UpdatedAt, t.SubmittedAt, t.DecidedAt)
	if err != nil {
		return fmt.Errorf("saving trade %s: %w", t.ID, err)
	}
	return nil
}

func scanTrade(row pgx.Row) (Trade, error) {
	var t Trade
	var status string
	var items []byte
	if err := row.Scan(&t.ID, &t.CustomerName, &t.Note, &status, &items, &t.DecidedBy, &t.DecisionNote,
		&t.CreatedAt, &t.UpdatedAt, &t.SubmittedAt, &t.DecidedAt); err != nil {
		return Trade{}, err
	}
	t.Status = Status(status)

	if err := json.Unmarshal(items, &t.Items); err != nil {
		return Trade{}, fmt.Errorf("decoding items of trade %s: %w", t.ID, err)
	}
	for _, item := range t.Items {
		if item.SchemaVersion != domain.SchemaVersion {
			return Trade{}, fmt.Errorf("trade %s item %s: unsupported schema version %d", t.ID, item.ID, item.SchemaVersion)
		}
	}
	return t, nil
}

func (r *PgRepository) Get(ctx context.Context, id string) (Trade, error) {
	t, err := scanTrade(r.pool.QueryRow(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trade{}, fmt.Errorf("trade %s: %w", id, ErrNotFound)
		}
		return Trade{}, fmt.Errorf("getting trade %s: %w", id, err)
	}
	return t, nil
}

func (r *PgRepository) List(ctx context.Context, status Status, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE $1 = '' OR status = $1
		 ORDER BY updated_at DESC
		 LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	return collectTrades(rows)
}

func (r *PgRepository) ListDecided(ctx context.Context, status Status, from, to time.Time) ([]Trade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades
		 WHERE status = $1 AND decided_at >= $2 AND decided_at < $3
		 ORDER BY decided_at`, string(status), from, to)
	if err != nil {
		return nil, fmt.Errorf("listing decided trades: %w", err)
	}
	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]Trade, error) {
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trades: %w", err)
	}
	return trades, nil
}
