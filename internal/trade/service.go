package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/recalc"
)

// patchTimeout bounds persisting one engine patch; the engine gives no context for it.
const patchTimeout = 10 * time.Second

// Service owns trades and their items. It feeds item changes through the recalculation
// engine and persists the patches the engine emits.
type Service struct {
	repo   Repository
	engine *recalc.Engine
	now    func() time.Time

	locks  sync.Map // trade ID -> *sync.Mutex
	owners sync.Map // item ID -> trade ID
}

// NewService creates a Service and its recalculation engine. The service registers itself
// as the engine's notifier.
func NewService(repo Repository, pricer recalc.Pricer, valuer recalc.Valuer, opts ...recalc.Option) *Service {
	s := &Service{repo: repo, now: time.Now}
	opts = append(opts, recalc.WithNotifier(s))
	s.engine = recalc.NewEngine(pricer, valuer, opts...)
	return s
}

// Engine exposes the recalculation engine, e.g. to inspect item states.
func (s *Service) Engine() *recalc.Engine {
	return s.engine
}

func (s *Service) lock(tradeID string) func() {
	m, _ := s.locks.LoadOrStore(tradeID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// mutate loads a trade under its lock, applies fn and saves the result.
func (s *Service) mutate(ctx context.Context, tradeID string, fn func(*Trade) error) (Trade, error) {
	unlock := s.lock(tradeID)
	defer unlock()

	t, err := s.repo.Get(ctx, tradeID)
	if err != nil {
		return Trade{}, err
	}
	if err := fn(&t); err != nil {
		return Trade{}, err
	}
	t.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, t); err != nil {
		return Trade{}, err
	}
	return t, nil
}

func requireDraft(t *Trade) error {
	if t.Status != StatusDraft {
		return fmt.Errorf("%w: trade %s is %s, not draft", ErrInvalidTransition, t.ID, t.Status)
	}
	return nil
}

// Create starts an empty draft trade.
func (s *Service) Create(ctx context.Context, customerName, note string) (Trade, error) {
	now := s.now().UTC()
	t := Trade{
		ID:           uuid.NewString(),
		CustomerName: strings.TrimSpace(customerName),
		Note:         note,
		Status:       StatusDraft,
		Items:        []domain.TradeItem{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return Trade{}, fmt.Errorf("creating trade: %w", err)
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id string) (Trade, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status, limit int) ([]Trade, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	return s.repo.List(ctx, status, limit)
}

// AddItem appends a card with fresh defaults and prices it.
func (s *Service) AddItem(ctx context.Context, tradeID string, card domain.CardRef, cond domain.Condition, finish domain.Finish, quantity int) (Trade, error) {
	item := domain.NewTradeItem(uuid.NewString(), card, cond, finish)
	item.Quantity = domain.ClampQuantityInt(quantity)
	if err := item.Validate(); err != nil {
		return Trade{}, fmt.Errorf("%w: %v", recalc.ErrInvalidChange, err)
	}

	if _, err := s.mutate(ctx, tradeID, func(t *Trade) error {
		if err := requireDraft(t); err != nil {
			return err
		}
		t.Items = append(t.Items, item)
		return nil
	}); err != nil {
		return Trade{}, err
	}
	s.owners.Store(item.ID, tradeID)

	if _, err := s.engine.Handle(ctx, item, recalc.Refresh()); err != nil && !errors.Is(err, recalc.ErrSuperseded) {
		return Trade{}, fmt.Errorf("pricing item %s: %w", item.ID, err)
	}
	return s.repo.Get(ctx, tradeID)
}

// UpdateItem applies one change to an item and returns the trade as it stands afterwards.
// A change superseded by a newer one for the same item is not an error.
func (s *Service) UpdateItem(ctx context.Context, tradeID, itemID string, change recalc.Change) (Trade, error) {
	t, err := s.repo.Get(ctx, tradeID)
	if err != nil {
		return Trade{}, err
	}
	if err := requireDraft(&t); err != nil {
		return Trade{}, err
	}
	item, ok := t.Item(itemID)
	if !ok {
		return Trade{}, fmt.Errorf("item %s in trade %s: %w", itemID, tradeID, ErrNotFound)
	}
	s.owners.Store(itemID, tradeID)

	if _, err := s.engine.Handle(ctx, item, change); err != nil {
		if !errors.Is(err, recalc.ErrSuperseded) {
			return Trade{}, err
		}
		slog.Debug("item change superseded", "trade", tradeID, "item", itemID, "kind", change.Kind)
	}
	return s.repo.Get(ctx, tradeID)
}

// RemoveItem deletes an item. Pending recalculations for it are discarded.
func (s *Service) RemoveItem(ctx context.Context, tradeID, itemID string) (Trade, error) {
	t, err := s.mutate(ctx, tradeID, func(t *Trade) error {
		if err := requireDraft(t); err != nil {
			return err
		}
		idx, ok := t.itemIndex(itemID)
		if !ok {
			return fmt.Errorf("item %s in trade %s: %w", itemID, tradeID, ErrNotFound)
		}
		t.Items = append(t.Items[:idx], t.Items[idx+1:]...)
		return nil
	})
	if err != nil {
		return Trade{}, err
	}
	s.forget(itemID)
	return t, nil
}

// Clear removes every item from a draft trade.
func (s *Service) Clear(ctx context.Context, tradeID string) (Trade, error) {
	var removed []domain.TradeItem
	t, err := s.mutate(ctx, tradeID, func(t *Trade) error {
		if err := requireDraft(t); err != nil {
			return err
		}
		removed = t.Items
		t.Items = []domain.TradeItem{}
		return nil
	})
	if err != nil {
		return Trade{}, err
	}
	for _, item := range removed {
		s.forget(item.ID)
	}
	return t, nil
}

func (s *Service) forget(itemID string) {
	s.engine.Forget(itemID)
	s.owners.Delete(itemID)
}

// Submit moves a draft to pending approval. Every item needs a payment type and a value for it.
func (s *Service) Submit(ctx context.Context, tradeID string) (Trade, error) {
	return s.mutate(ctx, tradeID, func(t *Trade) error {
		if err := requireDraft(t); err != nil {
			return err
		}
		if len(t.Items) == 0 {
			return fmt.Errorf("%w: trade %s has no items", ErrIncomplete, t.ID)
		}
		if ids := t.incompleteItems(); len(ids) > 0 {
			return fmt.Errorf("%w: items without a payout value: %s", ErrIncomplete, strings.Join(ids, ", "))
		}
		now := s.now().UTC()
		t.Status = StatusPendingApproval
		t.SubmittedAt = &now
		return nil
	})
}

// Approve accepts a pending trade.
func (s *Service) Approve(ctx context.Context, tradeID, approver, note string) (Trade, error) {
	return s.decide(ctx, tradeID, StatusApproved, approver, note)
}

// Reject declines a pending trade.
func (s *Service) Reject(ctx context.Context, tradeID, approver, note string) (Trade, error) {
	return s.decide(ctx, tradeID, StatusRejected, approver, note)
}

func (s *Service) decide(ctx context.Context, tradeID string, status Status, approver, note string) (Trade, error) {
	approver = strings.TrimSpace(approver)
	if approver == "" {
		return Trade{}, fmt.Errorf("%w: approver is required", ErrInvalidTransition)
	}
	return s.mutate(ctx, tradeID, func(t *Trade) error {
		if t.Status != StatusPendingApproval {
			return fmt.Errorf("%w: trade %s is %s, not pending approval", ErrInvalidTransition, t.ID, t.Status)
		}
		now := s.now().UTC()
		t.Status = status
		t.DecidedBy = approver
		t.DecisionNote = note
		t.DecidedAt = &now
		return nil
	})
}

// Summary aggregates the trades approved in [from, to).
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	trades, err := s.repo.ListDecided(ctx, StatusApproved, from, to)
	if err != nil {
		return Summary{}, fmt.Errorf("listing approved trades: %w", err)
	}
	return Summarize(trades, from, to), nil
}

// OnUpdate persists an engine patch onto the stored item. Patches for removed items or
// trades no longer in draft are dropped.
func (s *Service) OnUpdate(itemID string, patch domain.ItemPatch) {
	v, ok := s.owners.Load(itemID)
	if !ok {
		return
	}
	tradeID := v.(string)

	ctx, cancel := context.WithTimeout(context.Background(), patchTimeout)
	defer cancel()

	_, err := s.mutate(ctx, tradeID, func(t *Trade) error {
		if t.Status != StatusDraft {
			return fmt.Errorf("%w: trade %s is %s", ErrInvalidTransition, t.ID, t.Status)
		}
		idx, ok := t.itemIndex(itemID)
		if !ok {
			return fmt.Errorf("item %s: %w", itemID, ErrNotFound)
		}
		t.Items[idx] = patch.Apply(t.Items[idx])
		return nil
	})
	if err != nil {
		slog.Warn("dropping item patch", "trade", tradeID, "item", itemID, "error", err)
	}
}

// OnValueChange is the debounced notice that an item's values settled.
func (s *Service) OnValueChange(itemID string, values domain.Values) {
	tradeID, _ := s.owners.Load(itemID)
	slog.Info("item values changed",
		"trade", tradeID,
		"item", itemID,
		"cash", domain.FormatMoneyPtr(values.CashValue),
		"trade_value", domain.FormatMoneyPtr(values.TradeValue))
}
