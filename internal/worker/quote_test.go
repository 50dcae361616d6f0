package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/cardtrade/internal/domain"
	"github.com/mtlprog/cardtrade/internal/external"
)

type mockQuoteSyncer struct {
	callCount atomic.Int32
	products  atomic.Int32
}

func (m *mockQuoteSyncer) SyncAll(_ context.Context, products []external.Product) int {
	m.callCount.Add(1)
	m.products.Store(int32(len(products)))
	return len(products)
}

func TestQuoteWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockQuoteSyncer{}
	products := []external.Product{
		{Game: domain.GamePokemon, ProductID: "base1-4"},
		{Game: domain.GameMTG, ProductID: "lea-232"},
	}
	w := NewQuoteWorker(mock, products, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial sync + some ticks
	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
	if got := mock.products.Load(); got != 2 {
		t.Errorf("products passed = %d, want 2", got)
	}
}
