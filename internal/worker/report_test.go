package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/cardtrade/internal/trade"
)

type mockSummarizer struct {
	callCount atomic.Int32
	err       error

	mu       sync.Mutex
	from, to time.Time
}

func (m *mockSummarizer) Summary(_ context.Context, from, to time.Time) (trade.Summary, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.from, m.to = from, to
	m.mu.Unlock()
	if m.err != nil {
		return trade.Summary{}, m.err
	}
	return trade.Summary{From: from, To: to, TradeCount: 2}, nil
}

type mockHook struct {
	calls atomic.Int32
}

func (m *mockHook) Export(_ context.Context, _ trade.Summary) error {
	m.calls.Add(1)
	return nil
}

func TestReportWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockSummarizer{}
	hook := &mockHook{}
	w := NewReportWorker(mock, 50*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := hook.calls.Load(); got != mock.callCount.Load() {
		t.Errorf("hook calls = %d, want %d", got, mock.callCount.Load())
	}
}

func TestReportWorkerSkipsHookOnError(t *testing.T) {
	mock := &mockSummarizer{err: errors.New("db down")}
	hook := &mockHook{}
	w := NewReportWorker(mock, time.Hour, hook)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got != 1 {
		t.Errorf("call count = %d, want 1", got)
	}
	if got := hook.calls.Load(); got != 0 {
		t.Errorf("hook calls = %d, want 0", got)
	}
}

func TestReportWorkerWithoutHook(t *testing.T) {
	mock := &mockSummarizer{}
	w := NewReportWorker(mock, time.Hour, nil)
	w.now = func() time.Time { return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC) }

	w.report(context.Background())

	wantFrom := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	if !mock.from.Equal(wantFrom) || !mock.to.Equal(wantFrom.AddDate(0, 0, 1)) {
		t.Errorf("window = [%v, %v), want day of %v", mock.from, mock.to, wantFrom)
	}
}

func TestReportWindow(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		wantFrom time.Time
	}{
		{
			name:     "midday",
			now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
			wantFrom: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "month boundary",
			now:      time.Date(2026, 3, 1, 0, 0, 1, 0, time.UTC),
			wantFrom: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "non-UTC input",
			now:      time.Date(2026, 3, 10, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)),
			wantFrom: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := reportWindow(tt.now)
			if !from.Equal(tt.wantFrom) {
				t.Errorf("from = %v, want %v", from, tt.wantFrom)
			}
			if !to.Equal(tt.wantFrom.AddDate(0, 0, 1)) {
				t.Errorf("to = %v, want %v", to, tt.wantFrom.AddDate(0, 0, 1))
			}
		})
	}
}
