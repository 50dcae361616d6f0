package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtlprog/cardtrade/internal/trade"
)

// Summarizer aggregates approved trades over a period.
type Summarizer interface {
	Summary(ctx context.Context, from, to time.Time) (trade.Summary, error)
}

// AfterReportHook is called after each successful summary.
type AfterReportHook interface {
	Export(ctx context.Context, summary trade.Summary) error
}

// ReportWorker periodically summarises the previous day's approved trades.
type ReportWorker struct {
	summarizer Summarizer
	interval   time.Duration
	hook       AfterReportHook // optional
	now        func() time.Time
}

// NewReportWorker creates a new ReportWorker with an optional post-report hook.
func NewReportWorker(summarizer Summarizer, interval time.Duration, hook AfterReportHook) *ReportWorker {
	return &ReportWorker{
		summarizer: summarizer,
		interval:   interval,
		hook:       hook,
		now:        time.Now,
	}
}

// runHook calls the post-report hook if one is configured.
func (w *ReportWorker) runHook(ctx context.Context, summary trade.Summary) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, summary); err != nil {
		slog.Error("ReportWorker: export hook failed", "error", err)
	} else {
		slog.Info("ReportWorker: export hook completed")
	}
}

// reportWindow returns the previous UTC calendar day as [from, to).
func reportWindow(now time.Time) (from, to time.Time) {
	now = now.UTC()
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return to.AddDate(0, 0, -1), to
}

func (w *ReportWorker) report(ctx context.Context) {
	from, to := reportWindow(w.now())
	summary, err := w.summarizer.Summary(ctx, from, to)
	if err != nil {
		slog.Error("ReportWorker: summary failed", "day", from.Format(time.DateOnly), "error", err)
		return
	}
	slog.Info("ReportWorker: summary completed",
		"day", from.Format(time.DateOnly),
		"trades", summary.TradeCount,
		"cash", summary.CashTotal.StringFixed(2),
		"trade", summary.TradeTotal.StringFixed(2),
	)
	w.runHook(ctx, summary)
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting")

	// Report immediately on startup
	w.report(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.report(ctx)
		}
	}
}
