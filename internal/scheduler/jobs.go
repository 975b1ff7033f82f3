package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/vendbot/internal/types"
)

// DigestJob sends the operator a summary of sales over the last 24 hours.
func DigestJob(schedule string, ledger types.SalesLedger, notifier types.Notifier, operator types.ActorID) Job {
	return Job{
		Name:     "digest",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			summary, err := ledger.Summarize(ctx, time.Now().Add(-24*time.Hour))
			if err != nil {
				return fmt.Errorf("summarize sales: %w", err)
			}
			return notifier.SendText(ctx, operator, DigestText(summary))
		},
	}
}

// DigestText renders a daily summary.
func DigestText(s types.SalesSummary) string {
	return fmt.Sprintf("📊 Last 24 hours\n\nOrders: %d\nRevenue: %s", s.Count, types.FormatRupees(s.TotalMinor))
}

// PruneJob deletes ledger rows older than retentionDays. A non-positive
// retention disables the job.
func PruneJob(schedule string, ledger types.SalesLedger, retentionDays int) Job {
	if retentionDays <= 0 {
		schedule = ""
	}
	return Job{
		Name:     "prune",
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			n, err := ledger.Prune(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("prune sales: %w", err)
			}
			slog.Info("pruned sales ledger", "rows", n, "before", cutoff.Format(time.DateOnly))
			return nil
		},
	}
}
