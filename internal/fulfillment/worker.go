package fulfillment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/vendbot/internal/delivery"
	"github.com/user/vendbot/internal/dispatch"
	"github.com/user/vendbot/internal/metrics"
	"github.com/user/vendbot/internal/salefeed"
	"github.com/user/vendbot/internal/types"
)

// Worker performs the sends for a fulfillment job. Each send is attempted
// independently: a failed confirmation does not block content delivery or
// the operator alert.
type Worker struct {
	notifier types.Notifier
	registry *delivery.Registry
	operator types.ActorID
	retry    *dispatch.RetryPolicy
	feed     salefeed.Publisher
}

// NewWorker creates a Worker. A nil retry policy selects the default and a
// nil feed discards sale events.
func NewWorker(notifier types.Notifier, registry *delivery.Registry, operator types.ActorID, retry *dispatch.RetryPolicy, feed salefeed.Publisher) *Worker {
	if retry == nil {
		retry = dispatch.DefaultRetryPolicy()
	}
	if feed == nil {
		feed = salefeed.Nop{}
	}
	return &Worker{
		notifier: notifier,
		registry: registry,
		operator: operator,
		retry:    retry,
		feed:     feed,
	}
}

// Process delivers one job. Failures are logged and counted per step; the
// returned error is always nil so the queue moves on.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	item := job.Item

	w.step(ctx, job, "confirmation", func() error {
		return w.notifier.SendText(ctx, job.Buyer, confirmationText(item))
	})
	w.step(ctx, job, "content", func() error {
		return w.registry.Deliver(ctx, w.notifier, job.Buyer, item)
	})
	w.step(ctx, job, "operator_alert", func() error {
		return w.notifier.SendText(ctx, w.operator, alertText(job.Buyer, item))
	})

	if err := w.feed.PublishSale(ctx, job.Sale, item); err != nil {
		metrics.SaleEvents.WithLabelValues("failed").Inc()
		slog.Warn("sale event publish failed", "job_id", job.ID, "link_id", job.Sale.LinkID, "error", err)
	} else {
		metrics.SaleEvents.WithLabelValues("ok").Inc()
	}
	return nil
}

func (w *Worker) step(ctx context.Context, job *Job, name string, fn func() error) {
	if err := w.retry.Execute(ctx, fn); err != nil {
		metrics.Deliveries.WithLabelValues(name, "failed").Inc()
		slog.Error("fulfillment step failed", "step", name, "job_id", job.ID, "link_id", job.Sale.LinkID, "buyer_id", job.Buyer, "item_id", job.Item.ID, "error", err)
		return
	}
	metrics.Deliveries.WithLabelValues(name, "ok").Inc()
	slog.Debug("fulfillment step done", "step", name, "job_id", job.ID)
}

func confirmationText(item *types.Item) string {
	return fmt.Sprintf("✅ Payment Successful!\n\nItem: %s\nAmount: %s", item.Label, types.FormatRupees(item.PriceMinor))
}

func alertText(buyer types.ActorID, item *types.Item) string {
	return fmt.Sprintf("🤑 New Order!\n\nBuyer ID: %s\nItem: %s\nAmount: %s", buyer, item.Label, types.FormatRupees(item.PriceMinor))
}
