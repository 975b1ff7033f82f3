// Package fulfillment verifies payment notifications and delivers purchased
// content to buyers.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/vendbot/internal/metrics"
	"github.com/user/vendbot/internal/state"
	"github.com/user/vendbot/internal/types"
)

// Outcome classifies how an inbound notification was handled.
type Outcome int

const (
	// Rejected notifications failed verification or could not be parsed.
	Rejected Outcome = iota
	// Ignored notifications were authentic but not a paid link.
	Ignored
	// Accepted notifications were authentic paid links. Delivery may still
	// have been skipped for anomalies and duplicates.
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case Rejected:
		return "rejected"
	case Ignored:
		return "ignored"
	case Accepted:
		return "accepted"
	}
	return "unknown"
}

// Enqueuer accepts jobs for asynchronous delivery.
type Enqueuer interface {
	Enqueue(key string, job *Job) error
}

// Options tunes a Dispatcher.
type Options struct {
	// Secret is the webhook signing secret.
	Secret string
	// Dedupe skips delivery for link ids already recorded in the ledger.
	Dedupe bool
}

// Dispatcher turns verified paid events into fulfillment jobs.
type Dispatcher struct {
	secret  []byte
	dedupe  bool
	catalog types.CatalogStore
	ledger  types.SalesLedger
	queue   Enqueuer
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts Options, catalog types.CatalogStore, ledger types.SalesLedger, queue Enqueuer) *Dispatcher {
	return &Dispatcher{
		secret:  []byte(opts.Secret),
		dedupe:  opts.Dedupe,
		catalog: catalog,
		ledger:  ledger,
		queue:   queue,
		now:     time.Now,
	}
}

// HandleInboundEvent verifies body against signature before reading any of
// it, then resolves and enqueues delivery for paid links. A non-nil error
// means the notification should be retried by the sender.
func (d *Dispatcher) HandleInboundEvent(ctx context.Context, body []byte, signature string) (Outcome, error) {
	outcome, err := d.handle(ctx, body, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
	} else {
		metrics.WebhookEvents.WithLabelValues(outcome.String()).Inc()
	}
	return outcome, err
}

func (d *Dispatcher) handle(ctx context.Context, body []byte, signature string) (Outcome, error) {
	if !Verify(d.secret, body, signature) {
		slog.Warn("webhook signature rejected", "has_signature", signature != "")
		return Rejected, nil
	}

	ev, err := ParseEvent(body)
	if err != nil {
		slog.Warn("verified webhook body is malformed", "error", err)
		return Rejected, nil
	}
	if ev.Event != EventLinkPaid {
		slog.Debug("ignoring webhook event", "event", ev.Event)
		return Ignored, nil
	}

	link := ev.Payload.PaymentLink.Entity
	buyer, itemID, err := link.Correlation()
	if err != nil {
		metrics.FulfillmentAnomalies.Inc()
		slog.Error("paid link has unusable notes", "link_id", link.ID, "notes", string(link.Notes), "error", err)
		return Accepted, nil
	}

	item, err := d.catalog.Get(ctx, itemID)
	if errors.Is(err, state.ErrNotFound) {
		metrics.FulfillmentAnomalies.Inc()
		slog.Error("paid link references unknown item", "link_id", link.ID, "item_id", itemID, "buyer_id", buyer)
		return Accepted, nil
	}
	if err != nil {
		return Accepted, fmt.Errorf("loading item %s: %w", itemID, err)
	}

	sale := &types.Sale{
		LinkID:      types.LinkID(link.ID),
		PaymentID:   ev.Payload.Payment.Entity.ID,
		BuyerID:     buyer,
		ItemID:      item.ID,
		AmountMinor: link.Amount,
		CreatedAt:   d.now().UTC(),
	}
	if sale.AmountMinor <= 0 {
		sale.AmountMinor = item.PriceMinor
	}
	if sale.LinkID == "" {
		// Without a link id there is nothing to key the ledger on.
		sale.LinkID = types.LinkID("unknown:" + string(types.NewEventID()))
	}

	claimed, err := d.ledger.Claim(ctx, sale)
	if err != nil {
		return Accepted, fmt.Errorf("claiming link %s: %w", sale.LinkID, err)
	}
	if !claimed && d.dedupe {
		metrics.DuplicateEvents.Inc()
		slog.Info("duplicate paid event skipped", "link_id", sale.LinkID, "buyer_id", buyer)
		return Accepted, nil
	}

	job := &Job{
		ID:         types.NewJobID(),
		Buyer:      buyer,
		Item:       item,
		Sale:       sale,
		EnqueuedAt: d.now(),
	}
	if err := d.queue.Enqueue(job.LaneKey(), job); err != nil {
		if claimed {
			if relErr := d.ledger.Release(ctx, sale.LinkID); relErr != nil {
				slog.Error("failed to release claim", "link_id", sale.LinkID, "error", relErr)
			}
		}
		return Accepted, fmt.Errorf("enqueuing fulfillment for %s: %w", sale.LinkID, err)
	}

	slog.Info("fulfillment enqueued", "job_id", job.ID, "link_id", sale.LinkID, "buyer_id", buyer, "item_id", item.ID)
	return Accepted, nil
}
