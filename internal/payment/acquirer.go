// Package payment turns a catalog item into a payable artifact: a hosted
// payment link plus, when one can be obtained, a scannable code.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/vendbot/internal/metrics"
	"github.com/user/vendbot/internal/types"
	"github.com/user/vendbot/pkg/razorpay"
)

var (
	// ErrGatewayUnavailable means the payment link could not be created.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrIncompleteLink means the gateway answered without an id or short url.
	ErrIncompleteLink = errors.New("payment link response incomplete")
)

// Correlation note keys echoed back by the gateway on payment events.
const (
	NoteBuyer = "telegram_user_id"
	NoteItem  = "item_id"
	NoteLink  = "payment_link_id"
)

const (
	defaultLinkTimeout = 15 * time.Second
	defaultCodeTimeout = 15 * time.Second
)

// Gateway is the subset of the Razorpay API the acquirer needs.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, req razorpay.PaymentLinkRequest) (*razorpay.PaymentLink, error)
	FetchPaymentLink(ctx context.Context, id string) (*razorpay.PaymentLink, error)
	CreateQRCode(ctx context.Context, req razorpay.QRCodeRequest) (*razorpay.QRCode, error)
}

// Options tunes an Acquirer. Zero values select defaults.
type Options struct {
	CallbackURL string
	LinkTimeout time.Duration
	CodeTimeout time.Duration
	// Strategies overrides the default code strategy chain.
	Strategies []CodeStrategy
}

// Acquirer creates payment artifacts.
type Acquirer struct {
	gateway     Gateway
	callbackURL string
	linkTimeout time.Duration
	codeTimeout time.Duration
	strategies  []CodeStrategy
}

// NewAcquirer creates an Acquirer. Without explicit strategies it tries the
// link's embedded code first and a standalone QR code second.
func NewAcquirer(gateway Gateway, opts Options) *Acquirer {
	a := &Acquirer{
		gateway:     gateway,
		callbackURL: opts.CallbackURL,
		linkTimeout: opts.LinkTimeout,
		codeTimeout: opts.CodeTimeout,
		strategies:  opts.Strategies,
	}
	if a.linkTimeout <= 0 {
		a.linkTimeout = defaultLinkTimeout
	}
	if a.codeTimeout <= 0 {
		a.codeTimeout = defaultCodeTimeout
	}
	if a.strategies == nil {
		a.strategies = []CodeStrategy{
			&LinkDetailsStrategy{Gateway: gateway},
			&QRCodeStrategy{Gateway: gateway},
		}
	}
	return a
}

// CreatePayable creates a payment link for item on behalf of buyer and
// attaches the first visual code any strategy produces. The returned
// artifact's VisualCode may be nil.
func (a *Acquirer) CreatePayable(ctx context.Context, item *types.Item, buyer types.ActorID) (*types.PaymentArtifact, error) {
	notes := map[string]string{
		NoteBuyer: buyer.String(),
		NoteItem:  item.ID.String(),
	}

	link, err := a.createLink(ctx, item, notes)
	if err != nil {
		metrics.PaymentLinks.WithLabelValues("failed").Inc()
		slog.Error("payment link creation failed", "item_id", item.ID, "buyer_id", buyer, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if link.ID == "" || link.ShortURL == "" {
		metrics.PaymentLinks.WithLabelValues("incomplete").Inc()
		slog.Error("payment link response incomplete", "item_id", item.ID, "buyer_id", buyer, "response", fmt.Sprintf("%+v", link))
		return nil, ErrIncompleteLink
	}
	metrics.PaymentLinks.WithLabelValues("ok").Inc()

	artifact := &types.PaymentArtifact{
		LinkID:   types.LinkID(link.ID),
		ShortURL: link.ShortURL,
	}

	req := CodeRequest{Link: link, Item: item, Notes: withLink(notes, link.ID)}
	for _, strategy := range a.strategies {
		code := a.tryStrategy(ctx, strategy, req)
		if code != nil {
			artifact.VisualCode = code
			break
		}
	}

	source := "none"
	if artifact.VisualCode != nil {
		source = artifact.VisualCode.Source
	}
	metrics.VisualCodes.WithLabelValues(source).Inc()
	slog.Info("payment link created", "item_id", item.ID, "buyer_id", buyer, "link_id", link.ID, "code_source", source)

	return artifact, nil
}

func (a *Acquirer) createLink(ctx context.Context, item *types.Item, notes map[string]string) (*razorpay.PaymentLink, error) {
	ctx, cancel := context.WithTimeout(ctx, a.linkTimeout)
	defer cancel()

	req := razorpay.PaymentLinkRequest{
		Amount:      item.PriceMinor,
		Currency:    "INR",
		Description: item.Label,
		ReferenceID: types.NewReferenceID(),
		Notify:      &razorpay.Notify{},
		Notes:       notes,
	}
	if a.callbackURL != "" {
		req.CallbackURL = a.callbackURL
		req.CallbackMethod = "get"
	}

	start := time.Now()
	link, err := a.gateway.CreatePaymentLink(ctx, req)
	metrics.GatewayLatency.WithLabelValues("create_link").Observe(time.Since(start).Seconds())
	return link, err
}

func (a *Acquirer) tryStrategy(ctx context.Context, strategy CodeStrategy, req CodeRequest) *types.VisualCode {
	ctx, cancel := context.WithTimeout(ctx, a.codeTimeout)
	defer cancel()

	start := time.Now()
	code, err := strategy.Code(ctx, req)
	metrics.GatewayLatency.WithLabelValues(strategy.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("visual code strategy failed", "strategy", strategy.Name(), "link_id", req.Link.ID, "error", err)
		return nil
	}
	if code == nil {
		slog.Debug("visual code strategy produced nothing", "strategy", strategy.Name(), "link_id", req.Link.ID)
	}
	return code
}

func withLink(notes map[string]string, linkID string) map[string]string {
	out := make(map[string]string, len(notes)+1)
	for k, v := range notes {
		out[k] = v
	}
	out[NoteLink] = linkID
	return out
}
