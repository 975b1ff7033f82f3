package payment

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/user/vendbot/internal/types"
	"github.com/user/vendbot/pkg/razorpay"
)

// CodeRequest carries what a strategy may need to produce a code.
type CodeRequest struct {
	Link  *razorpay.PaymentLink
	Item  *types.Item
	Notes map[string]string
}

// CodeStrategy produces a scannable code for a created link. A nil code with
// a nil error means the strategy had nothing to offer.
type CodeStrategy interface {
	Name() string
	Code(ctx context.Context, req CodeRequest) (*types.VisualCode, error)
}

// LinkDetailsStrategy re-reads the link and uses its embedded code, if any.
type LinkDetailsStrategy struct {
	Gateway Gateway
}

func (s *LinkDetailsStrategy) Name() string { return "link_details" }

func (s *LinkDetailsStrategy) Code(ctx context.Context, req CodeRequest) (*types.VisualCode, error) {
	embedded := req.Link.QRCode
	if embedded == nil {
		link, err := s.Gateway.FetchPaymentLink(ctx, req.Link.ID)
		if err != nil {
			return nil, err
		}
		embedded = link.QRCode
	}
	if embedded == nil {
		return nil, nil
	}
	return visualCode(s.Name(), embedded.ImageContent, embedded.ImageURL)
}

// QRCodeStrategy creates a standalone single-use UPI QR code for the
// link's amount.
type QRCodeStrategy struct {
	Gateway Gateway
}

func (s *QRCodeStrategy) Name() string { return "qr_code" }

func (s *QRCodeStrategy) Code(ctx context.Context, req CodeRequest) (*types.VisualCode, error) {
	code, err := s.Gateway.CreateQRCode(ctx, razorpay.QRCodeRequest{
		Type:          "upi_qr",
		Name:          truncate(req.Item.Label, 40),
		Usage:         "single_use",
		FixedAmount:   true,
		PaymentAmount: req.Item.PriceMinor,
		Description:   req.Item.Label,
		Notes:         req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return visualCode(s.Name(), code.ImageContent, code.ImageURL)
}

// visualCode prefers inline image content and falls back to the URL.
func visualCode(source, content, url string) (*types.VisualCode, error) {
	if content != "" {
		data, err := decodeImage(content)
		if err == nil && len(data) > 0 {
			return &types.VisualCode{Bytes: data, Source: source}, nil
		}
		if url == "" {
			return nil, fmt.Errorf("decoding image content: %w", err)
		}
	}
	if url != "" {
		return &types.VisualCode{URL: url, Source: source}, nil
	}
	return nil, nil
}

// decodeImage accepts raw base64 or a data URI.
func decodeImage(content string) ([]byte, error) {
	if strings.HasPrefix(content, "data:") {
		idx := strings.Index(content, ",")
		if idx < 0 {
			return nil, fmt.Errorf("malformed data uri")
		}
		content = content[idx+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(content))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
