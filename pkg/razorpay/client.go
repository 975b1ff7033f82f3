// Package razorpay is a minimal client for the Razorpay payment link and
// QR code APIs.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://api.razorpay.com"

// Config holds credentials and the API host.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// Client calls the Razorpay REST API with basic auth.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a client. An empty BaseURL selects DefaultBaseURL.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreatePaymentLink creates a hosted payment link.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	var link PaymentLink
	if err := c.do(ctx, http.MethodPost, "/v1/payment_links", req, &link); err != nil {
		return nil, fmt.Errorf("creating payment link: %w", err)
	}
	return &link, nil
}

// FetchPaymentLink retrieves a payment link by id.
func (c *Client) FetchPaymentLink(ctx context.Context, id string) (*PaymentLink, error) {
	if id == "" {
		return nil, fmt.Errorf("fetching payment link: empty id")
	}
	var link PaymentLink
	if err := c.do(ctx, http.MethodGet, "/v1/payment_links/"+url.PathEscape(id), nil, &link); err != nil {
		return nil, fmt.Errorf("fetching payment link %s: %w", id, err)
	}
	return &link, nil
}

// CreateQRCode creates a UPI QR code.
func (c *Client) CreateQRCode(ctx context.Context, req QRCodeRequest) (*QRCode, error) {
	var code QRCode
	if err := c.do(ctx, http.MethodPost, "/v1/payments/qr_codes", req, &code); err != nil {
		return nil, fmt.Errorf("creating qr code: %w", err)
	}
	return &code, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
