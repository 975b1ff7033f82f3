package razorpay

import "fmt"

// Customer is the optional customer block on a payment link.
type Customer struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Notify controls whether Razorpay itself messages the customer.
type Notify struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// PaymentLinkRequest is the body of POST /v1/payment_links.
type PaymentLinkRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Description    string            `json:"description,omitempty"`
	ReferenceID    string            `json:"reference_id,omitempty"`
	Customer       *Customer         `json:"customer,omitempty"`
	Notify         *Notify           `json:"notify,omitempty"`
	CallbackURL    string            `json:"callback_url,omitempty"`
	CallbackMethod string            `json:"callback_method,omitempty"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// EmbeddedImage is a scannable code attached to a payment link. Either field
// may be empty depending on account configuration.
type EmbeddedImage struct {
	ImageURL     string `json:"image_url,omitempty"`
	ImageContent string `json:"image_content,omitempty"`
}

// PaymentLink is the subset of the payment link entity the bot reads.
type PaymentLink struct {
	ID          string            `json:"id"`
	ShortURL    string            `json:"short_url"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      string            `json:"status"`
	ReferenceID string            `json:"reference_id"`
	Notes       map[string]string `json:"notes"`
	QRCode      *EmbeddedImage    `json:"qr_code,omitempty"`
}

// QRCodeRequest is the body of POST /v1/payments/qr_codes.
type QRCodeRequest struct {
	Type          string            `json:"type"`
	Name          string            `json:"name,omitempty"`
	Usage         string            `json:"usage"`
	FixedAmount   bool              `json:"fixed_amount"`
	PaymentAmount int64             `json:"payment_amount,omitempty"`
	Description   string            `json:"description,omitempty"`
	Notes         map[string]string `json:"notes,omitempty"`
}

// QRCode is the subset of the QR code entity the bot reads.
type QRCode struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ImageURL     string `json:"image_url"`
	ImageContent string `json:"image_content,omitempty"`
}

// APIError is returned for any non-2xx response. Body holds the raw
// response so callers can log it in full.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay API error (status %d): %s", e.StatusCode, e.Body)
}
