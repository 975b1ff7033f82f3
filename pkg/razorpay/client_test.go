package razorpay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreatePaymentLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/payment_links" {
			t.Errorf("expected path '/v1/payment_links', got %q", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "rzp_test" || pass != "secret" {
			t.Error("missing or invalid basic auth")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type 'application/json', got %q", r.Header.Get("Content-Type"))
		}

		var req PaymentLinkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Amount != 29900 {
			t.Errorf("expected amount 29900, got %d", req.Amount)
		}
		if req.Currency != "INR" {
			t.Errorf("expected currency INR, got %q", req.Currency)
		}
		if req.Notes["telegram_user_id"] != "555" || req.Notes["item_id"] != "1" {
			t.Errorf("unexpected notes: %v", req.Notes)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":        "plink_1",
			"short_url": "https://rzp.io/i/abc",
			"amount":    29900,
			"notes":     req.Notes,
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, KeyID: "rzp_test", KeySecret: "secret"})
	link, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{
		Amount:   29900,
		Currency: "INR",
		Notes:    map[string]string{"telegram_user_id": "555", "item_id": "1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if link.ID != "plink_1" {
		t.Errorf("expected id 'plink_1', got %q", link.ID)
	}
	if link.ShortURL != "https://rzp.io/i/abc" {
		t.Errorf("expected short url, got %q", link.ShortURL)
	}
	if link.QRCode != nil {
		t.Errorf("expected no qr code, got %+v", link.QRCode)
	}
}

func TestFetchPaymentLinkWithEmbeddedCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/payment_links/plink_1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"plink_1","short_url":"https://rzp.io/i/abc","qr_code":{"image_url":"https://rzp.io/qr.png"}}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL + "/", KeyID: "k", KeySecret: "s"})
	link, err := client.FetchPaymentLink(context.Background(), "plink_1")
	if err != nil {
		t.Fatal(err)
	}
	if link.QRCode == nil || link.QRCode.ImageURL != "https://rzp.io/qr.png" {
		t.Errorf("expected embedded qr image url, got %+v", link.QRCode)
	}
}

func TestFetchPaymentLinkEmptyID(t *testing.T) {
	client := New(Config{KeyID: "k", KeySecret: "s"})
	if _, err := client.FetchPaymentLink(context.Background(), ""); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestCreateQRCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/qr_codes" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req QRCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Type != "upi_qr" || req.Usage != "single_use" || !req.FixedAmount {
			t.Errorf("unexpected qr request: %+v", req)
		}
		if req.PaymentAmount != 29900 {
			t.Errorf("expected payment amount 29900, got %d", req.PaymentAmount)
		}
		w.Write([]byte(`{"id":"qr_1","status":"active","image_url":"https://rzp.io/qr/1.png"}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	code, err := client.CreateQRCode(context.Background(), QRCodeRequest{
		Type:          "upi_qr",
		Usage:         "single_use",
		FixedAmount:   true,
		PaymentAmount: 29900,
	})
	if err != nil {
		t.Fatal(err)
	}
	if code.ImageURL != "https://rzp.io/qr/1.png" {
		t.Errorf("unexpected image url %q", code.ImageURL)
	}
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too low"}}`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	_, err := client.CreatePaymentLink(context.Background(), PaymentLinkRequest{Amount: 1, Currency: "INR"})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("expected raw body on error")
	}
}

func TestMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	if _, err := client.FetchPaymentLink(context.Background(), "plink_1"); err == nil {
		t.Error("expected parse error")
	}
}

func TestDefaultBaseURL(t *testing.T) {
	client := New(Config{})
	if client.config.BaseURL != DefaultBaseURL {
		t.Errorf("expected default base url, got %q", client.config.BaseURL)
	}
}
