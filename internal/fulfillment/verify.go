package fulfillment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex HMAC of the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the HMAC of body under secret. The
// comparison is constant time. An empty secret or signature never verifies.
func Verify(secret, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(secret) == 0 || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
