package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Delivery headers. Receivers verify the signature against the exact body
// bytes using the shared subscription secret.
const (
	HeaderSignature      = "X-Nexus-Signature"
	HeaderEvent          = "X-Nexus-Event"
	HeaderIdempotencyKey = "X-Idempotency-Key"
)

// SignPayload creates the HMAC-SHA256 signature for webhook verification.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
