package whop

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "x-whop-signature"

var ErrWebhookSecretMissing = errors.New("webhook secret is not configured")

// VerifyWebhookSignature checks the signature against the exact body bytes.
// An empty or malformed signature is reported as a mismatch, not an error.
func VerifyWebhookSignature(payload []byte, signature, secret string) (bool, error) {
	if secret == "" {
		return false, ErrWebhookSecretMissing
	}

	sig := strings.TrimSpace(signature)
	if sig == "" {
		return false, nil
	}
	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false, nil
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), decodedSig), nil
}

// SignWebhookPayload returns the hex signature Whop would send for payload.
func SignWebhookPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature verifies with the client's configured webhook secret.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) (bool, error) {
	return VerifyWebhookSignature(payload, signature, c.webhookSecret)
}
