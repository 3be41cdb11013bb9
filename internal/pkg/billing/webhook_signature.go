package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex encoded HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Signature"

// VerifySignature authenticates a raw webhook body against the signature header.
// A blank secret yields ErrSecretNotConfigured before anything is compared.
func VerifySignature(payload []byte, webhookSecret, signatureHeader string) error {
	secret := strings.TrimSpace(webhookSecret)
	if secret == "" {
		return ErrSecretNotConfigured
	}

	sig := strings.TrimSpace(signatureHeader)
	if sig == "" {
		return ErrInvalidSignature
	}
	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	// hmac.Equal is constant time and also rejects length mismatches.
	if !hmac.Equal(mac.Sum(nil), decodedSig) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns the header value a provider would send for payload.
func Sign(payload []byte, webhookSecret string) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(webhookSecret)))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
