package gatewaywebhook

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex sha256 of the raw body plus events secret.
const SignatureHeader = "x-signature"

// EventSignature computes the expected signature for rawBody.
func EventSignature(rawBody []byte, secret string) string {
	h := sha256.New()
	h.Write(rawBody)
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyEventSignature compares in constant time. Hex case is ignored.
func VerifyEventSignature(rawBody []byte, signature, secret string) bool {
	signature = strings.ToLower(strings.TrimSpace(signature))
	if signature == "" || secret == "" {
		return false
	}
	expected := EventSignature(rawBody, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
