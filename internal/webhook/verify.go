// Package webhook ingests signed delivery-status events from the email
// and WhatsApp providers and reconciles them against recorded
// deliveries.
package webhook

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"sort"
	"strings"
)

// VerifySendGrid checks the Ed25519 signature over timestamp || body
// against the configured base64 public key.
func VerifySendGrid(publicKeyB64, timestamp string, body []byte, signatureB64 string) bool {
	if publicKeyB64 == "" || signatureB64 == "" || timestamp == "" {
		return false
	}
	pub, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false
	}
	msg := append([]byte(timestamp), body...)
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

// VerifyBearer checks an Authorization header against the fallback
// token in constant time.
func VerifyBearer(header, token string) bool {
	if token == "" {
		return false
	}
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return false
	}
	got := header[7:]
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}

// VerifyTwilio checks the HMAC-SHA1 signature Twilio computes over the
// request URL followed by every form key+value pair in key order. The
// base64 comparison is constant time.
func VerifyTwilio(authToken, url string, params map[string]string, signatureB64 string) bool {
	if authToken == "" || signatureB64 == "" {
		return false
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(url)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signatureB64)) == 1
}
