package webhook

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signSendGrid(priv ed25519.PrivateKey, ts string, body []byte) string {
	sig := ed25519.Sign(priv, append([]byte(ts), body...))
	return base64.StdEncoding.EncodeToString(sig)
}

func signTwilio(token, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := url
	for _, k := range keys {
		s += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(s))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySendGrid(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	body := []byte(`[{"email":"a@b.co","event":"open"}]`)
	ts := "1724580000"
	sig := signSendGrid(priv, ts, body)

	assert.True(t, VerifySendGrid(pubB64, ts, body, sig))
	assert.False(t, VerifySendGrid(pubB64, "1724580001", body, sig), "timestamp is part of the message")
	assert.False(t, VerifySendGrid(pubB64, ts, []byte(`[]`), sig), "body is part of the message")
	assert.False(t, VerifySendGrid(pubB64, ts, body, base64.StdEncoding.EncodeToString(make([]byte, 64))))
	assert.False(t, VerifySendGrid("", ts, body, sig))
	assert.False(t, VerifySendGrid("not base64!", ts, body, sig))
}

func TestVerifyBearer(t *testing.T) {
	assert.True(t, VerifyBearer("Bearer secret-token", "secret-token"))
	assert.True(t, VerifyBearer("bearer secret-token", "secret-token"))
	assert.False(t, VerifyBearer("Bearer wrong", "secret-token"))
	assert.False(t, VerifyBearer("secret-token", "secret-token"))
	assert.False(t, VerifyBearer("Bearer secret-token", ""))
}

func TestVerifyTwilio(t *testing.T) {
	token := "auth-token"
	url := "http://example.com/webhook/twilio"
	params := map[string]string{"MessageStatus": "delivered", "To": "whatsapp:+15551234"}

	sig := signTwilio(token, url, params)
	assert.True(t, VerifyTwilio(token, url, params, sig))
	assert.False(t, VerifyTwilio(token, url, map[string]string{"MessageStatus": "failed", "To": "whatsapp:+15551234"}, sig))
	assert.False(t, VerifyTwilio(token, "http://example.com/other", params, sig))
	assert.False(t, VerifyTwilio("other-token", url, params, sig))
	assert.False(t, VerifyTwilio(token, url, params, ""))
}
