package webhook

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/store"
)

const twilioURL = "http://example.com/webhook/twilio"

type harness struct {
	mem    *store.Mem
	router chi.Router
	pub    string
	priv   ed25519.PrivateKey
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	mem := store.NewMem()
	h := NewHandler(mem, Config{
		SendGridPublicKey: base64.StdEncoding.EncodeToString(pub),
		SendGridToken:     "fallback-token",
		TwilioAuthToken:   "twilio-token",
		TwilioWebhookURL:  twilioURL,
	})
	r := chi.NewRouter()
	h.Register(r)
	return &harness{mem: mem, router: r, pub: base64.StdEncoding.EncodeToString(pub), priv: priv}
}

// seedDelivery records an email and a whatsapp delivery for one lead.
func (h *harness) seedDelivery(t *testing.T, email, phone string) {
	t.Helper()
	ctx := context.Background()
	ql := &domain.QualifiedLead{RawLeadID: 1, Email: email, Phone: phone, Category: domain.CategoryHot, Industry: "saas"}
	require.NoError(t, h.mem.InsertQualifiedLead(ctx, ql))
	require.NoError(t, h.mem.InsertClient(ctx, &domain.BusinessClient{BusinessName: "C", Industry: "saas"}))
	for _, m := range []domain.Method{domain.MethodEmail, domain.MethodWhatsApp} {
		_, _, err := h.mem.InsertDelivery(ctx, &domain.DeliveredLead{
			QualifiedLeadID: ql.ID, ClientID: 1, Method: m, DeliveredAt: time.Now(),
		})
		require.NoError(t, err)
	}
}

func (h *harness) postSendGrid(body string, sign bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhook/sendgrid", strings.NewReader(body))
	if sign {
		ts := "1724580000"
		req.Header.Set("X-Twilio-Email-Event-Webhook-Timestamp", ts)
		req.Header.Set("X-Twilio-Email-Event-Webhook-Signature", signSendGrid(h.priv, ts, []byte(body)))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) postTwilio(params map[string]string, sign bool) *httptest.ResponseRecorder {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	req := httptest.NewRequest("POST", "/webhook/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sign {
		req.Header.Set("X-Twilio-Signature", signTwilio("twilio-token", twilioURL, params))
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

// Signed SendGrid batch: delivered flips opened, unsubscribe records an
// opt-out, bounce records a bounce.
func TestSendGridEventBatch(t *testing.T) {
	h := newHarness(t)
	h.seedDelivery(t, "lead@x.com", "+15551234")

	body := `[
		{"email":"lead@x.com","event":"delivered"},
		{"email":"lead@x.com","event":"unsubscribe"},
		{"email":"bad@x.com","event":"bounce","reason":"hard"}
	]`
	rec := h.postSendGrid(body, true)
	require.Equal(t, http.StatusOK, rec.Code)

	deliveries := h.mem.Deliveries()
	opened := false
	for _, d := range deliveries {
		if d.Method == domain.MethodEmail && d.Opened {
			opened = true
		}
	}
	assert.True(t, opened, "delivered event must flip the email delivery")

	opted, err := h.mem.IsOptedOut(context.Background(), domain.MethodEmail, "lead@x.com")
	require.NoError(t, err)
	assert.True(t, opted)

	bounces, err := h.mem.Bounces(context.Background())
	require.NoError(t, err)
	require.Len(t, bounces, 1)
	assert.Equal(t, "bad@x.com", bounces[0].Target)
	assert.Equal(t, "hard", bounces[0].Reason)
}

// Twilio sequence: delivered flips opened, failed records a bounce,
// stopped records an opt-out. The whatsapp: prefix is stripped.
func TestTwilioEventSequence(t *testing.T) {
	h := newHarness(t)
	h.seedDelivery(t, "lead@x.com", "+15551234")

	rec := h.postTwilio(map[string]string{"MessageStatus": "delivered", "To": "whatsapp:+15551234"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.postTwilio(map[string]string{"MessageStatus": "failed", "To": "+15559999"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.postTwilio(map[string]string{"MessageStatus": "stopped", "To": "+15551234"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	opened := false
	for _, d := range h.mem.Deliveries() {
		if d.Method == domain.MethodWhatsApp && d.Opened {
			opened = true
		}
	}
	assert.True(t, opened)

	bounces, err := h.mem.Bounces(context.Background())
	require.NoError(t, err)
	require.Len(t, bounces, 1)
	assert.Equal(t, "+15559999", bounces[0].Target)
	assert.Equal(t, "failed", bounces[0].Reason)

	opted, err := h.mem.IsOptedOut(context.Background(), domain.MethodWhatsApp, "+15551234")
	require.NoError(t, err)
	assert.True(t, opted)
}

func TestSendGridBadSignatureWritesNothing(t *testing.T) {
	h := newHarness(t)
	rec := h.postSendGrid(`[{"email":"lead@x.com","event":"unsubscribe"}]`, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"signature_invalid"}`, rec.Body.String())
	assert.Empty(t, h.mem.OptOuts())
}

func TestSendGridBearerFallback(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest("POST", "/webhook/sendgrid", strings.NewReader(`[{"email":"a@b.co","event":"unsubscribe"}]`))
	req.Header.Set("Authorization", "Bearer fallback-token")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, h.mem.OptOuts(), 1)
}

func TestSendGridInvalidBody(t *testing.T) {
	h := newHarness(t)
	rec := h.postSendGrid(`{"not":"an array"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTwilioBadSignatureWritesNothing(t *testing.T) {
	h := newHarness(t)
	rec := h.postTwilio(map[string]string{"MessageStatus": "stopped", "To": "+15551234"}, false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, h.mem.OptOuts())
}

// Without a configured webhook URL the handler reconstructs the public
// URL Twilio signed: forwarded scheme and query string included.
func TestTwilioSignatureBehindProxy(t *testing.T) {
	mem := store.NewMem()
	h := NewHandler(mem, Config{TwilioAuthToken: "twilio-token"})
	r := chi.NewRouter()
	h.Register(r)

	params := map[string]string{"MessageStatus": "stopped", "To": "+15551234"}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	req := httptest.NewRequest("POST", "http://example.com/webhook/twilio?src=sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Twilio-Signature", signTwilio("twilio-token", "https://example.com/webhook/twilio?src=sms", params))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	opted, err := mem.IsOptedOut(context.Background(), domain.MethodWhatsApp, "+15551234")
	require.NoError(t, err)
	assert.True(t, opted)

	// a signature over the http scheme no longer matches
	req = httptest.NewRequest("POST", "http://example.com/webhook/twilio?src=sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Twilio-Signature", signTwilio("twilio-token", "http://example.com/webhook/twilio?src=sms", params))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTwilioMissingTo(t *testing.T) {
	h := newHarness(t)
	rec := h.postTwilio(map[string]string{"MessageStatus": "delivered"}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Replaying an event leaves state unchanged: the opened flip is
// monotonic.
func TestWebhookReplayIsIdempotentForOpens(t *testing.T) {
	h := newHarness(t)
	h.seedDelivery(t, "lead@x.com", "+15551234")

	body := `[{"email":"lead@x.com","event":"open"}]`
	require.Equal(t, http.StatusOK, h.postSendGrid(body, true).Code)
	first := h.mem.Deliveries()
	require.Equal(t, http.StatusOK, h.postSendGrid(body, true).Code)
	assert.Equal(t, first, h.mem.Deliveries())
}

// Unmatched opens drop silently; bounces for unknown targets are still
// recorded.
func TestUnmatchedEvents(t *testing.T) {
	h := newHarness(t)
	rec := h.postSendGrid(`[{"email":"ghost@x.com","event":"open"},{"email":"ghost@x.com","event":"bounce"}]`, true)
	require.Equal(t, http.StatusOK, rec.Code)

	bounces, err := h.mem.Bounces(context.Background())
	require.NoError(t, err)
	require.Len(t, bounces, 1)
	assert.Equal(t, "bounce", bounces[0].Reason)
}
