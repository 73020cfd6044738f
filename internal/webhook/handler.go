package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/store"
)

const maxWebhookBody = 1 << 20

// Config holds the provider verification material.
type Config struct {
	// SendGridPublicKey is the base64 Ed25519 event webhook key.
	SendGridPublicKey string
	// SendGridToken is the bearer fallback when signed events are off.
	SendGridToken string
	// TwilioAuthToken keys the Twilio HMAC.
	TwilioAuthToken string
	// TwilioWebhookURL overrides the reconstructed request URL, for
	// deployments behind a proxy.
	TwilioWebhookURL string
}

// Handler terminates the provider webhook endpoints. Signature checks
// run before any store write.
type Handler struct {
	st  store.Store
	cfg Config
}

func NewHandler(st store.Store, cfg Config) *Handler {
	return &Handler{st: st, cfg: cfg}
}

// Register mounts the webhook routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhook/sendgrid", h.handleSendGrid)
	r.Post("/webhook/twilio", h.handleTwilio)
}

type sendGridEvent struct {
	Email  string `json:"email"`
	Event  string `json:"event"`
	Reason string `json:"reason"`
}

func (h *Handler) handleSendGrid(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	sig := r.Header.Get("X-Twilio-Email-Event-Webhook-Signature")
	ts := r.Header.Get("X-Twilio-Email-Event-Webhook-Timestamp")
	verified := VerifySendGrid(h.cfg.SendGridPublicKey, ts, body, sig) ||
		VerifyBearer(r.Header.Get("Authorization"), h.cfg.SendGridToken)
	if !verified {
		logger.Warn("sendgrid webhook rejected", "reason", "signature_invalid")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "signature_invalid"})
		return
	}

	var events []sendGridEvent
	if err := json.Unmarshal(body, &events); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	ctx := r.Context()
	for _, ev := range events {
		email := domain.CanonicalTarget(ev.Email)
		if email == "" {
			continue
		}
		switch strings.ToLower(ev.Event) {
		case "delivered", "open":
			// best effort: unmatched opens are dropped silently
			if _, err := h.st.MarkOpened(ctx, domain.MethodEmail, email); err != nil {
				logger.Error("mark opened failed", "email", email, "error", err.Error())
			}
		case "unsubscribe", "unsubscribed":
			if err := h.st.InsertOptOut(ctx, domain.MethodEmail, email); err != nil {
				logger.Error("opt-out insert failed", "email", email, "error", err.Error())
			}
		case "bounce":
			reason := ev.Reason
			if reason == "" {
				reason = "bounce"
			}
			b := &domain.Bounce{Method: domain.MethodEmail, Target: email, Reason: reason}
			if err := h.st.InsertBounce(ctx, b); err != nil {
				logger.Error("bounce insert failed", "email", email, "error", err.Error())
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleTwilio(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	url := h.cfg.TwilioWebhookURL
	if url == "" {
		// Twilio signs the full public URL, query string included
		scheme := "http"
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		} else if r.TLS != nil {
			scheme = "https"
		}
		url = scheme + "://" + r.Host + r.URL.RequestURI()
	}
	if !VerifyTwilio(h.cfg.TwilioAuthToken, url, params, r.Header.Get("X-Twilio-Signature")) {
		logger.Warn("twilio webhook rejected", "reason", "signature_invalid")
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "signature_invalid"})
		return
	}

	status := strings.ToLower(firstOf(params, "MessageStatus", "messageStatus"))
	to := domain.CanonicalTarget(firstOf(params, "To", "to"))
	to = strings.TrimPrefix(to, "whatsapp:")
	if to == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_body"})
		return
	}

	ctx := r.Context()
	switch status {
	case "delivered", "read":
		if _, err := h.st.MarkOpened(ctx, domain.MethodWhatsApp, to); err != nil {
			logger.Error("mark opened failed", "whatsapp", to, "error", err.Error())
		}
	case "undelivered", "failed":
		b := &domain.Bounce{Method: domain.MethodWhatsApp, Target: to, Reason: status}
		if err := h.st.InsertBounce(ctx, b); err != nil {
			logger.Error("bounce insert failed", "whatsapp", to, "error", err.Error())
		}
	case "stopped", "optout":
		if err := h.st.InsertOptOut(ctx, domain.MethodWhatsApp, to); err != nil {
			logger.Error("opt-out insert failed", "whatsapp", to, "error", err.Error())
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func firstOf(params map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
