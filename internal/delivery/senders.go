package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/leadflow/internal/pkg/logger"
)

// Sender is the pluggable transport behind one delivery channel.
type Sender interface {
	Send(ctx context.Context, target, subject, body string) error
}

// SendGridSender delivers email through the SendGrid v3 Mail Send API.
// Without credentials the send is simulated, so local runs work end to
// end against an empty environment.
type SendGridSender struct {
	apiKey    string
	fromEmail string
	baseURL   string
	client    *http.Client
}

func NewSendGridSender(apiKey, fromEmail string) *SendGridSender {
	return &SendGridSender{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		baseURL:   "https://api.sendgrid.com/v3",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SendGridSender) Send(ctx context.Context, target, subject, body string) error {
	if s.apiKey == "" || s.fromEmail == "" {
		logger.Info("email send simulated", "to", target, "message_id", "sim-"+uuid.NewString())
		return nil
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": target}}},
		},
		"from":    map[string]string{"email": s.fromEmail},
		"subject": subject,
		"content": []map[string]string{{"type": "text/plain", "value": body}},
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/mail/send", bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid error %d: %s", resp.StatusCode, string(msg))
	}
	logger.Debug("email sent", "to", target)
	return nil
}

// TwilioSender delivers WhatsApp messages through the Twilio Messages
// API. Without credentials the send is simulated.
type TwilioSender struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	client     *http.Client
}

func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    "https://api.twilio.com/2010-04-01",
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *TwilioSender) Send(ctx context.Context, target, _, body string) error {
	if s.accountSID == "" || s.authToken == "" || s.fromNumber == "" {
		logger.Info("whatsapp send simulated", "whatsapp", target, "message_id", "sim-"+uuid.NewString())
		return nil
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+s.fromNumber)
	form.Set("To", "whatsapp:"+target)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("twilio error %d: %s", resp.StatusCode, string(msg))
	}
	logger.Debug("whatsapp sent", "whatsapp", target)
	return nil
}
