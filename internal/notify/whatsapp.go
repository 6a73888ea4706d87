package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pixmonitor/internal/config"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// WhatsAppSender delivers messages through the Twilio WhatsApp gateway.
type WhatsAppSender struct {
	accountSID string
	authToken  string
	from       string
	to         string
	apiBase    string
	client     *http.Client
}

var _ Sender = (*WhatsAppSender)(nil)

func NewWhatsAppSender(cfg config.TwilioConfig) *WhatsAppSender {
	return &WhatsAppSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.From,
		to:         cfg.To,
		apiBase:    twilioAPIBase,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Send posts the message to the Twilio Messages endpoint and returns the
// message SID.
func (s *WhatsAppSender) Send(ctx context.Context, msg Message) (string, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.apiBase, s.accountSID)

	form := url.Values{}
	form.Set("From", s.from)
	form.Set("To", s.to)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("twilio error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var created struct {
		SID string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}

	return created.SID, nil
}
