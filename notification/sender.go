package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"csatguardian/models"
)

// Sender delivers an emitted alert to its recipient. Delivery failures are
// logged by callers and never roll back the alert store write.
type Sender interface {
	Send(ctx context.Context, alert *models.Alert, c *models.Case, recipient *models.Engineer) error
}

// getShadowWebhook returns the only allowed destination when
// WEBHOOK_MODE=shadow. All alert cards go there regardless of recipient.
func getShadowWebhook() string {
	if os.Getenv("WEBHOOK_MODE") != "shadow" {
		return ""
	}
	return os.Getenv("WEBHOOK_SHADOW_URL")
}

// WebhookSender posts alert cards to a Teams-style incoming webhook. The
// recipient's personal webhook wins over the team default; in shadow mode
// everything is forced to the shadow URL. With no URL at all the send is a
// no-op (pilot without a real channel).
type WebhookSender struct {
	defaultURL string
	shadowURL  string
	client     *http.Client
}

// NewWebhookSender creates a webhook sender (reads TEAMS_WEBHOOK_URL,
// WEBHOOK_MODE, WEBHOOK_SHADOW_URL from env).
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		defaultURL: os.Getenv("TEAMS_WEBHOOK_URL"),
		shadowURL:  getShadowWebhook(),
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// messageCard is the legacy Office connector card format
type messageCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	Summary    string `json:"summary"`
	ThemeColor string `json:"themeColor"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

func themeColor(alertType models.AlertType) string {
	switch alertType {
	case models.AlertSLABreach, models.AlertEscalationDetected:
		return "CC0000"
	case models.AlertSentimentDecline:
		return "E68A00"
	default:
		return "0076D7"
	}
}

// Send posts one alert card. Recipient resolution order: shadow URL,
// recipient's personal webhook, team default.
func (s *WebhookSender) Send(ctx context.Context, alert *models.Alert, c *models.Case, recipient *models.Engineer) error {
	url := s.shadowURL
	if url == "" && recipient != nil && recipient.WebhookURL.Valid {
		url = recipient.WebhookURL.String
	}
	if url == "" {
		url = s.defaultURL
	}
	if url == "" {
		return nil
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		Summary:    fmt.Sprintf("CSAT alert: %s", alert.AlertType),
		ThemeColor: themeColor(alert.AlertType),
		Title:      fmt.Sprintf("[%s] %s - %s", alert.AlertType, c.CaseNumber, c.Title),
		Text:       fmt.Sprintf("%s\n\nAlert ref: %s", alert.Message, alert.AlertRef),
	}

	body, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("failed to marshal alert card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook post rejected: status=%d body=%s", resp.StatusCode, string(b))
	}

	return nil
}
