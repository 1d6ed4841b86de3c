package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookio/models"
	"bookio/utils"

	"go.uber.org/zap"
)

// Service defines methods for delivering booking notifications. Delivery is
// best-effort and at-most-once: a failed send is logged by the caller and
// never rolls back or re-opens the booking that produced it.
type Service interface {
	BookingConfirmed(ctx context.Context, rec models.BookingRecord) error
	SendReminder(ctx context.Context, p models.ReminderPayload) error
}

// LogNotificationService writes notifications to the application log. It is
// the default sink when no webhook is configured.
type LogNotificationService struct{}

func (s *LogNotificationService) BookingConfirmed(ctx context.Context, rec models.BookingRecord) error {
	utils.GetLogger().Info("booking confirmed",
		zap.String("bookingId", rec.ID),
		zap.String("conversationId", rec.ConversationID),
		zap.String("name", rec.Name),
		zap.String("email", rec.Email),
		zap.String("date", rec.Date),
		zap.String("time", rec.Time),
		zap.Time("completedAt", rec.CompletedAt),
	)
	return nil
}

func (s *LogNotificationService) SendReminder(ctx context.Context, p models.ReminderPayload) error {
	utils.GetLogger().Info("booking reminder",
		zap.String("bookingId", p.BookingID),
		zap.String("conversationId", p.ConversationID),
		zap.String("name", p.Name),
		zap.String("date", p.Date),
		zap.String("time", p.Time),
	)
	return nil
}

// Shared HTTP client for webhook deliveries.
var webhookHTTPClient = &http.Client{Timeout: 5 * time.Second}

// WebhookNotificationService POSTs notification events as JSON to a
// configured endpoint (e.g. an email relay or a messaging bridge).
type WebhookNotificationService struct {
	URL    string
	Client *http.Client
}

// NewWebhookNotificationService returns a sink posting to url.
func NewWebhookNotificationService(url string) *WebhookNotificationService {
	return &WebhookNotificationService{URL: url, Client: webhookHTTPClient}
}

type webhookEvent struct {
	Type     string                  `json:"type"`
	Booking  *models.BookingRecord   `json:"booking,omitempty"`
	Reminder *models.ReminderPayload `json:"reminder,omitempty"`
}

func (s *WebhookNotificationService) BookingConfirmed(ctx context.Context, rec models.BookingRecord) error {
	return s.post(ctx, webhookEvent{Type: "booking_confirmed", Booking: &rec})
}

func (s *WebhookNotificationService) SendReminder(ctx context.Context, p models.ReminderPayload) error {
	return s.post(ctx, webhookEvent{Type: "booking_reminder", Reminder: &p})
}

func (s *WebhookNotificationService) post(ctx context.Context, ev webhookEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
