// Package notify sends customer-facing SMS notifications through an HTTP
// gateway. Delivery is best effort; order processing never blocks on it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Notifier delivers a text message to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// SMSClient posts messages to an SMS gateway.
type SMSClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewSMSClient creates an SMS gateway client. An empty baseURL disables
// sending; Send becomes a logged no-op.
func NewSMSClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *SMSClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SMSClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With().Str("component", "sms").Logger(),
	}
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// Send posts one message to the gateway.
func (c *SMSClient) Send(ctx context.Context, phone, message string) error {
	if c.baseURL == "" {
		c.logger.Debug().Str("phone", phone).Msg("sms disabled, message dropped")
		return nil
	}

	body, err := json.Marshal(sendRequest{Phone: phone, Message: message})
	if err != nil {
		return fmt.Errorf("encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected sms gateway status: %d", resp.StatusCode)
	}
	return nil
}

// SendAsync fires the message off without blocking the caller. Failures are
// logged and dropped.
func (c *SMSClient) SendAsync(phone, message string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Send(ctx, phone, message); err != nil {
			c.logger.Error().Err(err).Str("phone", phone).Msg("sms send failed")
		}
	}()
}

// Message builders shared by handlers.

func OrderCreated(orderNumber string, totalCents int64) string {
	return fmt.Sprintf("Order %s received. Total due: %d.%02d. We will confirm shortly.",
		orderNumber, totalCents/100, totalCents%100)
}

func OrderReady(orderNumber string) string {
	return fmt.Sprintf("Order %s is ready for pickup.", orderNumber)
}

func OrderCancelled(orderNumber, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Order %s has been cancelled.", orderNumber)
	}
	return fmt.Sprintf("Order %s has been cancelled: %s", orderNumber, reason)
}

func PaymentConfirmed(orderNumber string) string {
	return fmt.Sprintf("Payment for order %s is confirmed. Processing has started.", orderNumber)
}
