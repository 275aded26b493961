// Package whatsapp implements the chat-message gateway client. The gateway is
// a self-hosted WhatsApp bridge that accepts a phone number and plain text.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"
	"storefront_backend/platform/phone"

	"golang.org/x/time/rate"
)

// Client sends plain-text messages through the gateway. It satisfies
// notifier.ChatSender.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	normalizer *phone.Normalizer
	limiter    *rate.Limiter
	log        *logger.Logger
}

type gatewayRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewClient creates a gateway client, or nil when no gateway URL is
// configured. A nil client disables the chat channel.
// The limiter keeps bursts of lifecycle events from tripping the gateway's
// own flood protection.
func NewClient(cfg config.WhatsAppConfig, normalizer *phone.Normalizer, log *logger.Logger) *Client {
	if !cfg.IsWhatsAppEnabled() {
		return nil
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:     cfg.GetWhatsAppKey(),
		http:       &http.Client{Timeout: 10 * time.Second},
		normalizer: normalizer,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 3),
		log:        log,
	}
}

// Send normalizes the destination number and posts one message.
func (c *Client) Send(ctx context.Context, phoneNumber, message string) error {
	normalized := c.normalizer.Normalize(phoneNumber)
	if normalized == "" {
		return fmt.Errorf("phone number %q did not normalize to a deliverable number", phoneNumber)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(gatewayRequest{Phone: normalized, Message: message})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("whatsapp message sent", "phone", normalized)
	return nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
