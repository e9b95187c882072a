// Package push provides the push-notification adapter.
// Clean Architecture: Adapter implementing ports.PushSender.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPSender implements ports.PushSender by posting JSON messages to a
// push gateway.
type HTTPSender struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPSender creates a sender for the given gateway endpoint.
func NewHTTPSender(endpoint, apiKey string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// pushMessage is the gateway request body.
type pushMessage struct {
	To           string           `json:"to"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers one message to a device.
func (s *HTTPSender) Send(ctx context.Context, deviceToken, title, body string) error {
	jsonData, err := json.Marshal(pushMessage{
		To:           deviceToken,
		Notification: pushNotification{Title: title, Body: body},
	})
	if err != nil {
		return fmt.Errorf("marshaling push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "key="+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling push gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// LogSender is used when no gateway is configured. It only logs.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and never fails.
func (s *LogSender) Send(ctx context.Context, deviceToken, title, body string) error {
	s.logger.Debug("push disabled, message dropped",
		zap.String("title", title),
		zap.Int("token_len", len(deviceToken)))
	return nil
}
