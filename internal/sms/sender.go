package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Message struct {
	From string
	To   string
	Body string
}

// Sender delivers one SMS. Implementations must not retry; the caller
// decides what a failed send means.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// GatewaySender posts messages to an HTTP SMS gateway as JSON with a
// bearer token.
type GatewaySender struct {
	URL    string
	Token  string
	Client *http.Client
}

type gatewayPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Body string `json:"body"`
}

func (s *GatewaySender) Send(ctx context.Context, msg Message) error {
	if s.URL == "" {
		return fmt.Errorf("sms gateway url not configured")
	}

	body, err := json.Marshal(gatewayPayload{From: msg.From, To: msg.To, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms gateway: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogSender logs instead of sending. Used in dev when no gateway is
// configured; the code body is not logged.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("sms send (dev, not delivered)", "to", msg.To)
	return nil
}
