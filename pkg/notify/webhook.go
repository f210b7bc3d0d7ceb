// Package notify posts pipeline events to a configured webhook so operators
// can watch extractions and recurring anomalies without tailing logs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// requestTimeout bounds a single webhook delivery.
const requestTimeout = 10 * time.Second

// Event types the pipeline emits.
const (
	EventExtractionComplete = "extraction_complete"
	EventRecurringAnomaly   = "recurring_anomaly"
	EventRescanComplete     = "rescan_complete"
)

// Event is one webhook payload.
type Event struct {
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Webhook delivers events to a single HTTP endpoint.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a notifier for the given endpoint.
func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Send delivers one event. Delivery failures are returned, not retried; the
// caller decides whether a missed notification matters.
func (w *Webhook) Send(ctx context.Context, event Event) error {
	if w.url == "" {
		return errors.New("webhook url is required")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering webhook event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		w.logger.Warn("webhook delivery rejected",
			slog.String("type", event.Type),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Debug("webhook event delivered", slog.String("type", event.Type))
	return nil
}

// SendBatch delivers events one by one and reports the first failure after
// attempting all of them.
func (w *Webhook) SendBatch(ctx context.Context, events []Event) error {
	var firstErr error
	for _, event := range events {
		if err := w.Send(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
