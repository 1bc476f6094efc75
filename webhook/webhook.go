package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types posted to webhook endpoints.
const (
	EventCrawlCompleted = "crawl.completed"
	EventCrawlFailed    = "crawl.failed"
	EventBatchCompleted = "batch.completed"
)

// retrySchedule spaces the delivery attempts of DeliverAsync. The first
// entry fires immediately.
var retrySchedule = []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second}

// Event is the JSON body posted to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	JobID     string      `json:"job_id"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier posts job events to caller-supplied webhook URLs, optionally
// signing each body so receivers can verify the source.
type Notifier struct {
	client  *http.Client
	timeout time.Duration
}

// NewNotifier builds a Notifier with the given per-attempt timeout. Zero or
// negative means 10 seconds.
func NewNotifier(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Deliver posts event to url once. With a non-empty secret the body is
// signed with HMAC-SHA256, sent as "X-PageMiner-Signature: sha256=<hex>".
// Any status of 400 or above counts as a failed delivery.
func (n *Notifier) Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PageMiner-Webhook/1.0")
	if secret != "" {
		req.Header.Set("X-PageMiner-Signature", signature(body, secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint answered status %d", resp.StatusCode)
	}
	return nil
}

// signature computes the HMAC header value for body.
func signature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// DeliverAsync posts event in the background, walking the retry schedule
// before giving up.
func (n *Notifier) DeliverAsync(url, secret string, event *Event) {
	go func() {
		for attempt, delay := range retrySchedule {
			time.Sleep(delay)

			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			err := n.Deliver(ctx, url, secret, event)
			cancel()

			if err == nil {
				slog.Info("webhook delivered",
					"event", event.Type, "job_id", event.JobID,
					"url", url, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed",
				"event", event.Type, "job_id", event.JobID,
				"url", url, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery abandoned",
			"event", event.Type, "job_id", event.JobID, "url", url)
	}()
}
