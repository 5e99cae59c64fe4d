package notifier

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/worldline-go/klient"

	"github.com/boarsvc/boar/internal/metrics"
)

// WebhookSender POSTs signed event envelopes to subscriber URLs, grounded
// on the teacher's nodes/http-request.go (klient-backed, templated request
// construction) generalized to BOAR's fixed envelope/signature shape.
type WebhookSender struct {
	secret string
	client *klient.Client
}

// NewWebhookSender builds a sender. secret may be empty, in which case the
// signature header carries the literal "none" per spec.md §4.D.
func NewWebhookSender(secret string) (*WebhookSender, error) {
	client, err := klient.New(
		klient.WithDisableBaseURLCheck(true),
		klient.WithDisableEnvValues(true),
		klient.WithDisableRetry(true), // WebhookSender implements its own backoff loop
		klient.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, err
	}
	return &WebhookSender{secret: secret, client: client}, nil
}

// Send delivers the envelope to url, retrying up to 3 total attempts with
// exponential backoff: 1s before the second attempt, 2s before the third
// (spec.md §4.D). It returns nil only on a 2xx response;
// all other outcomes return the last error encountered.
func (s *WebhookSender) Send(ctx context.Context, url, eventType string, data any) error {
	envelope := NewEnvelope(eventType, "boar", data)

	body, err := envelope.CanonicalJSON()
	if err != nil {
		return fmt.Errorf("marshal webhook envelope: %w", err)
	}

	signature := s.sign(body)

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = s.attempt(ctx, url, eventType, signature, body)
		if lastErr == nil {
			metrics.WebhookAttemptsTotal.WithLabelValues(eventType, "success").Inc()
			return nil
		}
		metrics.WebhookAttemptsTotal.WithLabelValues(eventType, "failure").Inc()
		slog.Warn("webhook delivery attempt failed", "url", url, "event_type", eventType, "attempt", attempt+1, "error", lastErr)
	}

	return fmt.Errorf("webhook delivery to %s failed after 3 attempts: %w", url, lastErr)
}

func (s *WebhookSender) attempt(ctx context.Context, url, eventType, signature string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", signature)
	req.Header.Set("X-Event-Type", eventType)
	req.Header.Set("X-Timestamp", time.Now().UTC().Format(time.RFC3339))

	resp, err := s.client.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// sign computes X-Webhook-Signature: sha256=<hmac-hex>, or the literal
// "none" when no secret is configured (spec.md §4.D).
func (s *WebhookSender) sign(body []byte) string {
	if s.secret == "" {
		return "none"
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
