package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"threatwire/internal/domain"
	"threatwire/internal/ports"
)

// WebhookNotifier posts run summaries as JSON to a configured URL, for ops
// channels that ingest webhooks (Slack, Discord, internal collectors).
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier registers the target URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishRunSummary posts the run counters to the webhook.
func (n *WebhookNotifier) PublishRunSummary(ctx context.Context, result *domain.RunResult) error {
	if n.url == "" {
		return fmt.Errorf("webhook notifier misconfigured")
	}

	payload, err := json.Marshal(map[string]any{
		"runId":     result.RunID,
		"processed": result.Processed,
		"added":     result.Added,
		"skipped":   result.Skipped,
		"errors":    result.Errors,
		"startedAt": result.StartedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post run summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}

	return nil
}
