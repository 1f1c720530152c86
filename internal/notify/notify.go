// Package notify delivers billing notifications to external automation: an
// HTTP hook, a message queue, or both.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
	"flacroncv-backend-go/pkg/messagequeue"
)

// ErrHookRejected is returned when the hook answers with a non-2xx status.
var ErrHookRejected = errors.New("notification hook rejected the request")

// WebhookNotifier POSTs each notification as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ core.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier. A nil client gets a 10s timeout client.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (w *WebhookNotifier) Notify(ctx context.Context, n models.BillingNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrHookRejected, resp.StatusCode)
	}
	return nil
}

// QueueNotifier publishes each notification as a JSON message.
type QueueNotifier struct {
	publisher messagequeue.Publisher
	queue     string
}

var _ core.Notifier = (*QueueNotifier)(nil)

// NewQueueNotifier creates a notifier publishing to queue.
func NewQueueNotifier(publisher messagequeue.Publisher, queue string) *QueueNotifier {
	return &QueueNotifier{publisher: publisher, queue: queue}
}

func (q *QueueNotifier) Notify(ctx context.Context, n models.BillingNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.publisher.Publish(ctx, q.queue, "application/json", body)
}

// Fanout delivers to every configured notifier and joins their errors.
type Fanout struct {
	targets []core.Notifier
	logger  *zap.Logger
}

var _ core.Notifier = (*Fanout)(nil)

// NewFanout skips nil targets. It returns nil when no target remains.
func NewFanout(logger *zap.Logger, targets ...core.Notifier) core.Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fanout{logger: logger}
	for _, t := range targets {
		if t != nil {
			f.targets = append(f.targets, t)
		}
	}
	if len(f.targets) == 0 {
		return nil
	}
	return f
}

func (f *Fanout) Notify(ctx context.Context, n models.BillingNotification) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		f.logger.Debug("Billing notification delivered",
			zap.String("userID", n.UserID), zap.String("type", n.Type), zap.Int("targets", len(f.targets)))
	}
	return errors.Join(errs...)
}
