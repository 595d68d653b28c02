package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ErrWebhookQueueFull is returned by Webhook.Notify when the delivery
// queue is full and the notice was dropped.
var ErrWebhookQueueFull = errors.New("webhook: queue full")

// ErrWebhookClosed is returned by Webhook.Notify after Close.
var ErrWebhookClosed = errors.New("webhook: closed")

// Webhook POSTs notices as JSON to a URL with retry and exponential
// backoff. Notify only enqueues; a single worker delivers in order, so a
// slow or dead endpoint never holds up the caller.
type Webhook struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
	queueSize  int
	drain      time.Duration
	logger     *slog.Logger

	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// WebhookOption configures a Webhook sink.
type WebhookOption func(*Webhook)

// WithWebhookRetries sets the maximum number of retries. Default: 3.
func WithWebhookRetries(n int) WebhookOption {
	return func(w *Webhook) { w.maxRetries = n }
}

// WithWebhookBackoff sets the first retry delay; it doubles per attempt.
// Default: 1s.
func WithWebhookBackoff(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.backoff = d }
}

// WithWebhookQueue sets how many notices may wait for delivery before
// Notify starts dropping them. Default: 64.
func WithWebhookQueue(n int) WebhookOption {
	return func(w *Webhook) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithWebhookDrain bounds how long Close waits for queued notices.
// Default: 5s.
func WithWebhookDrain(d time.Duration) WebhookOption {
	return func(w *Webhook) { w.drain = d }
}

// WithWebhookLogger sets a custom logger.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWebhook creates a Webhook sink targeting the given URL and starts its
// delivery worker. Close stops it.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		queueSize:  64,
		drain:      5 * time.Second,
		logger:     slog.Default(),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.queue = make(chan []byte, w.queueSize)
	w.ctx, w.cancel = context.WithCancel(context.Background())
	go w.run()
	return w
}

// Notify enqueues n for delivery and returns immediately.
func (w *Webhook) Notify(_ context.Context, n Notice) error {
	body, err := json.Marshal(envelope{Type: "notice", Data: n})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWebhookClosed
	}
	select {
	case w.queue <- body:
		return nil
	default:
		w.logger.Warn("webhook: queue full, notice dropped", "op", n.Op)
		return ErrWebhookQueueFull
	}
}

func (w *Webhook) run() {
	defer close(w.done)
	for body := range w.queue {
		if err := w.deliver(w.ctx, body); err != nil {
			w.logger.Warn("webhook: deliver failed", "error", err)
		}
	}
}

func (w *Webhook) deliver(ctx context.Context, body []byte) error {
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(w.backoff << uint(attempt-1))
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("webhook: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			lastErr = err
			w.logger.Warn("webhook: request failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook: status %d", resp.StatusCode)
		w.logger.Warn("webhook: bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return fmt.Errorf("webhook: all retries exhausted: %w", lastErr)
}

// Close stops accepting notices and waits for the queue to drain. After
// the drain timeout, in-flight deliveries are cancelled and the rest are
// dropped.
func (w *Webhook) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	t := time.NewTimer(w.drain)
	defer t.Stop()
	select {
	case <-w.done:
	case <-t.C:
		w.logger.Warn("webhook: drain timed out", "pending", len(w.queue))
		w.cancel()
		<-w.done
	}
	w.cancel()
	return nil
}
