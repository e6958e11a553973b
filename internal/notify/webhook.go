package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WebhookNotifier POSTs events as JSON from a background worker.
// Events are dropped, with a warning, when the queue is full.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *zap.Logger

	// mu guards queue against sends after Close.
	mu        sync.RWMutex
	closed    bool
	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebhookNotifier starts a worker that delivers to url.
func NewWebhookNotifier(url string, queueSize int, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		queue:  make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify implements Notifier. Events arriving after Close are dropped.
func (n *WebhookNotifier) Notify(_ context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Debug("webhook closed, dropping event", zap.String("kind", string(ev.Kind)), zap.String("mint", ev.Mint))
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.logger.Warn("webhook queue full, dropping event", zap.String("kind", string(ev.Kind)), zap.String("mint", ev.Mint))
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (n *WebhookNotifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})
	<-n.done
}

func (n *WebhookNotifier) run() {
	defer close(n.done)
	for ev := range n.queue {
		if err := n.post(ev); err != nil {
			n.logger.Warn("webhook delivery failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}
}

func (n *WebhookNotifier) post(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
