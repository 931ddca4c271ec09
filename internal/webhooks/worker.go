package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"railnav/internal/metrics"
	"railnav/internal/store"
)

// Worker polls the store for due deliveries and posts them, with
// exponential backoff on failure. After MaxAttempts a delivery goes to the
// failed state and stops retrying.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Stop        chan struct{}
	MaxAttempts int
}

func NewWorker(s store.Store, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Worker{Store: s, HTTP: &http.Client{Timeout: 5 * time.Second}, Stop: make(chan struct{}), MaxAttempts: maxAttempts}
}

func (w *Worker) Start() {
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

func (w *Worker) processOnce() {
	fetchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	items, err := w.Store.FetchDueWebhookDeliveries(fetchCtx, 50)
	cancel()
	if err != nil || len(items) == 0 {
		return
	}
	for _, it := range items {
		w.deliver(it)
	}
}

// deliver posts one item and records the outcome. Each delivery gets its
// own deadline so a slow endpoint earlier in the batch cannot starve the
// rest.
func (w *Worker) deliver(it store.WebhookDelivery) {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	success := false
	next := time.Now().Add(nextBackoff(it.Attempts))
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", it.EventType)
	if it.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(it.Secret, it.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := int(time.Since(start).Milliseconds())
	code := 0
	if err == nil && resp != nil {
		code = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		if code >= 200 && code < 300 {
			success = true
		}
	}
	lastErr := ""
	if !success {
		if err != nil {
			lastErr = err.Error()
		} else {
			lastErr = "http " + strconv.Itoa(code)
		}
	}
	outcome := "delivered"
	if !success {
		outcome = "retry"
	}
	if !success && it.Attempts+1 >= w.MaxAttempts {
		outcome = "failed"
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, outcome).Inc()
		metrics.WebhookLatency.WithLabelValues(it.EventType, outcome).Observe(float64(latency))
		_ = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
		return
	}
	metrics.WebhookDeliveries.WithLabelValues(it.EventType, outcome).Inc()
	metrics.WebhookLatency.WithLabelValues(it.EventType, outcome).Observe(float64(latency))
	_ = w.Store.MarkWebhookDelivery(ctx, it.ID, success, &next, lastErr, code, latency)
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
