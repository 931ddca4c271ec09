package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"railnav/internal/model"
)

// Memory is a simple in-memory store used when no database URL is set.
type Memory struct {
	mu         sync.Mutex
	networks   map[string]model.NetworkIn // id -> definition
	netMeta    map[string]model.NetworkOut
	netIDs     []string // insertion order
	solves     map[string]model.SolveOut
	solveIDs   []string
	subs       []model.Subscription
	deliveries map[string]*memDelivery
	delIDs     []string
}

func NewMemory() *Memory {
	return &Memory{
		networks:   map[string]model.NetworkIn{},
		netMeta:    map[string]model.NetworkOut{},
		solves:     map[string]model.SolveOut{},
		deliveries: map[string]*memDelivery{},
	}
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
	WebhookDelivery
	NextAttemptAt time.Time
	LastError     string
	ResponseCode  int
	LatencyMs     int
	DeliveredAt   *time.Time
}

func (m *Memory) CreateNetwork(ctx context.Context, in model.NetworkIn) (model.NetworkOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	out := model.NetworkOut{
		ID:        id,
		Name:      in.Name,
		Yards:     len(in.Yards),
		Edges:     len(in.Edges),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.networks[id] = in
	m.netMeta[id] = out
	m.netIDs = append(m.netIDs, id)
	return out, nil
}

func (m *Memory) GetNetwork(ctx context.Context, id string) (model.NetworkIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.networks[id]
	if !ok {
		return model.NetworkIn{}, ErrNotFound
	}
	return in, nil
}

func (m *Memory) ListNetworks(ctx context.Context, cursor string, limit int) ([]model.NetworkOut, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := cursorIndex(m.netIDs, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.NetworkOut{}
	var last string
	for i := start; i < len(m.netIDs) && len(out) < limit; i++ {
		out = append(out, m.netMeta[m.netIDs[i]])
		last = m.netIDs[i]
	}
	next := ""
	if len(out) == limit && start+len(out) < len(m.netIDs) {
		next = last
	}
	return out, next, nil
}

func (m *Memory) DeleteNetwork(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.networks[id]; !ok {
		return ErrNotFound
	}
	delete(m.networks, id)
	delete(m.netMeta, id)
	out := make([]string, 0, len(m.netIDs))
	for _, v := range m.netIDs {
		if v != id {
			out = append(out, v)
		}
	}
	m.netIDs = out
	return nil
}

func (m *Memory) SaveSolve(ctx context.Context, s model.SolveOut) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.solves[s.ID]; !ok {
		m.solveIDs = append(m.solveIDs, s.ID)
	}
	m.solves[s.ID] = s
	return nil
}

func (m *Memory) GetSolve(ctx context.Context, id string) (model.SolveOut, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.solves[id]
	if !ok {
		return model.SolveOut{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSolves(ctx context.Context, networkID, cursor string, limit int) ([]model.SolveOut, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := cursorIndex(m.solveIDs, cursor)
	if limit <= 0 {
		limit = 100
	}
	out := []model.SolveOut{}
	var last string
	for i := start; i < len(m.solveIDs) && len(out) < limit; i++ {
		s := m.solves[m.solveIDs[i]]
		last = m.solveIDs[i]
		if networkID != "" && s.NetworkID != networkID {
			continue
		}
		out = append(out, s)
	}
	next := ""
	if len(out) == limit && start+limit < len(m.solveIDs) {
		next = last
	}
	return out, next, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Subscription{ID: uuid.New().String(), URL: req.URL, Events: req.Events, Secret: req.Secret}
	m.subs = append(m.subs, s)
	return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Subscription
	for _, s := range m.subs {
		for _, e := range s.Events {
			if e == eventType {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	start := 0
	if cursor != "" {
		for i := range m.subs {
			if m.subs[i].ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(m.subs) {
		end = len(m.subs)
	}
	items := append([]model.Subscription(nil), m.subs[start:end]...)
	next := ""
	if end < len(m.subs) {
		next = m.subs[end-1].ID
	}
	return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Subscription, 0, len(m.subs))
	for _, s := range m.subs {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.subs = out
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New().String()
	d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending"}, NextAttemptAt: time.Now()}
	m.deliveries[id] = d
	m.delIDs = append(m.delIDs, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.delIDs {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, d.WebhookDelivery)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return nil
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = "delivered"
		now := time.Now()
		d.DeliveredAt = &now
	} else {
		d.Status = "retry"
		d.LastError = lastError
		if nextAttemptAt != nil {
			d.NextAttemptAt = *nextAttemptAt
		} else {
			d.NextAttemptAt = time.Now().Add(1 * time.Minute)
		}
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d != nil {
		d.Status = "failed"
		d.LastError = lastError
		d.ResponseCode = responseCode
		d.LatencyMs = latencyMs
	}
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for _, id := range m.delIDs {
		d := m.deliveries[id]
		if d == nil {
			continue
		}
		if status == "" || d.Status == status {
			item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
			if !d.NextAttemptAt.IsZero() {
				item["nextAttemptAt"] = d.NextAttemptAt
			}
			if d.LastError != "" {
				item["lastError"] = d.LastError
			}
			out = append(out, item)
		}
	}
	return out, "", nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Status = "pending"
	d.NextAttemptAt = time.Now()
	return nil
}

func cursorIndex(ids []string, cursor string) int {
	if cursor == "" {
		return 0
	}
	for i, id := range ids {
		if id == cursor {
			return i + 1
		}
	}
	return 0
}
