package store

import (
	"context"
	"testing"
	"time"

	"railnav/internal/model"
)

func TestMemoryNetworkLifecycle(t *testing.T) {
	m := NewMemory()
	in := model.NetworkIn{
		Name:  "corridor",
		Yards: []model.YardIn{{ID: "A", Status: "active"}, {ID: "B", Status: "active"}},
		Edges: []model.EdgeIn{{From: "A", To: "B", Capacity: 100, BaseCost: 5}},
	}
	out, err := m.CreateNetwork(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateNetwork: %v", err)
	}
	if out.ID == "" || out.Yards != 2 || out.Edges != 1 {
		t.Fatalf("unexpected catalog entry: %+v", out)
	}
	got, err := m.GetNetwork(context.Background(), out.ID)
	if err != nil {
		t.Fatalf("GetNetwork: %v", err)
	}
	if got.Name != "corridor" || len(got.Edges) != 1 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	items, next, err := m.ListNetworks(context.Background(), "", 10)
	if err != nil || len(items) != 1 || next != "" {
		t.Fatalf("ListNetworks: %v items=%d next=%q", err, len(items), next)
	}
	if err := m.DeleteNetwork(context.Background(), out.ID); err != nil {
		t.Fatalf("DeleteNetwork: %v", err)
	}
	if _, err := m.GetNetwork(context.Background(), out.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemorySolvesFilterByNetwork(t *testing.T) {
	m := NewMemory()
	for i, nid := range []string{"n1", "n1", "n2"} {
		s := model.SolveOut{ID: string(rune('a' + i)), NetworkID: nid, Status: "optimal"}
		if err := m.SaveSolve(context.Background(), s); err != nil {
			t.Fatalf("SaveSolve: %v", err)
		}
	}
	items, _, err := m.ListSolves(context.Background(), "n1", "", 10)
	if err != nil {
		t.Fatalf("ListSolves: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 solves for n1, got %d", len(items))
	}
	if _, err := m.GetSolve(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	m := NewMemory()
	sub, err := m.CreateSubscription(context.Background(), model.SubscriptionRequest{URL: "http://example/hook", Events: []string{"solve.completed"}, Secret: "s3cret"})
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	subs, err := m.GetSubscriptionsForEvent(context.Background(), "solve.completed")
	if err != nil || len(subs) != 1 {
		t.Fatalf("GetSubscriptionsForEvent: %v len=%d", err, len(subs))
	}
	if subs, _ := m.GetSubscriptionsForEvent(context.Background(), "solve.failed"); len(subs) != 0 {
		t.Fatalf("event filter leaked: %d", len(subs))
	}

	id, err := m.EnqueueWebhook(context.Background(), sub.ID, "solve.completed", sub.URL, sub.Secret, []byte(`{"id":"s1"}`))
	if err != nil {
		t.Fatalf("EnqueueWebhook: %v", err)
	}
	due, err := m.FetchDueWebhookDeliveries(context.Background(), 10)
	if err != nil || len(due) != 1 || due[0].ID != id {
		t.Fatalf("FetchDue: %v len=%d", err, len(due))
	}

	// failure schedules a retry in the future
	next := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(context.Background(), id, false, &next, "502", 502, 12); err != nil {
		t.Fatalf("MarkWebhookDelivery: %v", err)
	}
	if due, _ := m.FetchDueWebhookDeliveries(context.Background(), 10); len(due) != 0 {
		t.Fatalf("retry should not be due yet, got %d", len(due))
	}
	if err := m.RetryWebhookDelivery(context.Background(), id); err != nil {
		t.Fatalf("RetryWebhookDelivery: %v", err)
	}
	due, _ = m.FetchDueWebhookDeliveries(context.Background(), 10)
	if len(due) != 1 {
		t.Fatalf("manual retry should be due, got %d", len(due))
	}
	if err := m.MarkWebhookDelivery(context.Background(), id, true, nil, "", 200, 8); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	items, _, err := m.ListWebhookDeliveries(context.Background(), "delivered", "", 10)
	if err != nil || len(items) != 1 {
		t.Fatalf("ListWebhookDeliveries: %v len=%d", err, len(items))
	}
}
