package store

import (
	"context"
	"errors"
	"time"

	"railnav/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Networks
	CreateNetwork(ctx context.Context, in model.NetworkIn) (model.NetworkOut, error)
	GetNetwork(ctx context.Context, id string) (model.NetworkIn, error)
	ListNetworks(ctx context.Context, cursor string, limit int) ([]model.NetworkOut, string, error)
	DeleteNetwork(ctx context.Context, id string) error

	// Solves
	SaveSolve(ctx context.Context, s model.SolveOut) error
	GetSolve(ctx context.Context, id string) (model.SolveOut, error)
	ListSolves(ctx context.Context, networkID, cursor string, limit int) ([]model.SolveOut, string, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error)
	ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error)
	RetryWebhookDelivery(ctx context.Context, id string) error
}

var ErrNotFound = errors.New("not found")
