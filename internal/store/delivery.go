package store

// WebhookDelivery is one pending outbound event delivery as handed to the
// worker. Scheduling state stays inside the store.
type WebhookDelivery struct {
	ID             string
	SubscriptionID string
	EventType      string
	URL            string
	Secret         string
	Payload        []byte
	Status         string
	Attempts       int
}
