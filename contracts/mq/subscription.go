package mq

// Routing keys on the events exchange.
const (
	RoutingKeySubscriptionRegistered = "push.subscription.registered"
	RoutingKeySubscriptionRemoved    = "push.subscription.removed"
)

// SubscriptionRegisteredPayload stores or reassigns a browser push endpoint.
type SubscriptionRegisteredPayload struct {
	EventID  string `json:"event_id"`
	UserID   int64  `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// SubscriptionRemovedPayload drops one endpoint for one user.
type SubscriptionRemovedPayload struct {
	EventID  string `json:"event_id"`
	UserID   int64  `json:"user_id"`
	Endpoint string `json:"endpoint"`
}
