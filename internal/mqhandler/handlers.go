// Package mqhandler binds queue consumers to the notification services.
// Handlers return nil to ack and an error to requeue; poison messages go
// to the dead letter exchange instead of cycling forever.
package mqhandler

import (
	"context"

	"notification-engine/internal/service"
)

const defaultMaxRetries = 5

// Notifier runs one notification across both channels.
type Notifier interface {
	Notify(ctx context.Context, req service.NotifyRequest)
}

// SubscriptionManager applies subscription lifecycle events.
type SubscriptionManager interface {
	Subscribe(ctx context.Context, userID int64, endpoint, p256dh, auth string) error
	Unsubscribe(ctx context.Context, userID int64, endpoint string) error
}

// EventDeduper suppresses redeliveries of an already consumed event.
type EventDeduper interface {
	AcquireOnce(ctx context.Context, handler string, eventID string) bool
}

// RetryTracker counts delivery attempts per event across requeues.
type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher parks a message that will never succeed.
type DeadLetterPublisher interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}
