package mqhandler

import (
	"context"

	"notification-engine/internal/service"
)

type fakeNotifier struct {
	reqs  []service.NotifyRequest
	panic bool
}

func (f *fakeNotifier) Notify(ctx context.Context, req service.NotifyRequest) {
	if f.panic {
		panic("notifier blew up")
	}
	f.reqs = append(f.reqs, req)
}

type subscribeCall struct {
	userID   int64
	endpoint string
	p256dh   string
	auth     string
}

type fakeSubscriptionManager struct {
	subscribeErr   error
	unsubscribeErr error
	subscribes     []subscribeCall
	unsubscribes   []string
}

func (f *fakeSubscriptionManager) Subscribe(ctx context.Context, userID int64, endpoint, p256dh, auth string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.subscribes = append(f.subscribes, subscribeCall{userID, endpoint, p256dh, auth})
	return nil
}

func (f *fakeSubscriptionManager) Unsubscribe(ctx context.Context, userID int64, endpoint string) error {
	if f.unsubscribeErr != nil {
		return f.unsubscribeErr
	}
	f.unsubscribes = append(f.unsubscribes, endpoint)
	return nil
}

// fakeDeduper reports duplicate for every event ID in seen.
type fakeDeduper struct {
	seen  map[string]bool
	calls int
}

func (f *fakeDeduper) AcquireOnce(ctx context.Context, handler string, eventID string) bool {
	f.calls++
	return !f.seen[eventID]
}

// fakeRetryTracker returns a fixed attempt count.
type fakeRetryTracker struct {
	count  int64
	resets []string
}

func (f *fakeRetryTracker) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	return f.count, nil
}

func (f *fakeRetryTracker) Reset(ctx context.Context, key string) error {
	f.resets = append(f.resets, key)
	return nil
}

type dlqCall struct {
	routingKey string
	payload    []byte
	cause      string
}

type fakeDLQ struct {
	calls []dlqCall
}

func (f *fakeDLQ) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	f.calls = append(f.calls, dlqCall{routingKey, payload, originalError})
	return nil
}
