package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notification-engine/internal/model"
	"notification-engine/pkg/webpush"
)

type fakeSubscriptionStore struct {
	subs      []model.PushSubscription
	listErr   error
	evictErr  error
	evicted   []int64
	listCalls int
}

func (f *fakeSubscriptionStore) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.subs, nil
}

func (f *fakeSubscriptionStore) Evict(ctx context.Context, id int64) error {
	if f.evictErr != nil {
		return f.evictErr
	}
	f.evicted = append(f.evicted, id)
	return nil
}

// fakeSender returns the scripted error for an endpoint, nil otherwise.
type fakeSender struct {
	errs   map[string]error
	sent   []string
	bodies [][]byte
	opts   []webpush.Options
}

func (f *fakeSender) Send(ctx context.Context, sub webpush.Subscription, message []byte, opts webpush.Options) error {
	f.sent = append(f.sent, sub.Endpoint)
	f.bodies = append(f.bodies, message)
	f.opts = append(f.opts, opts)
	return f.errs[sub.Endpoint]
}

func threeSubscriptions() []model.PushSubscription {
	return []model.PushSubscription{
		{ID: 1, UserID: 42, Endpoint: "https://push.example/a", P256dh: "ka", Auth: "aa"},
		{ID: 2, UserID: 42, Endpoint: "https://push.example/b", P256dh: "kb", Auth: "ab"},
		{ID: 3, UserID: 42, Endpoint: "https://push.example/c", P256dh: "kc", Auth: "ac"},
	}
}

func TestDispatchFansOutToAllEndpoints(t *testing.T) {
	store := &fakeSubscriptionStore{subs: threeSubscriptions()}
	sender := &fakeSender{}
	d := NewPushDispatcher(store, sender, 600, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi", Body: "there", URL: "/m/1"})

	assert.Equal(t, []string{"https://push.example/a", "https://push.example/b", "https://push.example/c"}, sender.sent)
	assert.Empty(t, store.evicted)

	// Every endpoint receives the same serialized message.
	require.Len(t, sender.bodies, 3)
	assert.Equal(t, sender.bodies[0], sender.bodies[1])
	assert.Equal(t, sender.bodies[0], sender.bodies[2])

	for _, opts := range sender.opts {
		assert.Equal(t, 600, opts.TTL)
		assert.Equal(t, "high", opts.Urgency)
	}
}

func TestDispatchEvictsGoneEndpoints(t *testing.T) {
	for _, status := range []int{404, 410} {
		store := &fakeSubscriptionStore{subs: threeSubscriptions()}
		sender := &fakeSender{errs: map[string]error{
			"https://push.example/b": &webpush.StatusError{StatusCode: status},
		}}
		d := NewPushDispatcher(store, sender, 0, zap.NewNop())

		d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

		// Only the dead endpoint is evicted and the rest still get attempts.
		assert.Equal(t, []int64{2}, store.evicted, "status %d", status)
		assert.Len(t, sender.sent, 3, "status %d", status)
	}
}

func TestDispatchKeyMismatchKeepsSubscription(t *testing.T) {
	for _, status := range []int{401, 403} {
		store := &fakeSubscriptionStore{subs: threeSubscriptions()}
		sender := &fakeSender{errs: map[string]error{
			"https://push.example/a": &webpush.StatusError{StatusCode: status},
		}}
		d := NewPushDispatcher(store, sender, 0, zap.NewNop())

		d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

		assert.Empty(t, store.evicted, "status %d", status)
		assert.Len(t, sender.sent, 3, "status %d", status)
	}
}

func TestDispatchTransientFailuresKeepSubscription(t *testing.T) {
	store := &fakeSubscriptionStore{subs: threeSubscriptions()}
	sender := &fakeSender{errs: map[string]error{
		"https://push.example/a": &webpush.StatusError{StatusCode: 500},
		"https://push.example/b": errors.New("dial tcp: connection refused"),
	}}
	d := NewPushDispatcher(store, sender, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

	assert.Empty(t, store.evicted)
	assert.Len(t, sender.sent, 3)
}

func TestDispatchEvictFailureDoesNotStopFanOut(t *testing.T) {
	store := &fakeSubscriptionStore{subs: threeSubscriptions(), evictErr: errors.New("db down")}
	sender := &fakeSender{errs: map[string]error{
		"https://push.example/a": &webpush.StatusError{StatusCode: 410},
	}}
	d := NewPushDispatcher(store, sender, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

	assert.Empty(t, store.evicted)
	assert.Len(t, sender.sent, 3)
}

func TestDispatchUnconfiguredSenderSkipsStore(t *testing.T) {
	store := &fakeSubscriptionStore{subs: threeSubscriptions()}
	d := NewPushDispatcher(store, nil, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})
	d.Dispatch(context.Background(), 43, PushMessage{Title: "again"})

	assert.Zero(t, store.listCalls)
}

func TestDispatchNoSubscriptionsSendsNothing(t *testing.T) {
	store := &fakeSubscriptionStore{}
	sender := &fakeSender{}
	d := NewPushDispatcher(store, sender, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

	assert.Empty(t, sender.sent)
}

func TestDispatchListErrorIsContained(t *testing.T) {
	store := &fakeSubscriptionStore{listErr: errors.New("db down")}
	sender := &fakeSender{}
	d := NewPushDispatcher(store, sender, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

	assert.Empty(t, sender.sent)
}

func TestDispatchAppliesDefaultURL(t *testing.T) {
	store := &fakeSubscriptionStore{subs: threeSubscriptions()[:1]}
	sender := &fakeSender{}
	d := NewPushDispatcher(store, sender, 0, zap.NewNop())

	d.Dispatch(context.Background(), 42, PushMessage{Title: "hi"})

	require.Len(t, sender.bodies, 1)
	var got PushMessage
	require.NoError(t, json.Unmarshal(sender.bodies[0], &got))
	assert.Equal(t, DefaultPushURL, got.URL)
}
