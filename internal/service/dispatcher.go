package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"notification-engine/internal/model"
	"notification-engine/pkg/logger"
	"notification-engine/pkg/metrics"
	"notification-engine/pkg/webpush"
)

// PushMessage is the one payload fanned out to every endpoint of a user.
// The Data map travels to the service worker untouched.
type PushMessage struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	URL   string                 `json:"url"`
	Tag   string                 `json:"tag,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

// DeliveryOutcome classifies one delivery attempt to one endpoint.
type DeliveryOutcome string

const (
	OutcomeDelivered      DeliveryOutcome = "delivered"
	OutcomeTransientError DeliveryOutcome = "transient_error"
	OutcomePermanentError DeliveryOutcome = "permanent_error"
	OutcomeConfigMismatch DeliveryOutcome = "config_mismatch"
	OutcomeSkipped        DeliveryOutcome = "skipped"
)

// SubscriptionStore is the dispatcher's view of the endpoint registry.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error)
	Evict(ctx context.Context, id int64) error
}

// PushSender transmits one message to one endpoint. A nil sender means
// push delivery is not configured for this process.
type PushSender interface {
	Send(ctx context.Context, sub webpush.Subscription, message []byte, opts webpush.Options) error
}

// PushDispatcher fans one message out to all of a user's endpoints,
// classifies each outcome and evicts endpoints the push service reports
// as permanently gone. Dispatch never returns an error: every failure is
// logged, counted and contained here.
type PushDispatcher struct {
	store      SubscriptionStore
	sender     PushSender
	ttl        int
	logger     *zap.Logger
	configWarn sync.Once
}

func NewPushDispatcher(store SubscriptionStore, sender PushSender, ttlSeconds int, logger *zap.Logger) *PushDispatcher {
	if ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	return &PushDispatcher{
		store:  store,
		sender: sender,
		ttl:    ttlSeconds,
		logger: logger,
	}
}

// Dispatch sends msg to every subscription the user has. One endpoint's
// failure never prevents attempts on the remaining endpoints.
func (d *PushDispatcher) Dispatch(ctx context.Context, userID int64, msg PushMessage) {
	log := logger.WithTrace(ctx, d.logger)

	if d.sender == nil {
		d.configWarn.Do(func() {
			d.logger.Warn("Push delivery not configured, all sends will be skipped; set VAPID keys to enable")
		})
		metrics.IncrementPushDeliveries(string(OutcomeSkipped))
		return
	}

	subs, err := d.store.ListByUser(ctx, userID)
	if err != nil {
		log.Warn("Failed to list push subscriptions",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if len(subs) == 0 {
		return
	}

	if msg.URL == "" {
		msg.URL = DefaultPushURL
	}

	// One serialized message per call; endpoints get identical bytes.
	body, err := json.Marshal(msg)
	if err != nil {
		log.Error("Failed to marshal push message", zap.Error(err))
		return
	}

	start := time.Now()
	opts := webpush.Options{TTL: d.ttl, Urgency: "high"}

	for _, sub := range subs {
		outcome := d.deliverOne(ctx, log, sub, body, opts)
		metrics.IncrementPushDeliveries(string(outcome))
	}
	metrics.RecordPushDispatchDuration(time.Since(start))
}

func (d *PushDispatcher) deliverOne(ctx context.Context, log *zap.Logger, sub model.PushSubscription, body []byte, opts webpush.Options) DeliveryOutcome {
	err := d.sender.Send(ctx, webpush.Subscription{
		Endpoint: sub.Endpoint,
		P256dh:   sub.P256dh,
		Auth:     sub.Auth,
	}, body, opts)
	if err == nil {
		return OutcomeDelivered
	}

	var statusErr *webpush.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound, http.StatusGone:
			// The push service says this endpoint is dead for good.
			d.evict(ctx, log, sub, statusErr.StatusCode)
			return OutcomePermanentError
		case http.StatusUnauthorized, http.StatusForbidden:
			// Deployment key mismatch, not a per-user condition. The
			// endpoint may become valid again once keys are reconciled,
			// so it stays registered.
			log.Warn("Push rejected, VAPID key mismatch",
				zap.Int64("subscription_id", sub.ID),
				zap.Int64("user_id", sub.UserID),
				zap.Int("status", statusErr.StatusCode),
			)
			return OutcomeConfigMismatch
		}
	}

	log.Warn("Push delivery failed",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.Error(err),
	)
	return OutcomeTransientError
}

func (d *PushDispatcher) evict(ctx context.Context, log *zap.Logger, sub model.PushSubscription, status int) {
	if err := d.store.Evict(ctx, sub.ID); err != nil {
		log.Warn("Failed to evict stale subscription",
			zap.Int64("subscription_id", sub.ID),
			zap.Error(err),
		)
		return
	}
	metrics.IncrementPushSubscriptionsEvicted()
	log.Info("Evicted stale push subscription",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.Int("status", status),
	)
}
