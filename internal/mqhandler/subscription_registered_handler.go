package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "notification-engine/contracts/mq"
	"notification-engine/pkg/logger"
	"notification-engine/pkg/util"
)

// SubscriptionRegisteredHandler consumes push.subscription.registered
// events. The upsert is idempotent, so delivery is at least once:
// transient store errors requeue up to maxRetries, then the event is
// dead lettered.
type SubscriptionRegisteredHandler struct {
	subs         SubscriptionManager
	retryCounter RetryTracker
	dlq          DeadLetterPublisher
	logger       *zap.Logger
	maxRetries   int64
}

func NewSubscriptionRegisteredHandler(subs SubscriptionManager, retryCounter RetryTracker, dlq DeadLetterPublisher, maxRetries int64, logger *zap.Logger) *SubscriptionRegisteredHandler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &SubscriptionRegisteredHandler{
		subs:         subs,
		retryCounter: retryCounter,
		dlq:          dlq,
		logger:       logger,
		maxRetries:   maxRetries,
	}
}

func (h *SubscriptionRegisteredHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload mqcontracts.SubscriptionRegisteredPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid SubscriptionRegisteredPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		h.deadLetter(ctx, raw, "", err.Error())
		return nil
	}

	log := logger.WithTrace(ctx, h.logger)

	retryKey := util.FormatRetryKey("sub.register", eventKey(payload.EventID, payload.Endpoint))
	retryCount, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	if err := h.subs.Subscribe(ctx, payload.UserID, payload.Endpoint, payload.P256dh, payload.Auth); err != nil {
		return h.handleError(ctx, log, raw, retryKey, retryCount, err)
	}

	h.retryCounter.Reset(ctx, retryKey)
	log.Info("Processed subscription registration",
		zap.Int64("user_id", payload.UserID),
	)
	return nil
}

func (h *SubscriptionRegisteredHandler) handleError(ctx context.Context, log *zap.Logger, raw json.RawMessage, retryKey string, retryCount int64, cause error) error {
	isRetryable, errType := util.IsRetryableError(cause)
	log.Warn("Subscription registration failed",
		zap.String("error_type", errType),
		zap.Bool("retryable", isRetryable),
		zap.Int64("retry", retryCount),
		zap.Error(cause),
	)

	if util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
		return cause // nack, requeue
	}

	h.deadLetter(ctx, raw, retryKey, cause.Error())
	return nil
}

func (h *SubscriptionRegisteredHandler) deadLetter(ctx context.Context, raw json.RawMessage, retryKey, cause string) {
	if retryKey != "" {
		h.retryCounter.Reset(ctx, retryKey)
	}
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeySubscriptionRegistered, raw, cause); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

// eventKey keys retry state by event when producers supply an ID, by
// endpoint otherwise.
func eventKey(eventID, fallback string) string {
	if eventID != "" {
		return eventID
	}
	return fallback
}
