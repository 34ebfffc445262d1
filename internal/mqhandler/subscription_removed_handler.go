package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "notification-engine/contracts/mq"
	"notification-engine/pkg/logger"
	"notification-engine/pkg/util"
)

// SubscriptionRemovedHandler consumes push.subscription.removed events.
// Removal only matches endpoints the user owns, so replaying a delivery
// converges on the same state.
type SubscriptionRemovedHandler struct {
	subs         SubscriptionManager
	retryCounter RetryTracker
	dlq          DeadLetterPublisher
	logger       *zap.Logger
	maxRetries   int64
}

func NewSubscriptionRemovedHandler(subs SubscriptionManager, retryCounter RetryTracker, dlq DeadLetterPublisher, maxRetries int64, logger *zap.Logger) *SubscriptionRemovedHandler {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &SubscriptionRemovedHandler{
		subs:         subs,
		retryCounter: retryCounter,
		dlq:          dlq,
		logger:       logger,
		maxRetries:   maxRetries,
	}
}

func (h *SubscriptionRemovedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload mqcontracts.SubscriptionRemovedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid SubscriptionRemovedPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		h.deadLetter(ctx, raw, "", err.Error())
		return nil
	}

	log := logger.WithTrace(ctx, h.logger)

	retryKey := util.FormatRetryKey("sub.remove", eventKey(payload.EventID, payload.Endpoint))
	retryCount, _ := h.retryCounter.IncrementAndGet(ctx, retryKey)

	if err := h.subs.Unsubscribe(ctx, payload.UserID, payload.Endpoint); err != nil {
		isRetryable, errType := util.IsRetryableError(err)
		log.Warn("Subscription removal failed",
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Int64("retry", retryCount),
			zap.Error(err),
		)

		if util.ShouldRetry(retryCount, h.maxRetries, isRetryable) {
			return err // nack, requeue
		}

		h.deadLetter(ctx, raw, retryKey, err.Error())
		return nil
	}

	h.retryCounter.Reset(ctx, retryKey)
	log.Info("Processed subscription removal",
		zap.Int64("user_id", payload.UserID),
	)
	return nil
}

func (h *SubscriptionRemovedHandler) deadLetter(ctx context.Context, raw json.RawMessage, retryKey, cause string) {
	if retryKey != "" {
		h.retryCounter.Reset(ctx, retryKey)
	}
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeySubscriptionRemoved, raw, cause); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}
