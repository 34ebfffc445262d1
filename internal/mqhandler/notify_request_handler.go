package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "notification-engine/contracts/mq"
	"notification-engine/internal/service"
	"notification-engine/pkg/logger"
)

// NotifyRequestHandler consumes notify.request events. Delivery is at
// most once: the notifier already contains every downstream failure, and
// redelivering a half-processed event would notify the user twice.
type NotifyRequestHandler struct {
	notifier Notifier
	deduper  EventDeduper
	dlq      DeadLetterPublisher
	logger   *zap.Logger
}

func NewNotifyRequestHandler(notifier Notifier, deduper EventDeduper, dlq DeadLetterPublisher, logger *zap.Logger) *NotifyRequestHandler {
	return &NotifyRequestHandler{
		notifier: notifier,
		deduper:  deduper,
		dlq:      dlq,
		logger:   logger,
	}
}

func (h *NotifyRequestHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	defer h.recoverPanic()

	var payload mqcontracts.NotifyRequestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid NotifyRequestPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		h.deadLetter(raw, err.Error())
		return nil
	}

	log := logger.WithTrace(ctx, h.logger)

	if payload.UserID <= 0 || payload.Type == "" {
		log.Error("NotifyRequestPayload missing user_id or type, sending to DLQ",
			zap.String("raw", string(raw)),
		)
		h.deadLetter(raw, "missing user_id or type")
		return nil
	}

	if payload.EventID != "" && !h.deduper.AcquireOnce(ctx, "notify", payload.EventID) {
		log.Info("Duplicated notify request, skip",
			zap.String("event_id", payload.EventID),
		)
		return nil
	}

	log.Info("Processing notify request",
		zap.Int64("user_id", payload.UserID),
		zap.String("type", payload.Type),
	)

	h.notifier.Notify(ctx, service.NotifyRequest{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Title:   payload.Title,
		Body:    payload.Body,
		Payload: payload.Payload,
		PushURL: payload.PushURL,
	})
	return nil
}

func (h *NotifyRequestHandler) deadLetter(raw json.RawMessage, cause string) {
	if err := h.dlq.PublishToDLQ(mqcontracts.RoutingKeyNotifyRequest, raw, cause); err != nil {
		h.logger.Error("Failed to publish to DLQ", zap.Error(err))
	}
}

// recoverPanic turns a handler panic into an ack. A requeue here would
// replay the event and duplicate whatever was already delivered.
func (h *NotifyRequestHandler) recoverPanic() {
	if r := recover(); r != nil {
		h.logger.Error("panic recovered in handler", zap.Any("panic", r))
	}
}
