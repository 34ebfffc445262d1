package service

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "notification-engine/contracts/mq"
	"notification-engine/internal/model"
	"notification-engine/internal/repository"
	"notification-engine/pkg/logger"
	"notification-engine/pkg/metrics"
	"notification-engine/pkg/outbox"
	"notification-engine/pkg/trace"
)

// Recorder persists in-app notifications, announcing each one through the
// outbox in the same transaction.
type Recorder struct {
	db         *pgxpool.Pool
	repo       *repository.NotificationRepository
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewRecorder(db *pgxpool.Pool, repo *repository.NotificationRepository, logger *zap.Logger) *Recorder {
	return &Recorder{
		db:         db,
		repo:       repo,
		outboxRepo: outbox.NewRepository(db),
		logger:     logger,
	}
}

// Record stores one notification. The deep link always ends up in the
// payload under url, overwriting any prior value, so every stored
// notification is actionable. The caller's map is never mutated.
func (r *Recorder) Record(ctx context.Context, userID int64, eventType, title, body string, payload map[string]interface{}, url string) (int64, error) {
	id, err := r.record(ctx, userID, eventType, title, body, payload, url)
	if err != nil {
		metrics.IncrementNotificationsRecorded("failed")
		return 0, err
	}
	metrics.IncrementNotificationsRecorded("recorded")
	return id, nil
}

func (r *Recorder) record(ctx context.Context, userID int64, eventType, title, body string, payload map[string]interface{}, url string) (int64, error) {
	payloadJSON, err := encodePayload(payload, url)
	if err != nil {
		return 0, err
	}

	n := &model.Notification{
		UserID:  userID,
		Type:    eventType,
		Title:   title,
		Body:    body,
		Payload: payloadJSON,
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if err := r.repo.InsertTx(ctx, tx, n); err != nil {
		return 0, err
	}

	event := mqcontracts.NotificationRecordedPayload{
		NotificationID: n.ID,
		UserID:         userID,
		Type:           eventType,
		Bucket:         string(BucketFor(eventType)),
		TraceID:        trace.FromContext(ctx),
		RecordedAt:     n.CreatedAt,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "notification", &n.ID, mqcontracts.RoutingKeyNotificationRecorded, event); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	logger.WithTrace(ctx, r.logger).Info("Notification recorded",
		zap.Int64("notification_id", n.ID),
		zap.Int64("user_id", userID),
		zap.String("type", eventType),
	)
	return n.ID, nil
}

// encodePayload serializes the payload with the deep link injected under
// url, overwriting any prior value so every stored notification stays
// actionable. The caller's map is never mutated.
func encodePayload(payload map[string]interface{}, url string) (json.RawMessage, error) {
	augmented := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		augmented[k] = v
	}
	augmented["url"] = url
	return json.Marshal(augmented)
}
