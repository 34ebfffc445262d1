package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"notification-engine/internal/model"
	"notification-engine/pkg/logger"
)

// SubscriptionWriter is the service's view of registry writes.
type SubscriptionWriter interface {
	Upsert(ctx context.Context, s *model.PushSubscription) (int64, *int64, error)
	Remove(ctx context.Context, userID int64, endpoint string) (int64, error)
}

// SubscriptionService owns subscribe/unsubscribe semantics on top of the
// endpoint registry.
type SubscriptionService struct {
	repo   SubscriptionWriter
	logger *zap.Logger
}

func NewSubscriptionService(repo SubscriptionWriter, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, logger: logger}
}

// Subscribe registers or refreshes an endpoint for the user. Registering
// an endpoint that already exists overwrites owner and keys in place.
func (s *SubscriptionService) Subscribe(ctx context.Context, userID int64, endpoint, p256dh, auth string) error {
	if endpoint == "" || p256dh == "" || auth == "" {
		return fmt.Errorf("subscription requires endpoint, p256dh and auth")
	}

	id, prevOwner, err := s.repo.Upsert(ctx, &model.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
	if err != nil {
		return err
	}

	log := logger.WithTrace(ctx, s.logger)
	if prevOwner != nil && *prevOwner != userID {
		// Shared-device case: the browser re-registered an endpoint that
		// belonged to another account. Last write wins.
		log.Info("Push endpoint reassigned to new owner",
			zap.Int64("subscription_id", id),
			zap.Int64("previous_user_id", *prevOwner),
			zap.Int64("user_id", userID),
		)
		return nil
	}

	log.Info("Push subscription registered",
		zap.Int64("subscription_id", id),
		zap.Int64("user_id", userID),
	)
	return nil
}

// Unsubscribe removes the endpoint only when the user owns it. Removing
// an endpoint that is gone or owned by someone else is a quiet no-op.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, userID int64, endpoint string) error {
	removed, err := s.repo.Remove(ctx, userID, endpoint)
	if err != nil {
		return err
	}

	log := logger.WithTrace(ctx, s.logger)
	if removed == 0 {
		log.Info("Unsubscribe matched no owned endpoint",
			zap.Int64("user_id", userID),
		)
		return nil
	}

	log.Info("Push subscription removed",
		zap.Int64("user_id", userID),
	)
	return nil
}
