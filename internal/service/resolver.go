package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"notification-engine/internal/model"
	"notification-engine/pkg/logger"
)

// PreferenceStore loads one user's stored channel preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (*model.NotificationPreference, error)
}

// PreferenceResolver answers whether a channel is enabled for a bucket.
// Stored preferences come in two shapes (JSON document or discrete
// columns); the resolver normalizes both and degrades to defaults when
// the row is missing, malformed or unreadable.
type PreferenceResolver struct {
	store  PreferenceStore
	logger *zap.Logger
}

func NewPreferenceResolver(store PreferenceStore, logger *zap.Logger) *PreferenceResolver {
	return &PreferenceResolver{store: store, logger: logger}
}

// Enabled reports whether the channel is on for (user, bucket). The other
// bucket is always on and never touches storage.
func (r *PreferenceResolver) Enabled(ctx context.Context, userID int64, bucket Bucket, channel Channel) bool {
	if bucket == BucketOther {
		return true
	}

	// In-app defaults on, push defaults off.
	def := channel == ChannelInApp

	pref, err := r.store.Get(ctx, userID)
	if err != nil {
		// Covers the preference table not existing yet. A notification is
		// never blocked because preference infrastructure is unavailable.
		logger.WithTrace(ctx, r.logger).Warn("Preference lookup failed, using default",
			zap.Int64("user_id", userID),
			zap.String("bucket", string(bucket)),
			zap.String("channel", string(channel)),
			zap.Bool("default", def),
			zap.Error(err),
		)
		return def
	}
	if pref == nil {
		return def
	}

	field := string(channel) + "_" + string(bucket)

	if len(pref.Doc) > 0 {
		var doc map[string]interface{}
		if err := json.Unmarshal(pref.Doc, &doc); err != nil {
			logger.WithTrace(ctx, r.logger).Warn("Malformed preference document, falling back to columns",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
		} else if doc != nil {
			// The document is authoritative when present. A missing or
			// mistyped field means the default, not the legacy columns.
			if v, ok := doc[field].(bool); ok {
				return v
			}
			return def
		}
	}

	if v := columnFlag(pref, field); v != nil {
		return *v
	}
	return def
}

func columnFlag(p *model.NotificationPreference, field string) *bool {
	switch field {
	case "in_app_milestones":
		return p.InAppMilestones
	case "in_app_crew_requests":
		return p.InAppCrewRequests
	case "push_milestones":
		return p.PushMilestones
	case "push_crew_requests":
		return p.PushCrewRequests
	}
	return nil
}
