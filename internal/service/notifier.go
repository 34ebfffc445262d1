package service

import (
	"context"

	"go.uber.org/zap"

	"notification-engine/pkg/logger"
	"notification-engine/pkg/metrics"
)

// DefaultPushURL is the deep link used when the event names none.
const DefaultPushURL = "/Notifications"

// NotifyRequest is one domain event to surface to one user.
type NotifyRequest struct {
	UserID  int64
	Type    string
	Title   string
	Body    string
	Payload map[string]interface{}
	PushURL string
}

// InAppRecorder is the notifier's view of in-app persistence.
type InAppRecorder interface {
	Record(ctx context.Context, userID int64, eventType, title, body string, payload map[string]interface{}, url string) (int64, error)
}

// Dispatcher is the notifier's view of push fan-out.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID int64, msg PushMessage)
}

// PreferenceChecker gates channels per user and bucket.
type PreferenceChecker interface {
	Enabled(ctx context.Context, userID int64, bucket Bucket, channel Channel) bool
}

// Notifier orchestrates one notification across both channels. The
// channels are independent: an in-app failure never suppresses push, and
// a push skip never suppresses the in-app record. Nothing propagates to
// the caller.
type Notifier struct {
	resolver   PreferenceChecker
	recorder   InAppRecorder
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewNotifier(resolver PreferenceChecker, recorder InAppRecorder, dispatcher Dispatcher, logger *zap.Logger) *Notifier {
	return &Notifier{
		resolver:   resolver,
		recorder:   recorder,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Notify resolves preferences for the event's bucket and runs whichever
// channels are enabled. It returns only after both channels have been
// attempted.
func (n *Notifier) Notify(ctx context.Context, req NotifyRequest) {
	bucket := BucketFor(req.Type)
	log := logger.WithTrace(ctx, n.logger)

	pushURL := req.PushURL
	if pushURL == "" {
		pushURL = DefaultPushURL
	}

	if n.resolver.Enabled(ctx, req.UserID, bucket, ChannelInApp) {
		if _, err := n.recorder.Record(ctx, req.UserID, req.Type, req.Title, req.Body, req.Payload, pushURL); err != nil {
			log.Error("Failed to record in-app notification",
				zap.Int64("user_id", req.UserID),
				zap.String("type", req.Type),
				zap.Error(err),
			)
		}
	} else {
		metrics.IncrementNotificationsRecorded("skipped")
	}

	if !n.resolver.Enabled(ctx, req.UserID, bucket, ChannelPush) {
		// Opted out: the subscription store is not touched at all.
		return
	}

	data := make(map[string]interface{}, len(req.Payload)+1)
	for k, v := range req.Payload {
		data[k] = v
	}
	data["url"] = pushURL

	n.dispatcher.Dispatch(ctx, req.UserID, PushMessage{
		Title: req.Title,
		Body:  req.Body,
		URL:   pushURL,
		Tag:   deriveTag(req.Type, req.Payload),
		Data:  data,
	})
}

// deriveTag picks the on-device collapse key. An explicit tag wins;
// metric alerts collapse per metric so distinct metrics of the same type
// replace their own prior alert instead of each other's; anything else
// collapses per event type.
func deriveTag(eventType string, payload map[string]interface{}) string {
	if tag, ok := payload["tag"].(string); ok && tag != "" {
		return tag
	}
	if metric, ok := payload["metric"].(string); ok && metric != "" {
		return eventType + ":" + metric
	}
	return eventType
}
