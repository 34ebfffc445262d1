package mq

import "time"

// Routing keys on the events exchange.
const (
	RoutingKeyNotifyRequest        = "notify.request"
	RoutingKeyNotificationRecorded = "notification.recorded"
)

// NotifyRequestPayload asks the engine to notify one user about one event.
type NotifyRequestPayload struct {
	EventID string                 `json:"event_id"`
	UserID  int64                  `json:"user_id"`
	Type    string                 `json:"type"` // milestone_broken, connection_request, ...
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	PushURL string                 `json:"push_url,omitempty"`
}

// NotificationRecordedPayload announces a persisted in-app notification.
type NotificationRecordedPayload struct {
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	Type           string    `json:"type"`
	Bucket         string    `json:"bucket"`
	TraceID        string    `json:"trace_id,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}
