package model

import (
	"encoding/json"
	"time"
)

// NotificationPreference is one user's channel settings. A row carries one
// of two shapes: a JSON document with flat in_app_*/push_* fields, or the
// discrete boolean columns. The document is authoritative when present.
type NotificationPreference struct {
	UserID            int64
	Doc               json.RawMessage // nil when the row uses columns
	InAppMilestones   *bool
	InAppCrewRequests *bool
	PushMilestones    *bool
	PushCrewRequests  *bool
	UpdatedAt         time.Time
}
