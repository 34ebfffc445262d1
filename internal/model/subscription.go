package model

import "time"

// PushSubscription is one browser push registration. The endpoint is
// globally unique; re-registering it under another user reassigns the row.
type PushSubscription struct {
	ID        int64
	UserID    int64
	Endpoint  string
	P256dh    string
	Auth      string
	CreatedAt time.Time
}
