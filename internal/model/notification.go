package model

import (
	"encoding/json"
	"time"
)

// Notification is one in-app notification row. Rows are created by the
// recorder; read_at is set by the web backend when the user opens the
// notification, never here.
type Notification struct {
	ID        int64
	UserID    int64
	Type      string
	Title     string
	Body      string
	Payload   json.RawMessage
	CreatedAt time.Time
	ReadAt    *time.Time
}
