package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notification-engine/internal/model"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertTx inserts the notification inside the caller's transaction and
// fills in the generated id and created_at.
func (r *NotificationRepository) InsertTx(ctx context.Context, tx pgx.Tx, n *model.Notification) error {
	query := `
        INSERT INTO notifications (user_id, type, title, body, payload)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	return tx.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Body,
		n.Payload,
	).Scan(&n.ID, &n.CreatedAt)
}

// FindByID returns one notification row.
func (r *NotificationRepository) FindByID(ctx context.Context, id int64) (*model.Notification, error) {
	query := `
        SELECT id, user_id, type, title, body, payload, created_at, read_at
        FROM notifications
        WHERE id = $1
    `
	var n model.Notification
	err := r.db.QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Body,
		&n.Payload,
		&n.CreatedAt,
		&n.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
