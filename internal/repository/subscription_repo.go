package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"notification-engine/internal/model"
)

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Upsert inserts or overwrites the registration for an endpoint. The
// endpoint is the identity: a conflict reassigns owner and keys in place.
// Returns the row id and the previous owner, nil when the row is new.
func (r *SubscriptionRepository) Upsert(ctx context.Context, s *model.PushSubscription) (int64, *int64, error) {
	query := `
        WITH existing AS (
            SELECT user_id FROM push_subscriptions WHERE endpoint = $2
        )
        INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (endpoint) DO UPDATE
        SET user_id = EXCLUDED.user_id,
            p256dh = EXCLUDED.p256dh,
            auth = EXCLUDED.auth
        RETURNING id, (SELECT user_id FROM existing)
    `
	var id int64
	var prevUserID *int64
	err := r.db.QueryRow(ctx, query, s.UserID, s.Endpoint, s.P256dh, s.Auth).Scan(&id, &prevUserID)
	if err != nil {
		return 0, nil, err
	}
	return id, prevUserID, nil
}

// Remove deletes the row matching both owner and endpoint. Knowing another
// user's endpoint string is not enough to unsubscribe it.
func (r *SubscriptionRepository) Remove(ctx context.Context, userID int64, endpoint string) (int64, error) {
	query := `
        DELETE FROM push_subscriptions
        WHERE user_id = $1 AND endpoint = $2
    `
	tag, err := r.db.Exec(ctx, query, userID, endpoint)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByUser returns the user's subscriptions, most recent first.
func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	query := `
        SELECT id, user_id, endpoint, p256dh, auth, created_at
        FROM push_subscriptions
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.PushSubscription{}
	for rows.Next() {
		var s model.PushSubscription
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.Endpoint,
			&s.P256dh,
			&s.Auth,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}

	return subs, rows.Err()
}

// Evict deletes by primary key, no ownership check. Deleting an already
// removed row is a no-op.
func (r *SubscriptionRepository) Evict(ctx context.Context, id int64) error {
	query := `
        DELETE FROM push_subscriptions
        WHERE id = $1
    `
	_, err := r.db.Exec(ctx, query, id)
	return err
}
