package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notification-engine/internal/model"
)

type PreferenceRepository struct {
	db *pgxpool.Pool
}

func NewPreferenceRepository(db *pgxpool.Pool) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get returns the user's preference row, or nil when none exists.
// Storage errors surface to the caller, which degrades to defaults.
func (r *PreferenceRepository) Get(ctx context.Context, userID int64) (*model.NotificationPreference, error) {
	query := `
        SELECT user_id, preferences, in_app_milestones, in_app_crew_requests,
               push_milestones, push_crew_requests, updated_at
        FROM notification_preferences
        WHERE user_id = $1
    `
	var p model.NotificationPreference
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.Doc,
		&p.InAppMilestones,
		&p.InAppCrewRequests,
		&p.PushMilestones,
		&p.PushCrewRequests,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
