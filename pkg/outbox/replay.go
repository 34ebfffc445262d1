package outbox

import (
	"context"
	"fmt"
)

// ReplayService requeues outbox events for the dispatcher on demand.
// A replayed event goes back to pending with a fresh retry budget; the
// polling dispatcher publishes it through the usual path, so there is
// exactly one code path that talks to the broker.
type ReplayService struct {
	repo *Repository
}

func NewReplayService(repo *Repository) *ReplayService {
	return &ReplayService{repo: repo}
}

// ReplayEvent requeues one event by ID.
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	if _, err := s.repo.GetEventByID(ctx, eventID); err != nil {
		return err
	}
	if err := s.repo.ReplayEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to requeue event: %w", err)
	}
	return nil
}

// ReplayFailedEvents requeues parked events and returns how many were
// handed back to the dispatcher.
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	requeued := 0
	for _, event := range events {
		if err := s.repo.ReplayEvent(ctx, event.ID); err != nil {
			continue
		}
		requeued++
	}
	return requeued, nil
}
