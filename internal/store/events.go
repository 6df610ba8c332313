package store

import (
	"context"

	"marketplace-service/internal/models"
)

// RecordReservationEvent appends an event to the audit trail and marks it
// processed in the same transaction
func (s *Store) RecordReservationEvent(ctx context.Context, rec *models.ReservationEventRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistenceErr("begin audit tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reservation_events (event_id, reservation_id, event_type, from_status, to_status, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		rec.EventID, rec.ReservationID, rec.EventType, rec.FromStatus, rec.ToStatus, rec.Actor, rec.OccurredAt)
	if err != nil {
		return persistenceErr("insert reservation event", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		rec.EventID, rec.EventType)
	if err != nil {
		return persistenceErr("mark event processed", err)
	}

	if err := tx.Commit(); err != nil {
		return persistenceErr("commit audit tx", err)
	}
	return nil
}

// ListReservationEvents retrieves the audit trail of one reservation, oldest first
func (s *Store) ListReservationEvents(ctx context.Context, reservationID string) ([]models.ReservationEventRecord, error) {
	events := []models.ReservationEventRecord{}
	err := s.db.SelectContext(ctx, &events,
		"SELECT * FROM reservation_events WHERE reservation_id = $1 ORDER BY occurred_at, id", reservationID)
	if err != nil {
		return nil, persistenceErr("list reservation events", err)
	}
	return events, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	if err != nil {
		return false, persistenceErr("check processed event", err)
	}
	return exists, nil
}
