package service

import (
	"context"
	"sync"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// ReservationManager is the part of the reservation service the admin
// board drives
type ReservationManager interface {
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	Transition(ctx context.Context, req *TransitionRequest) (*models.Reservation, error)
}

// AdminBoard keeps the last successfully loaded reservation list for the
// admin panel. A failed refresh or transition never alters it, so the panel
// only ever shows what the store last confirmed.
type AdminBoard struct {
	mu           sync.RWMutex
	reservations []models.Reservation
	loadedAt     time.Time
	manager      ReservationManager
	logger       *zap.Logger
}

// NewAdminBoard creates an empty board
func NewAdminBoard(manager ReservationManager) *AdminBoard {
	return &AdminBoard{
		manager: manager,
		logger:  util.ComponentLogger("admin-board"),
	}
}

// Refresh reloads every reservation. On failure the previous list is kept
// and the error is returned.
func (b *AdminBoard) Refresh(ctx context.Context) error {
	reservations, err := b.manager.List(ctx, models.ReservationFilter{})
	if err != nil {
		b.logger.Error("Failed to load reservations, keeping previous list", zap.Error(err))
		return err
	}

	b.mu.Lock()
	b.reservations = reservations
	b.loadedAt = time.Now()
	b.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current list and when it was loaded.
// A zero time means nothing has been loaded yet.
func (b *AdminBoard) Snapshot() ([]models.Reservation, time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Reservation, len(b.reservations))
	copy(out, b.reservations)
	return out, b.loadedAt
}

// Filtered returns the snapshot entries with the given status, or all of
// them when status is empty
func (b *AdminBoard) Filtered(status models.ReservationStatus) ([]models.Reservation, time.Time) {
	all, loadedAt := b.Snapshot()
	if status == "" {
		return all, loadedAt
	}

	out := make([]models.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, loadedAt
}

// Transition applies a status change and, only once the store accepted
// it, updates the status of the matching entry in the list
func (b *AdminBoard) Transition(ctx context.Context, req *TransitionRequest) (*models.Reservation, error) {
	updated, err := b.manager.Transition(ctx, req)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	for i := range b.reservations {
		if b.reservations[i].ID == updated.ID {
			b.reservations[i].Status = updated.Status
			b.reservations[i].UpdatedAt = updated.UpdatedAt
			break
		}
	}
	b.mu.Unlock()

	return updated, nil
}
