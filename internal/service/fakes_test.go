package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/store"

	"github.com/google/uuid"
)

type fakeReservationStore struct {
	mu           sync.Mutex
	reservations map[string]models.Reservation
	createErr    error
	updateErr    error
	listErr      error
	getErr       error
}

func newFakeReservationStore() *fakeReservationStore {
	return &fakeReservationStore{reservations: map[string]models.Reservation{}}
}

func (f *fakeReservationStore) CreateReservation(_ context.Context, r *models.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	f.reservations[r.ID] = *r
	return nil
}

func (f *fakeReservationStore) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	r, ok := f.reservations[id]
	if !ok {
		return nil, fmt.Errorf("reservation %s: %w", id, store.ErrNotFound)
	}
	return &r, nil
}

func (f *fakeReservationStore) ListReservations(_ context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Reservation{}
	for _, r := range f.reservations {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if filter.SellerID != "" && r.SellerID != filter.SellerID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedAt.After(out[j].ReservedAt) })
	return out, nil
}

func (f *fakeReservationStore) CompareAndSetReservationStatus(_ context.Context, id string, expected, to models.ReservationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	r, ok := f.reservations[id]
	if !ok || r.Status != expected {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = r.UpdatedAt.Add(time.Second)
	f.reservations[id] = r
	return true, nil
}

type fakeIdempotencyCache struct {
	keys   map[string]string
	getErr error
}

func newFakeIdempotencyCache() *fakeIdempotencyCache {
	return &fakeIdempotencyCache{keys: map[string]string{}}
}

func (f *fakeIdempotencyCache) GetReservationForKey(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.keys[key], nil
}

func (f *fakeIdempotencyCache) RememberReservationForKey(_ context.Context, key, id string, _ time.Duration) error {
	if _, ok := f.keys[key]; !ok {
		f.keys[key] = id
	}
	return nil
}

type fakeReservationEvents struct {
	created []*models.ReservationCreatedEvent
	changed []*models.ReservationStatusChangedEvent
	err     error
}

func (f *fakeReservationEvents) PublishReservationCreated(_ context.Context, e *models.ReservationCreatedEvent) error {
	f.created = append(f.created, e)
	return f.err
}

func (f *fakeReservationEvents) PublishReservationStatusChanged(_ context.Context, e *models.ReservationStatusChangedEvent) error {
	f.changed = append(f.changed, e)
	return f.err
}

type fakeSellerStore struct {
	sellers []models.Seller
	err     error
	calls   int
}

func (f *fakeSellerStore) ListSellers(context.Context) ([]models.Seller, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sellers, nil
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }
