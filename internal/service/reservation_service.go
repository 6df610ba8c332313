package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/reservation"
	"marketplace-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidRequest is returned for requests missing required data
var ErrInvalidRequest = errors.New("invalid request")

// ReservationStore is the persistence the reservation lifecycle needs
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error)
	CompareAndSetReservationStatus(ctx context.Context, id string, expected, to models.ReservationStatus) (bool, error)
}

// IdempotencyCache maps client idempotency keys to created reservations
type IdempotencyCache interface {
	GetReservationForKey(ctx context.Context, key string) (string, error)
	RememberReservationForKey(ctx context.Context, key, reservationID string, ttl time.Duration) error
}

// ReservationEvents publishes reservation lifecycle events
type ReservationEvents interface {
	PublishReservationCreated(ctx context.Context, event *models.ReservationCreatedEvent) error
	PublishReservationStatusChanged(ctx context.Context, event *models.ReservationStatusChangedEvent) error
}

// ReservationService handles reservation business logic
type ReservationService struct {
	store          ReservationStore
	cache          IdempotencyCache
	events         ReservationEvents
	window         time.Duration
	idempotencyTTL time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// ReservationOption customizes a ReservationService
type ReservationOption func(*ReservationService)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

// WithIdempotencyTTL sets how long idempotency keys are remembered
func WithIdempotencyTTL(ttl time.Duration) ReservationOption {
	return func(s *ReservationService) { s.idempotencyTTL = ttl }
}

// NewReservationService creates a new reservation service
func NewReservationService(
	store ReservationStore,
	cache IdempotencyCache,
	events ReservationEvents,
	window time.Duration,
	opts ...ReservationOption,
) *ReservationService {
	s := &ReservationService{
		store:          store,
		cache:          cache,
		events:         events,
		window:         window,
		idempotencyTTL: 24 * time.Hour,
		now:            time.Now,
		logger:         util.ComponentLogger("reservations"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReservationRequest represents a customer's request to reserve a product
type CreateReservationRequest struct {
	Product        models.ProductSnapshot `json:"product" binding:"required"`
	UserID         string                 `json:"-"`
	UserEmail      string                 `json:"-"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

// Create reserves one unit of a product for a customer. Stock is not
// touched, so concurrent reservations of the last unit all succeed.
func (s *ReservationService) Create(ctx context.Context, req *CreateReservationRequest) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Create")
	defer span.End()

	if req.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidRequest)
	}

	cacheKey := ""
	if req.IdempotencyKey != "" {
		cacheKey = idempotencyCacheKey(req.UserID, req.IdempotencyKey)
		existing, err := s.findByIdempotencyKey(ctx, cacheKey, req.UserID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.logger.Info("Duplicate reservation request detected",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("reservation_id", existing.ID))
			return existing, nil
		}
	}

	r := reservation.New(req.Product, req.UserID, req.UserEmail, s.now().UTC(), s.window)

	if err := s.store.CreateReservation(ctx, r); err != nil {
		util.ReservationsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	util.ReservationsCreatedTotal.Inc()
	s.logger.Info("Reservation created",
		zap.String("reservation_id", r.ID),
		zap.String("product_id", r.ProductID),
		zap.String("user_id", r.UserID),
		zap.Time("expires_at", r.ExpiresAt))

	if cacheKey != "" {
		if err := s.cache.RememberReservationForKey(ctx, cacheKey, r.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(err))
		}
	}

	event := &models.ReservationCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReservationCreated,
			Timestamp: s.now().UTC(),
		},
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		SellerID:      r.SellerID,
		UserID:        r.UserID,
		Price:         r.Price,
		ExpiresAt:     r.ExpiresAt,
	}
	if err := s.events.PublishReservationCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish ReservationCreated event", zap.Error(err))
	}

	return r, nil
}

// idempotencyCacheKey scopes a client key to its user so two users sending
// the same key never see each other's reservation
func idempotencyCacheKey(userID, key string) string {
	return userID + ":" + key
}

func (s *ReservationService) findByIdempotencyKey(ctx context.Context, key, userID string) (*models.Reservation, error) {
	id, err := s.cache.GetReservationForKey(ctx, key)
	if err != nil {
		// a cache outage must not block new reservations
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil, nil
	}
	if id == "" {
		return nil, nil
	}

	existing, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		s.logger.Warn("Idempotency key maps to another user's reservation, ignoring",
			zap.String("idempotency_key", key),
			zap.String("reservation_id", existing.ID))
		return nil, nil
	}
	return existing, nil
}

// TransitionRequest asks to move a reservation to a terminal status
type TransitionRequest struct {
	ID     string                   `json:"-"`
	To     models.ReservationStatus `json:"status" binding:"required"`
	// Expected is the status the caller saw; defaults to reserved
	Expected models.ReservationStatus `json:"expected_status,omitempty"`
	Actor    string                   `json:"-"`
}

// Transition moves a reservation to req.To if it is still in the expected
// status. Repeating a transition that already happened is a no-op; a
// reservation that moved elsewhere yields reservation.ErrStatusConflict.
func (s *ReservationService) Transition(ctx context.Context, req *TransitionRequest) (*models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.Transition")
	defer span.End()

	expected := req.Expected
	if expected == "" {
		expected = models.ReservationStatusReserved
	}
	if !reservation.CanTransition(expected, req.To) {
		util.ReservationTransitionFailures.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", reservation.ErrInvalidTransition, expected, req.To)
	}

	changed, err := s.store.CompareAndSetReservationStatus(ctx, req.ID, expected, req.To)
	if err != nil {
		util.ReservationTransitionFailures.WithLabelValues("db_error").Inc()
		s.logger.Error("Failed to update reservation status",
			zap.String("reservation_id", req.ID),
			zap.String("status", string(req.To)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to transition reservation: %w", err)
	}

	if changed {
		return s.applied(ctx, req, expected), nil
	}

	current, err := s.store.GetReservation(ctx, req.ID)
	if err != nil {
		util.ReservationTransitionFailures.WithLabelValues("not_found").Inc()
		return nil, err
	}

	if current.Status == req.To {
		s.logger.Info("Reservation already in target status",
			zap.String("reservation_id", req.ID),
			zap.String("status", string(req.To)))
		return current, nil
	}
	util.ReservationTransitionFailures.WithLabelValues("conflict").Inc()
	return nil, fmt.Errorf("%w: reservation %s is %s, expected %s",
		reservation.ErrStatusConflict, req.ID, current.Status, expected)
}

// applied publishes a stored transition and reloads the record. When the
// reload fails the result carries only id, status and update time.
func (s *ReservationService) applied(ctx context.Context, req *TransitionRequest, from models.ReservationStatus) *models.Reservation {
	now := s.now().UTC()

	util.ReservationTransitionsTotal.WithLabelValues(string(req.To)).Inc()
	s.logger.Info("Reservation status changed",
		zap.String("reservation_id", req.ID),
		zap.String("from", string(from)),
		zap.String("to", string(req.To)),
		zap.String("actor", req.Actor))

	event := &models.ReservationStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeForStatus(req.To),
			Timestamp: now,
		},
		ReservationID: req.ID,
		FromStatus:    from,
		ToStatus:      req.To,
		Actor:         req.Actor,
	}
	if err := s.events.PublishReservationStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish status change event", zap.Error(err))
	}

	current, err := s.store.GetReservation(ctx, req.ID)
	if err != nil {
		s.logger.Warn("Failed to reload reservation after status change",
			zap.String("reservation_id", req.ID),
			zap.Error(err))
		return &models.Reservation{ID: req.ID, Status: req.To, UpdatedAt: now}
	}
	return current
}

// Get retrieves a reservation by ID
func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// List retrieves reservations newest first
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.List")
	defer span.End()

	if filter.Status != "" && !reservation.ValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, filter.Status)
	}
	return s.store.ListReservations(ctx, filter)
}

// Stats aggregates reservations as of now
func (s *ReservationService) Stats(reservations []models.Reservation) models.ReservationStats {
	return reservation.Aggregate(reservations, s.now())
}

// Views decorates reservations with their expiry flag as of now
func (s *ReservationService) Views(reservations []models.Reservation) []reservation.View {
	return reservation.Views(reservations, s.now())
}

// IsExpired reports whether r is past its expiry as of now
func (s *ReservationService) IsExpired(r *models.Reservation) bool {
	return reservation.IsExpired(r, s.now())
}

