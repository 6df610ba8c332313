// Package reservation holds the reservation state machine and the derived
// values computed from it. Nothing here touches storage.
package reservation

import (
	"errors"
	"time"

	"marketplace-service/internal/models"
)

var (
	// ErrInvalidTransition is returned for a target status that no
	// transition leads to.
	ErrInvalidTransition = errors.New("invalid reservation transition")

	// ErrStatusConflict is returned when the stored status is not the one
	// the caller expected to move from.
	ErrStatusConflict = errors.New("reservation status changed concurrently")
)

var validNext = map[models.ReservationStatus]map[models.ReservationStatus]bool{
	models.ReservationStatusReserved: {
		models.ReservationStatusConfirmed: true,
		models.ReservationStatusCancelled: true,
	},
	models.ReservationStatusConfirmed: {},
	models.ReservationStatusCancelled: {},
}

// CanTransition reports whether from -> to is a defined transition
func CanTransition(from, to models.ReservationStatus) bool {
	return validNext[from][to]
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.ReservationStatus) bool {
	next, ok := validNext[status]
	return ok && len(next) == 0
}

// ValidStatus reports whether status is one of the known statuses
func ValidStatus(status models.ReservationStatus) bool {
	_, ok := validNext[status]
	return ok
}

// New builds a reservation in the reserved state for the given product
// snapshot. The id is left for the store to assign.
func New(snapshot models.ProductSnapshot, userID, userEmail string, now time.Time, window time.Duration) *models.Reservation {
	return &models.Reservation{
		ProductID:   snapshot.ProductID,
		ProductName: snapshot.ProductName,
		SellerID:    snapshot.SellerID,
		SellerName:  snapshot.SellerName,
		Price:       snapshot.Price,
		Image:       snapshot.Image,
		UserID:      userID,
		UserEmail:   userEmail,
		Status:      models.ReservationStatusReserved,
		ReservedAt:  now,
		ExpiresAt:   now.Add(window),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsExpired reports whether now is past the reservation's expiry. It is a
// display flag only and never changes the status.
func IsExpired(r *models.Reservation, now time.Time) bool {
	return now.After(r.ExpiresAt)
}
