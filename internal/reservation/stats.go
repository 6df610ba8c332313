package reservation

import (
	"time"

	"marketplace-service/internal/models"
)

// Aggregate counts reservations by status in a single pass. Expired counts
// reserved records past their expiry and is a subset of Reserved.
func Aggregate(reservations []models.Reservation, now time.Time) models.ReservationStats {
	var stats models.ReservationStats

	for i := range reservations {
		r := &reservations[i]
		switch r.Status {
		case models.ReservationStatusReserved:
			stats.Reserved++
			if IsExpired(r, now) {
				stats.Expired++
			}
		case models.ReservationStatusConfirmed:
			stats.Confirmed++
		case models.ReservationStatusCancelled:
			stats.Cancelled++
		default:
			// unknown statuses are not counted so total stays the sum
			continue
		}
		stats.Total++
	}

	return stats
}

// View is a reservation decorated with its derived expiry flag
type View struct {
	models.Reservation
	IsExpired bool `json:"is_expired"`
}

// Views decorates reservations with their expiry flag, keeping order
func Views(reservations []models.Reservation, now time.Time) []View {
	out := make([]View, len(reservations))
	for i := range reservations {
		out[i] = View{
			Reservation: reservations[i],
			IsExpired:   reservations[i].Status == models.ReservationStatusReserved && IsExpired(&reservations[i], now),
		}
	}
	return out
}
