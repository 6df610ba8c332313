package models

import "time"

// Event types
const (
	EventTypeReservationCreated   = "RESERVATION_CREATED"
	EventTypeReservationConfirmed = "RESERVATION_CONFIRMED"
	EventTypeReservationCancelled = "RESERVATION_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationCreatedEvent published when a customer reserves a product
type ReservationCreatedEvent struct {
	BaseEvent
	ReservationID string    `json:"reservation_id"`
	ProductID     string    `json:"product_id"`
	SellerID      string    `json:"seller_id"`
	UserID        string    `json:"user_id"`
	Price         float64   `json:"price"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ReservationStatusChangedEvent published when an operator confirms or cancels
type ReservationStatusChangedEvent struct {
	BaseEvent
	ReservationID string            `json:"reservation_id"`
	FromStatus    ReservationStatus `json:"from_status"`
	ToStatus      ReservationStatus `json:"to_status"`
	Actor         string            `json:"actor,omitempty"`
}

// EventTypeForStatus maps a terminal status to its event type
func EventTypeForStatus(status ReservationStatus) string {
	switch status {
	case ReservationStatusConfirmed:
		return EventTypeReservationConfirmed
	case ReservationStatusCancelled:
		return EventTypeReservationCancelled
	default:
		return ""
	}
}
