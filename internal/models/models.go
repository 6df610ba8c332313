package models

import "time"

// Coordinate is a WGS84 latitude/longitude pair in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location sources
const (
	LocationSourceDevice = "device"
	LocationSourceCity   = "city"
)

// Location is a resolved reference point for store ranking
type Location struct {
	Coordinate
	Address string `json:"address,omitempty"`
	Source  string `json:"source"`
}

// Seller is the ranking view of a shop account.
// Distance is attached at ranking time and is never persisted.
type Seller struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Location *Coordinate `json:"location,omitempty"`
	Distance float64     `json:"distance"`
}

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

// Reservation statuses
const (
	ReservationStatusReserved  ReservationStatus = "reserved"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// ProductSnapshot holds the product fields copied into a reservation when it
// is created. They are not kept in sync with the product afterwards.
type ProductSnapshot struct {
	ProductID   string  `json:"product_id" binding:"required"`
	ProductName string  `json:"product_name" binding:"required"`
	SellerID    string  `json:"seller_id" binding:"required"`
	SellerName  string  `json:"seller_name"`
	Price       float64 `json:"price" binding:"gte=0"`
	Image       string  `json:"image"`
}

// Reservation is a customer's time-bounded claim on one product unit
type Reservation struct {
	ID          string            `db:"id" json:"id"`
	ProductID   string            `db:"product_id" json:"product_id"`
	ProductName string            `db:"product_name" json:"product_name"`
	SellerID    string            `db:"seller_id" json:"seller_id"`
	SellerName  string            `db:"seller_name" json:"seller_name"`
	UserID      string            `db:"user_id" json:"user_id"`
	UserEmail   string            `db:"user_email" json:"user_email"`
	Price       float64           `db:"price" json:"price"`
	Image       string            `db:"image" json:"image"`
	Status      ReservationStatus `db:"status" json:"status"`
	ReservedAt  time.Time         `db:"reserved_at" json:"reserved_at"`
	ExpiresAt   time.Time         `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// Snapshot returns the denormalized product fields of the reservation
func (r *Reservation) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ProductID:   r.ProductID,
		ProductName: r.ProductName,
		SellerID:    r.SellerID,
		SellerName:  r.SellerName,
		Price:       r.Price,
		Image:       r.Image,
	}
}

// ReservationStats is the admin overview of a reservation collection.
// Expired overlays Reserved and is not a status of its own.
type ReservationStats struct {
	Total     int `json:"total"`
	Reserved  int `json:"reserved"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Expired   int `json:"expired"`
}

// ReservationFilter narrows a reservation listing
type ReservationFilter struct {
	Status   ReservationStatus
	UserID   string
	SellerID string
}

// ReservationEventRecord is one row of the reservation audit trail
type ReservationEventRecord struct {
	ID            int64     `db:"id" json:"id"`
	EventID       string    `db:"event_id" json:"event_id"`
	ReservationID string    `db:"reservation_id" json:"reservation_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	FromStatus    string    `db:"from_status" json:"from_status"`
	ToStatus      string    `db:"to_status" json:"to_status"`
	Actor         string    `db:"actor" json:"actor"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
}
