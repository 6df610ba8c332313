package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"marketplace-service/internal/models"

	"github.com/google/uuid"
)

// CreateReservation inserts a reservation and assigns its id
func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reserved_products (
			id, product_id, product_name, seller_id, seller_name, user_id, user_email,
			price, image, status, reserved_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := s.db.GetContext(ctx, r, query,
		r.ID, r.ProductID, r.ProductName, r.SellerID, r.SellerName, r.UserID, r.UserEmail,
		r.Price, r.Image, r.Status, r.ReservedAt, r.ExpiresAt)
	if err != nil {
		return persistenceErr("create reservation", err)
	}
	return nil
}

// GetReservation retrieves a reservation by ID
func (s *Store) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.GetContext(ctx, &r, "SELECT * FROM reserved_products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reservation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, persistenceErr("get reservation", err)
	}
	return &r, nil
}

// ListReservations retrieves reservations, newest reservation first
func (s *Store) ListReservations(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.SellerID != "" {
		args = append(args, filter.SellerID)
		conds = append(conds, fmt.Sprintf("seller_id = $%d", len(args)))
	}

	query := "SELECT * FROM reserved_products"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY reserved_at DESC"

	reservations := []models.Reservation{}
	if err := s.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, persistenceErr("list reservations", err)
	}
	return reservations, nil
}

// CompareAndSetReservationStatus moves a reservation to status `to` only if
// its stored status is still `expected`. It reports whether a row changed.
func (s *Store) CompareAndSetReservationStatus(ctx context.Context, id string, expected, to models.ReservationStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reserved_products SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, id, expected)
	if err != nil {
		return false, persistenceErr("update reservation status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, persistenceErr("update reservation status", err)
	}
	return n == 1, nil
}
