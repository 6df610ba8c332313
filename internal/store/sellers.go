package store

import (
	"context"
	"database/sql"

	"marketplace-service/internal/models"
)

type sellerRow struct {
	ID        string          `db:"id"`
	Name      string          `db:"name"`
	Address   string          `db:"address"`
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
}

func (r sellerRow) toModel() models.Seller {
	seller := models.Seller{
		ID:      r.ID,
		Name:    r.Name,
		Address: r.Address,
	}
	if r.Latitude.Valid && r.Longitude.Valid {
		seller.Location = &models.Coordinate{
			Latitude:  r.Latitude.Float64,
			Longitude: r.Longitude.Float64,
		}
	}
	return seller
}

// ListSellers retrieves every shop account in collection order.
// Sellers with no recorded coordinates come back with a nil Location.
func (s *Store) ListSellers(ctx context.Context) ([]models.Seller, error) {
	var rows []sellerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, COALESCE(address, '') AS address, latitude, longitude
		FROM sellers
		WHERE role = 'shop'
		ORDER BY created_at, id`)
	if err != nil {
		return nil, persistenceErr("list sellers", err)
	}

	sellers := make([]models.Seller, len(rows))
	for i, r := range rows {
		sellers[i] = r.toModel()
	}
	return sellers, nil
}
