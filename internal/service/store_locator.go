package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-service/internal/geo"
	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

// SellerStore reads the seller collection
type SellerStore interface {
	ListSellers(ctx context.Context) ([]models.Seller, error)
}

// LocationQuery describes where the caller is. City takes precedence over
// Position when both are set.
type LocationQuery struct {
	Position geo.PositionProvider
	City     string
}

// StoreLocator ranks seller storefronts by distance from the caller
type StoreLocator struct {
	sellers     SellerStore
	locator     *geo.Locator
	nearbyLimit int
	logger      *zap.Logger
}

// NewStoreLocator creates a new store locator
func NewStoreLocator(sellers SellerStore, locator *geo.Locator, nearbyLimit int) *StoreLocator {
	return &StoreLocator{
		sellers:     sellers,
		locator:     locator,
		nearbyLimit: nearbyLimit,
		logger:      util.ComponentLogger("store-locator"),
	}
}

// Locate resolves the reference location for a query
func (l *StoreLocator) Locate(ctx context.Context, q LocationQuery) (*models.Location, error) {
	if q.City != "" {
		return l.locator.ResolveManual(q.City)
	}
	return l.locator.ResolveCurrent(ctx, q.Position)
}

// Nearby returns the closest stores to origin, at most the configured limit
func (l *StoreLocator) Nearby(ctx context.Context, origin models.Coordinate) ([]models.Seller, error) {
	return l.rank(ctx, "nearby", origin, l.nearbyLimit)
}

// Sorted returns every located store ordered by distance from origin
func (l *StoreLocator) Sorted(ctx context.Context, origin models.Coordinate) ([]models.Seller, error) {
	return l.rank(ctx, "sorted", origin, 0)
}

// rank reads the seller set fresh on every call since it can change
// between requests
func (l *StoreLocator) rank(ctx context.Context, mode string, origin models.Coordinate, limit int) ([]models.Seller, error) {
	ctx, span := util.StartSpan(ctx, "StoreLocator."+mode)
	defer span.End()

	start := time.Now()
	defer func() {
		util.StoreRankingLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	sellers, err := l.sellers.ListSellers(ctx)
	if err != nil {
		l.logger.Error("Failed to load sellers", zap.String("mode", mode), zap.Error(err))
		return nil, fmt.Errorf("failed to load sellers: %w", err)
	}

	ranked := geo.Nearby(origin, sellers, limit)

	l.logger.Debug("Ranked stores",
		zap.String("mode", mode),
		zap.Int("candidates", len(sellers)),
		zap.Int("ranked", len(ranked)))
	return ranked, nil
}
