package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrLocationUnavailable covers denied permission, timeouts and clients
	// that cannot report a position. Callers fall back to manual entry.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrCityNotFound is returned when a manually entered city is unknown
	ErrCityNotFound = errors.New("city not found")

	// ErrNoAddress is returned by geocoders that cannot name a coordinate
	ErrNoAddress = errors.New("no address for coordinate")
)

// PositionProvider reports the caller's current position
type PositionProvider interface {
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
}

// PositionFunc adapts a function to PositionProvider
type PositionFunc func(ctx context.Context) (models.Coordinate, error)

// CurrentPosition calls f
func (f PositionFunc) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	return f(ctx)
}

// ReverseGeocoder turns a coordinate into a human-readable address
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error)
}

// NopGeocoder never resolves an address
type NopGeocoder struct{}

// ReverseGeocode always fails with ErrNoAddress
func (NopGeocoder) ReverseGeocode(context.Context, models.Coordinate) (string, error) {
	return "", ErrNoAddress
}

// Locator resolves the reference location used for store ranking
type Locator struct {
	geocoder ReverseGeocoder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewLocator creates a locator. A nil geocoder disables address lookup.
func NewLocator(geocoder ReverseGeocoder, timeout time.Duration) *Locator {
	if geocoder == nil {
		geocoder = NopGeocoder{}
	}
	return &Locator{
		geocoder: geocoder,
		timeout:  timeout,
		logger:   util.ComponentLogger("locator"),
	}
}

// ResolveCurrent obtains the caller's position from provider and attaches a
// best-effort address. Any provider failure, including a timeout, is
// reported as ErrLocationUnavailable; an address failure is not an error.
func (l *Locator) ResolveCurrent(ctx context.Context, provider PositionProvider) (*models.Location, error) {
	ctx, span := util.StartSpan(ctx, "Locator.ResolveCurrent")
	defer span.End()

	if provider == nil {
		util.LocationResolutionFailures.WithLabelValues("unsupported").Inc()
		return nil, fmt.Errorf("%w: no position provider", ErrLocationUnavailable)
	}

	posCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		posCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	coord, err := provider.CurrentPosition(posCtx)
	if err != nil {
		util.LocationResolutionFailures.WithLabelValues("position").Inc()
		return nil, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if !ValidCoordinate(coord) {
		util.LocationResolutionFailures.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: coordinate out of range", ErrLocationUnavailable)
	}

	loc := &models.Location{Coordinate: coord, Source: models.LocationSourceDevice}

	address, err := l.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		l.logger.Debug("Reverse geocoding failed",
			zap.Float64("latitude", coord.Latitude),
			zap.Float64("longitude", coord.Longitude),
			zap.Error(err))
		return loc, nil
	}
	loc.Address = address

	return loc, nil
}

// ResolveManual resolves a manually entered city name
func (l *Locator) ResolveManual(city string) (*models.Location, error) {
	coord, ok := ResolveCity(city)
	if !ok {
		util.LocationResolutionFailures.WithLabelValues("city_not_found").Inc()
		return nil, fmt.Errorf("%w: %q, try one of %s",
			ErrCityNotFound, strings.TrimSpace(city), strings.Join(ExampleCities(), ", "))
	}

	return &models.Location{
		Coordinate: coord,
		Address:    strings.TrimSpace(city),
		Source:     models.LocationSourceCity,
	}, nil
}
