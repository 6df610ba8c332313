package geo

import (
	"context"
	"fmt"

	"marketplace-service/internal/models"

	"googlemaps.github.io/maps"
)

// MapsGeocoder reverse geocodes through the Google Maps Geocoding API
type MapsGeocoder struct {
	client *maps.Client
}

// NewMapsGeocoder creates a geocoder for the given API key
func NewMapsGeocoder(apiKey string) (*MapsGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsGeocoder{client: client}, nil
}

// ReverseGeocode returns the formatted address of the best match
func (g *MapsGeocoder) ReverseGeocode(ctx context.Context, c models.Coordinate) (string, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: c.Latitude, Lng: c.Longitude},
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode failed: %w", err)
	}
	if len(results) == 0 || results[0].FormattedAddress == "" {
		return "", ErrNoAddress
	}
	return results[0].FormattedAddress, nil
}
