package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/waypoints/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleAPIClient is the part of maps.Client used for geocoding.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GoogleProvider geocodes addresses with the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider wraps an already configured Maps client.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode returns the location of the first result Google finds for address.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Location, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	results, err := gp.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrEmptyResponse
	}

	point := results[0].Geometry.Location
	gp.log.DebugContext(ctx, "Google Maps found result", "address", address,
		"formatted", results[0].FormattedAddress, "lat", point.Lat, "lon", point.Lng)

	return &models.Location{Latitude: point.Lat, Longitude: point.Lng}, nil
}
