package geocoding

import (
	"context"

	"github.com/UnknownOlympus/waypoints/internal/models"
)

// Provider resolves a free-form address into the location of a map marker.
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}
