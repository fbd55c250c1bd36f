package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeNone disables address import.
	ProviderTypeNone ProviderType = "none"
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
)

// ErrProviderDisabled is returned by NewProvider for ProviderTypeNone.
var ErrProviderDisabled = errors.New("geocoding provider is disabled")

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (required by Google)
	RateLimit int          // Requests per second allowed towards the provider
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates the geocoding provider selected by config.Type.
// An empty type is treated as ProviderTypeNone.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeNone, "":
		return nil, ErrProviderDisabled
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}

func newNominatimProvider(config ProviderConfig) Provider {
	if config.RateLimit <= 0 {
		config.RateLimit = NominatimMaxRate
		config.Logger.Warn("Rate limit for Nominatim not set, using the usage policy maximum",
			"value", config.RateLimit)
	}

	return NewNominatimProvider(config.RateLimit, config.Logger)
}
