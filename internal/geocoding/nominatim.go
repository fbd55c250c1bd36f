package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/models"
	"golang.org/x/time/rate"
)

const (
	// NominatimBaseURL is the public OpenStreetMap search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// NominatimMaxRate is the request rate allowed by the public usage policy.
	NominatimMaxRate = 1
	// NominatimUserAgent identifies the service as the usage policy requires.
	NominatimUserAgent = "Waypoints-Marker-Service/1.0 (https://github.com/UnknownOlympus/waypoints)"
)

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// NominatimProvider geocodes addresses with the OpenStreetMap Nominatim API.
type NominatimProvider struct {
	client    HTTPClient
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	log       *slog.Logger
}

type nominatimPlace struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
	ErrNominatimEmptyAddress  = errors.New("nominatim provider got empty address")
)

// NewNominatimProvider creates a provider for the public endpoint limited to rateLimit requests per second.
func NewNominatimProvider(rateLimit int, log *slog.Logger) *NominatimProvider {
	const timeout = 10 * time.Second

	return NewNominatimProviderWithClient(
		&http.Client{Timeout: timeout},
		NominatimBaseURL,
		rate.NewLimiter(rate.Limit(rateLimit), 1),
		log,
	)
}

// NewNominatimProviderWithClient allows injecting the HTTP client, endpoint and limiter.
func NewNominatimProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   baseURL,
		userAgent: NominatimUserAgent,
		limiter:   limiter,
		log:       log,
	}
}

// Geocode resolves address, retrying with trailing comma-separated parts removed
// while Nominatim finds nothing ("Main St 5, Springfield" then "Main St 5").
func (np *NominatimProvider) Geocode(ctx context.Context, address string) (*models.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrNominatimEmptyAddress
	}

	candidates := addressCandidates(address)
	for level, candidate := range candidates {
		loc, err := np.search(ctx, candidate)
		if err == nil {
			if level > 0 {
				np.log.InfoContext(ctx, "Geocoded using shortened address",
					"original", address, "used", candidate, "level", level)
			}
			return loc, nil
		}
		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}
		np.log.DebugContext(ctx, "No results for address candidate", "candidate", candidate, "level", level)
	}

	np.log.WarnContext(ctx, "Nominatim found nothing for any address candidate",
		"address", address, "candidates", len(candidates))

	return nil, ErrNominatimEmptyResponse
}

// addressCandidates returns address followed by its prefixes with trailing parts dropped.
func addressCandidates(address string) []string {
	parts := strings.Split(address, ",")
	kept := parts[:0]
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			kept = append(kept, p)
		}
	}

	candidates := []string{address}
	for n := len(kept) - 1; n >= 1; n-- {
		candidates = append(candidates, strings.Join(kept[:n], ", "))
	}

	return candidates
}

func (np *NominatimProvider) search(ctx context.Context, address string) (*models.Location, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	query := reqURL.Query()
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var places []nominatimPlace
	if err = json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude %q", ErrNominatimInvalidCoords, places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude %q", ErrNominatimInvalidCoords, places[0].Lon)
	}

	return &models.Location{Latitude: lat, Longitude: lon}, nil
}
