package geocoding

import (
	"errors"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeCensus represents the US Census one-line geocoder.
	ProviderTypeCensus ProviderType = "census"
	// ProviderTypeOpenCage represents the OpenCage geocoding API.
	ProviderTypeOpenCage ProviderType = ProviderType(models.ServiceOpenCage)
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = ProviderType(models.ServiceNominatim)
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = ProviderType(models.ServiceGoogle)
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (OpenCage, Google)
	RateLimit int          // Rate limit for requests per second
	UserAgent string       // User-Agent contact string (Nominatim)
	Fallback  bool         // Progressive address fallback (Nominatim)
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
//
// Supported provider types:
// - "census": US Census one-line geocoder (free, no API key)
// - "opencage": OpenCage Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
// - "google": Google Maps Geocoding API (requires API key)
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	switch config.Type {
	case ProviderTypeCensus:
		return newCensusProvider(config), nil
	case ProviderTypeOpenCage:
		return newOpenCageProvider(config)
	case ProviderTypeNominatim:
		return newNominatimProvider(config), nil
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newCensusProvider(config ProviderConfig) Provider {
	if config.RateLimit <= 0 {
		config.RateLimit = 10
	}
	return NewCensusProvider(config.RateLimit, config.Logger)
}

// newOpenCageProvider creates an OpenCage geocoding provider.
func newOpenCageProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for OpenCage provider")
	}

	if config.RateLimit <= 0 {
		// The free tier allows one request per second.
		config.RateLimit = 1
		config.Logger.Warn("Rate limit for OpenCage API not set, set a default value", "value", config.RateLimit)
	}

	return NewOpenCageProvider(config.APIKey, config.RateLimit, config.Logger), nil
}

// newNominatimProvider creates a Nominatim geocoding provider.
func newNominatimProvider(config ProviderConfig) Provider {
	// Nominatim is free and doesn't require an API key
	return NewNominatimProvider(NominatimOptions{
		UserAgent: config.UserAgent,
		RateLimit: float64(config.RateLimit),
		Fallback:  config.Fallback,
	}, config.Logger)
}

// newGoogleProvider creates a Google Maps geocoding provider.
func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}

	clientOpts := []maps.ClientOption{
		maps.WithAPIKey(config.APIKey),
	}

	if config.RateLimit > 0 {
		clientOpts = append(clientOpts, maps.WithRateLimit(config.RateLimit))
	}

	client, err := maps.NewClient(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return NewGoogleProvider(client, config.Logger), nil
}
