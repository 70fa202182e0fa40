package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of *maps.Client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps a Google Maps client. Rate limiting is configured on
// the client itself.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Name returns the service name used in reports.
func (gp *GoogleProvider) Name() models.Service { return models.ServiceGoogle }

// Geocode takes a context and an address string as input, and returns the candidates
// proposed by the Google Maps Geocoding API. The location type (ROOFTOP,
// RANGE_INTERPOLATED, ...) is used as the candidate label.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) ([]Candidate, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := maps.GeocodingRequest{Address: address}
	geocodeResponse, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, fmt.Errorf("get empty response from Google Maps API: %w", ErrNoMatch)
	}

	candidates := make([]Candidate, 0, len(geocodeResponse))
	for _, r := range geocodeResponse {
		loc := r.Geometry.Location
		candidates = append(candidates, Candidate{
			Coordinates: models.Coordinates{Longitude: loc.Lng, Latitude: loc.Lat},
			Label:       r.Geometry.LocationType,
		})
	}

	return candidates, nil
}
