package geocoding

import (
	"context"
	"errors"
	"net/http"

	"github.com/UnknownOlympus/meridian/internal/models"
)

// Provider is a single-address geocoder. Geocode takes one free-text address
// and returns the provider's candidates, best first. A provider that finds
// nothing returns an error wrapping ErrNoMatch; any other error is a provider
// failure (transport, quota, malformed response).
type Provider interface {
	Name() models.Service
	Geocode(ctx context.Context, address string) ([]Candidate, error)
}

// Candidate is one match proposed by a provider.
type Candidate struct {
	Coordinates models.Coordinates
	// Confidence is the provider's own score. Only meaningful when Scored is true;
	// OpenCage reports 0-10, Nominatim reports nothing.
	Confidence int
	Scored     bool
	// Label is written to the output match_score column.
	Label string
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Common errors shared by all providers.
var (
	// ErrNoMatch means the provider answered but had no usable candidate.
	ErrNoMatch = errors.New("no match")
	// ErrEmptyAddress is returned when there is nothing to geocode.
	ErrEmptyAddress = errors.New("empty address")
	// ErrInvalidCoords is returned for candidates whose coordinates cannot be parsed.
	ErrInvalidCoords = errors.New("invalid coordinates")
	// ErrUnauthorized is returned when a provider rejects the API key.
	ErrUnauthorized = errors.New("unauthorized (invalid API key)")
	// ErrQuotaExceeded is returned when a provider's account quota is spent.
	ErrQuotaExceeded = errors.New("quota exceeded")
)
