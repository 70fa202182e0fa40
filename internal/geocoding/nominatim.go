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

	"golang.org/x/time/rate"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/retry"
)

const (
	// NominatimBaseURL is the public OpenStreetMap search endpoint.
	NominatimBaseURL = "https://nominatim.openstreetmap.org/search"
	// DefaultNominatimUserAgent identifies the pipeline per the Nominatim usage policy.
	DefaultNominatimUserAgent = "Meridian-Batch-Geocoder/1.0 (https://github.com/UnknownOlympus/meridian)"

	nominatimNoScore = "N/A"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the Nominatim API
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Keeps the request rate within the usage policy
	// userAgent is required by Nominatim usage policy
	userAgent string
	// fallback enables progressively simpler address variations on empty results.
	fallback bool
}

// nominatimResponse represents the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat         string `json:"lat"`          // Latitude as string
	Lon         string `json:"lon"`          // Longitude as string
	DisplayName string `json:"display_name"` // Matched place
}

// NominatimOptions configures a NominatimProvider.
type NominatimOptions struct {
	UserAgent string  // Contact string sent as User-Agent; defaults to DefaultNominatimUserAgent.
	RateLimit float64 // Requests per second; defaults to 1.
	Fallback  bool    // Retry empty results with simpler address variations.
}

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, opts, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, opts NominatimOptions, log *slog.Logger) *NominatimProvider {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultNominatimUserAgent
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}

	return &NominatimProvider{
		client:    client,
		baseURL:   NominatimBaseURL,
		log:       log,
		limiter:   rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		userAgent: opts.UserAgent,
		fallback:  opts.Fallback,
	}
}

// WithLimiter replaces the provider's rate limiter.
func (np *NominatimProvider) WithLimiter(limiter *rate.Limiter) *NominatimProvider {
	np.limiter = limiter
	return np
}

// Name returns the service name used in reports.
func (np *NominatimProvider) Name() models.Service { return models.ServiceNominatim }

// Geocode converts an address to geographic coordinates using the Nominatim API.
// Nominatim reports no confidence, so the single candidate carries the label "N/A".
//
// When fallback is enabled, empty results are retried with progressively
// simpler variations of the address:
// 1. the full address
// 2. without the last comma-separated component
// 3. without the last two components
// 4. the first component only
func (np *NominatimProvider) Geocode(ctx context.Context, address string) ([]Candidate, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address)

	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("nominatim: %w", ErrEmptyAddress)
	}

	variations := []string{address}
	if np.fallback {
		variations = np.generateAddressFallbacks(address)
	}

	for idx, variation := range variations {
		candidate, err := np.geocodeSingleAddress(ctx, variation)
		if err == nil {
			if idx > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback address",
					"original", address,
					"fallback", variation,
					"fallback_level", idx)
			}
			return []Candidate{*candidate}, nil
		}

		// Anything but an empty answer is a provider failure.
		if !errors.Is(err, ErrNoMatch) {
			return nil, err
		}

		np.log.DebugContext(ctx, "Address variation returned no results",
			"variation", variation,
			"fallback_level", idx)
	}

	if len(variations) > 1 {
		np.log.DebugContext(ctx, "All address fallbacks exhausted",
			"address", address,
			"variations_tried", len(variations))
	}
	return nil, fmt.Errorf("nominatim API returned empty response: %w", ErrNoMatch)
}

// generateAddressFallbacks creates a list of progressively simpler address variations.
func (np *NominatimProvider) generateAddressFallbacks(address string) []string {
	seen := make(map[string]bool)
	variations := []string{}

	addVariation := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variations = append(variations, v)
		}
	}

	addVariation(address)

	parts := strings.Split(address, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if len(parts) > 1 {
		addVariation(strings.Join(parts[:len(parts)-1], ", "))

		const lenComponents = 2
		if len(parts) > lenComponents {
			addVariation(strings.Join(parts[:len(parts)-2], ", "))
		}

		addVariation(parts[0])
	}

	return variations
}

// geocodeSingleAddress performs a single geocoding request without fallback logic.
func (np *NominatimProvider) geocodeSingleAddress(ctx context.Context, address string) (*Candidate, error) {
	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim: rate limit exceeded: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("q", address)
	query.Set("format", "json")
	query.Set("limit", "1") // Only need the top result
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", np.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		statusErr := fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
		if retry.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, retry.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	np.log.DebugContext(ctx, "Nominatim raw response", "body", string(body))

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		np.log.ErrorContext(ctx, "Failed to parse Nominatim response", "error", err, "body", string(body))
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNoMatch
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lat), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: nominatim: invalid latitude: %s", ErrInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(results[0].Lon), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: nominatim: invalid longitude: %s", ErrInvalidCoords, results[0].Lon)
	}

	np.log.DebugContext(ctx, "Nominatim found result", "lat", lat, "lon", lon, "place", results[0].DisplayName)

	return &Candidate{
		Coordinates: models.Coordinates{Latitude: lat, Longitude: lon},
		Label:       nominatimNoScore,
	}, nil
}
