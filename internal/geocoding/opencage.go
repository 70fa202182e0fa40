package geocoding

import (
	"context"
	"encoding/json"
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

// OpenCageBaseURL -- OpenCage forward geocoding endpoint.
const OpenCageBaseURL = "https://api.opencagedata.com/geocode/v1/json"

// OpenCageProvider implements geocoding using the OpenCage API. OpenCage
// returns ranked candidates with a 0-10 confidence score.
type OpenCageProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the OpenCage API
	apiKey  string        // API key with geocoding access
	limit   int           // Maximum candidates requested
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// OpenCage API response (simplified for geocoding use-case).
type openCageResponse struct {
	Results []struct {
		Confidence int    `json:"confidence"`
		Formatted  string `json:"formatted"`
		Geometry   struct {
			Lat *float64 `json:"lat"`
			Lng *float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

// NewOpenCageProvider creates a new OpenCage geocoding provider.
func NewOpenCageProvider(apiKey string, rateLimit int, log *slog.Logger) *OpenCageProvider {
	const timeout = 10

	return NewOpenCageProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		apiKey,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewOpenCageProviderWithClient allows injecting custom HTTP client.
func NewOpenCageProviderWithClient(
	client HTTPClient,
	apiKey string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *OpenCageProvider {
	const candidates = 5

	return &OpenCageProvider{
		client:  client,
		baseURL: OpenCageBaseURL,
		apiKey:  apiKey,
		limit:   candidates,
		log:     log,
		limiter: limiter,
	}
}

// Name returns the service name used in reports.
func (op *OpenCageProvider) Name() models.Service { return models.ServiceOpenCage }

// Geocode converts an address into ranked candidates using the OpenCage API.
// Candidates are returned in the provider's order, best first.
func (op *OpenCageProvider) Geocode(ctx context.Context, address string) ([]Candidate, error) {
	if err := op.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("opencage: rate limit exceeded: %w", err)
	}

	op.log.DebugContext(ctx, "Geocoding using OpenCage", "address", address)

	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("opencage: %w", ErrEmptyAddress)
	}

	reqURL, err := url.Parse(op.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("q", address)
	query.Set("key", op.apiKey)
	query.Set("limit", strconv.Itoa(op.limit))
	query.Set("no_annotations", "1")
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := op.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("opencage: %w", ErrUnauthorized)
	case http.StatusPaymentRequired:
		return nil, fmt.Errorf("opencage: %w", ErrQuotaExceeded)
	default:
		body, _ := io.ReadAll(resp.Body)
		op.log.ErrorContext(ctx, "OpenCage API error", "status", resp.StatusCode, "body", string(body))
		statusErr := fmt.Errorf("opencage API returned status %d: %s", resp.StatusCode, string(body))
		if retry.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, retry.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result openCageResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode opencage response: %w", err)
	}

	if len(result.Results) == 0 {
		return nil, fmt.Errorf("opencage API returned no results: %w", ErrNoMatch)
	}

	candidates := make([]Candidate, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Geometry.Lat == nil || r.Geometry.Lng == nil {
			op.log.WarnContext(ctx, "OpenCage candidate without geometry", "address", address, "formatted", r.Formatted)
			continue
		}
		candidates = append(candidates, Candidate{
			Coordinates: models.Coordinates{Latitude: *r.Geometry.Lat, Longitude: *r.Geometry.Lng},
			Confidence:  r.Confidence,
			Scored:      true,
			Label:       strconv.Itoa(r.Confidence),
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("opencage: %w", ErrInvalidCoords)
	}

	op.log.DebugContext(ctx, "OpenCage found candidates",
		"address", address, "candidates", len(candidates), "top_confidence", candidates[0].Confidence)

	return candidates, nil
}
