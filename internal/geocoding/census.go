package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/retry"
)

const (
	// CensusOneLineURL is the Census single-address geocoding endpoint.
	CensusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	// CensusBenchmark selects the current address range data.
	CensusBenchmark = "Public_AR_Current"
)

// CensusProvider geocodes one address at a time with the US Census geocoder.
// It needs no API key and is used as a cascade step for rows the batch
// endpoint could not match.
type CensusProvider struct {
	client  HTTPClient
	baseURL string
	log     *slog.Logger
	limiter *rate.Limiter
}

type censusOneLineResponse struct {
	Result struct {
		AddressMatches []struct {
			Coordinates struct {
				X *float64 `json:"x"` // longitude
				Y *float64 `json:"y"` // latitude
			} `json:"coordinates"`
			MatchedAddress string `json:"matchedAddress"`
		} `json:"addressMatches"`
	} `json:"result"`
}

// NewCensusProvider creates a Census one-line provider.
func NewCensusProvider(rateLimit int, log *slog.Logger) *CensusProvider {
	const timeout = 30
	return NewCensusProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewCensusProviderWithClient allows injecting custom HTTP client.
func NewCensusProviderWithClient(client HTTPClient, limiter *rate.Limiter, log *slog.Logger) *CensusProvider {
	return &CensusProvider{client: client, baseURL: CensusOneLineURL, log: log, limiter: limiter}
}

// Name returns the service name used in reports.
func (cp *CensusProvider) Name() models.Service { return models.ServiceCensusOneLine }

// Geocode resolves a one-line address. The matched address is used as the label.
func (cp *CensusProvider) Geocode(ctx context.Context, address string) ([]Candidate, error) {
	if err := cp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("census: rate limit exceeded: %w", err)
	}

	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("census: %w", ErrEmptyAddress)
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {CensusBenchmark},
		"format":    {"json"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cp.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("census: build request: %w", err)
	}

	resp, err := cp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("census: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("census API returned status %d", resp.StatusCode)
		if retry.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, retry.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("census: read body: %w", err)
	}

	var censusResp censusOneLineResponse
	if err = json.Unmarshal(body, &censusResp); err != nil {
		return nil, fmt.Errorf("census: parse response: %w", err)
	}

	var candidates []Candidate
	for _, m := range censusResp.Result.AddressMatches {
		if m.Coordinates.X == nil || m.Coordinates.Y == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Coordinates: models.Coordinates{Longitude: *m.Coordinates.X, Latitude: *m.Coordinates.Y},
			Label:       m.MatchedAddress,
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("census returned no address matches: %w", ErrNoMatch)
	}

	cp.log.DebugContext(ctx, "Census found result", "address", address, "matched", candidates[0].Label)
	return candidates, nil
}
