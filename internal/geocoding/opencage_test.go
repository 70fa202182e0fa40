package geocoding_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/meridian/internal/geocoding"
	"github.com/UnknownOlympus/meridian/internal/models"
	"github.com/UnknownOlympus/meridian/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestOpenCage(client geocoding.HTTPClient) *geocoding.OpenCageProvider {
	return geocoding.NewOpenCageProviderWithClient(client, "test-key", rate.NewLimiter(rate.Inf, 0), slog.Default())
}

func TestOpenCageProvider_Geocode(t *testing.T) {
	ctx := context.Background()

	t.Run("ranked candidates", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				query := req.URL.Query()
				assert.Equal(t, "12 Main St, Springfield, IL 62701", query.Get("q"))
				assert.Equal(t, "test-key", query.Get("key"))
				assert.Equal(t, "5", query.Get("limit"))
				assert.Equal(t, "1", query.Get("no_annotations"))

				return jsonResponse(http.StatusOK, `{
					"results": [
						{"confidence": 9, "formatted": "12 Main St", "geometry": {"lat": 39.80, "lng": -89.64}},
						{"confidence": 4, "formatted": "Springfield", "geometry": {"lat": 39.78, "lng": -89.65}}
					],
					"status": {"code": 200, "message": "OK"}
				}`), nil
			},
		}

		candidates, err := newTestOpenCage(mockClient).Geocode(ctx, "12 Main St, Springfield, IL 62701")

		require.NoError(t, err)
		require.Len(t, candidates, 2)
		assert.Equal(t, 9, candidates[0].Confidence)
		assert.True(t, candidates[0].Scored)
		assert.Equal(t, "9", candidates[0].Label)
		assert.Equal(t, models.Coordinates{Longitude: -89.64, Latitude: 39.80}, candidates[0].Coordinates)
		assert.Equal(t, 4, candidates[1].Confidence)
	})

	t.Run("candidate without geometry is skipped", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"results": [
					{"confidence": 8, "geometry": {}},
					{"confidence": 7, "geometry": {"lat": 1.5, "lng": 2.5}}
				]}`), nil
			},
		}

		candidates, err := newTestOpenCage(mockClient).Geocode(ctx, "somewhere")

		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, 7, candidates[0].Confidence)
	})

	t.Run("no candidate has geometry", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"results": [{"confidence": 8, "geometry": {}}]}`), nil
			},
		}

		_, err := newTestOpenCage(mockClient).Geocode(ctx, "somewhere")

		require.ErrorIs(t, err, geocoding.ErrInvalidCoords)
	})

	t.Run("no results", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"results": []}`), nil
			},
		}

		candidates, err := newTestOpenCage(mockClient).Geocode(ctx, "nowhere")

		require.ErrorIs(t, err, geocoding.ErrNoMatch)
		assert.Nil(t, candidates)
	})

	t.Run("status mapping", func(t *testing.T) {
		tests := []struct {
			name      string
			status    int
			wantErr   error
			transient bool
		}{
			{name: "unauthorized", status: http.StatusUnauthorized, wantErr: geocoding.ErrUnauthorized},
			{name: "forbidden", status: http.StatusForbidden, wantErr: geocoding.ErrUnauthorized},
			{name: "quota", status: http.StatusPaymentRequired, wantErr: geocoding.ErrQuotaExceeded},
			{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
			{name: "bad gateway", status: http.StatusBadGateway, transient: true},
			{name: "bad request", status: http.StatusBadRequest},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockClient := &mockHTTPClient{
					doFunc: func(_ *http.Request) (*http.Response, error) {
						return jsonResponse(tt.status, `{}`), nil
					},
				}

				_, err := newTestOpenCage(mockClient).Geocode(ctx, "somewhere")

				require.Error(t, err)
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				}
				assert.Equal(t, tt.transient, retry.IsTransient(err))
			})
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{`), nil
			},
		}

		_, err := newTestOpenCage(mockClient).Geocode(ctx, "somewhere")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode opencage response")
	})

	t.Run("empty address", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called for an empty address")
				return nil, nil
			},
		}

		_, err := newTestOpenCage(mockClient).Geocode(ctx, "")

		require.ErrorIs(t, err, geocoding.ErrEmptyAddress)
	})

	t.Run("cancelled context fails the limiter", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		provider := geocoding.NewOpenCageProviderWithClient(&mockHTTPClient{}, "test-key",
			rate.NewLimiter(rate.Limit(1), 0), slog.Default())

		_, err := provider.Geocode(cancelled, "somewhere")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "opencage: rate limit exceeded")
	})
}

func TestOpenCageProvider_Name(t *testing.T) {
	assert.Equal(t, models.ServiceOpenCage, newTestOpenCage(&mockHTTPClient{}).Name())
}
