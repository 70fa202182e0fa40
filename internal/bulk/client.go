package bulk

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/UnknownOlympus/meridian/internal/retry"
)

const (
	// CensusBatchURL is the Census batch geocoding endpoint.
	CensusBatchURL = "https://geocoding.geo.census.gov/geocoder/locations/addressbatch"
	// CensusBenchmark selects the current address range data.
	CensusBenchmark = "Public_AR_Current"
	// DefaultTimeout bounds one batch upload; large batches take minutes.
	DefaultTimeout = 10 * time.Minute
)

// Client uploads an encoded batch and returns the raw response body.
type Client interface {
	Submit(ctx context.Context, addressFile []byte) ([]byte, error)
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CensusClient submits batches to the US Census batch geocoder.
type CensusClient struct {
	client    HTTPClient
	url       string
	benchmark string
	log       *slog.Logger
}

// NewCensusClient creates a client for the Census batch endpoint. An empty url
// selects CensusBatchURL; a zero timeout selects DefaultTimeout.
func NewCensusClient(url string, timeout time.Duration, log *slog.Logger) *CensusClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewCensusClientWithHTTP(&http.Client{Timeout: timeout}, url, log)
}

// NewCensusClientWithHTTP allows injecting a custom HTTP client.
func NewCensusClientWithHTTP(client HTTPClient, url string, log *slog.Logger) *CensusClient {
	if url == "" {
		url = CensusBatchURL
	}
	return &CensusClient{client: client, url: url, benchmark: CensusBenchmark, log: log}
}

// Submit uploads addressFile as the multipart field "addressFile".
func (c *CensusClient) Submit(ctx context.Context, addressFile []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("benchmark", c.benchmark); err != nil {
		return nil, eris.Wrap(err, "census batch: write benchmark")
	}

	part, err := writer.CreateFormFile("addressFile", "addresses.csv")
	if err != nil {
		return nil, eris.Wrap(err, "census batch: create form file")
	}
	if _, err = part.Write(addressFile); err != nil {
		return nil, eris.Wrap(err, "census batch: write csv")
	}
	if err = writer.Close(); err != nil {
		return nil, eris.Wrap(err, "census batch: close writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, eris.Wrap(err, "census batch: build request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "census batch: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census batch: read body")
	}

	if resp.StatusCode != http.StatusOK {
		c.log.ErrorContext(ctx, "Census batch API error", "status", resp.StatusCode, "body", string(body))
		statusErr := eris.Errorf("census batch returned status %d", resp.StatusCode)
		if retry.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, retry.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	return body, nil
}
