// Package firms fetches fire detections from the NASA FIRMS area API.
package firms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
)

const (
	userAgent = "wildfire-intel-service/1.0"

	// Transient transport failures are retried with a linear backoff.
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Fetcher retrieves detections for one query.
type Fetcher interface {
	Fetch(ctx context.Context, query domain.Query) ([]domain.Detection, error)
}

// Client implements Fetcher against the FIRMS REST endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a FIRMS client. The timeout bounds the whole
// request including body read.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch performs one area request and parses the CSV body. The query is
// assumed validated; URL shape is
// {base}/api/area/csv/{key}/{source}/{area}/{days}/{startDate}.
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.Detection, error) {
	url := fmt.Sprintf("%s/api/area/csv/%s/%s/%s/%d/%s",
		c.baseURL,
		c.apiKey,
		query.Source,
		query.BBox.Area(),
		query.Days,
		query.StartDate.Format("2006-01-02"),
	)

	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	if marker := providerErrorMarker(body); marker != "" {
		return nil, fmt.Errorf("provider error marker %q in response: %w", marker, domain.ErrProvider)
	}

	detections, err := domain.ParseDetections(query.Source, body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("firms fetch complete",
		"source", query.Source,
		"days", query.Days,
		"detections", len(detections),
	)
	return detections, nil
}

// get performs the GET with bounded retries on transport failure.
// Provider-level rejections are not retried.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch cancelled: %w: %w", ctx.Err(), domain.ErrTransport)
			case <-time.After(time.Duration(attempt-1) * retryBackoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %v: %w", err, domain.ErrTransport)
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("firms request: %w: %w", err, domain.ErrTransport)
			c.logger.Warn("firms request failed", "attempt", attempt, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response body: %w: %w", readErr, domain.ErrTransport)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("firms returned status %d: %s: %w", resp.StatusCode, truncate(body, 200), domain.ErrProvider)
		}

		return body, nil
	}
	return nil, lastErr
}

// providerErrorMarker scans the body for FIRMS rejection markers, which
// arrive with HTTP 200. Returns the marker found, or "".
func providerErrorMarker(body []byte) string {
	probe := strings.ToLower(string(truncate(body, 512)))
	// A real CSV body starts with the header row; error bodies are short
	// prose like "Invalid API key." or "Error in query parameters".
	if strings.HasPrefix(probe, "latitude") || strings.Contains(probe, "\nlatitude") {
		return ""
	}
	for _, marker := range []string{"invalid", "error"} {
		if strings.Contains(probe, marker) {
			return marker
		}
	}
	return ""
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
