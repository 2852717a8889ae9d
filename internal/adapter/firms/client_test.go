package firms

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-intel-service/internal/domain"
)

const testBody = `latitude,longitude,bright_ti4,acq_date,acq_time,confidence,frp
38.93912,-120.52826,330.61,2025-08-14,1012,h,12.54
38.94006,-120.51548,341.82,2025-08-14,1012,n,8.21
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testQuery() domain.Query {
	return domain.Query{
		Source:    domain.SourceVIIRSNOAA20,
		BBox:      domain.BoundingBox{MinLat: 36, MinLon: -122, MaxLat: 39, MaxLon: -119},
		StartDate: time.Date(2025, 8, 14, 0, 0, 0, 0, time.UTC),
		Days:      3,
	}
}

func TestClientFetch(t *testing.T) {
	t.Run("builds the area URL and parses the body", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			assert.Equal(t, "wildfire-intel-service/1.0", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte(testBody))
		}))
		defer server.Close()

		client := NewClient("test-key", server.URL, 5*time.Second, discardLogger())
		detections, err := client.Fetch(context.Background(), testQuery())

		require.NoError(t, err)
		require.Len(t, detections, 2)
		assert.Equal(t, "/api/area/csv/test-key/VIIRS_NOAA20_NRT/-122,36,-119,39/3/2025-08-14", gotPath)
		assert.Equal(t, 80.0, detections[0].Confidence)
	})

	t.Run("provider error marker inside HTTP 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("Invalid MAP_KEY."))
		}))
		defer server.Close()

		client := NewClient("bad-key", server.URL, 5*time.Second, discardLogger())
		_, err := client.Fetch(context.Background(), testQuery())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProvider)
	})

	t.Run("non-200 status is a provider error, not retried", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := NewClient("test-key", server.URL, 5*time.Second, discardLogger())
		_, err := client.Fetch(context.Background(), testQuery())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProvider)
		assert.Equal(t, 1, calls)
	})

	t.Run("transport failure retries then succeeds", func(t *testing.T) {
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				// Close the connection without a response.
				hj, ok := w.(http.Hijacker)
				require.True(t, ok)
				conn, _, err := hj.Hijack()
				require.NoError(t, err)
				conn.Close()
				return
			}
			_, _ = w.Write([]byte(testBody))
		}))
		defer server.Close()

		client := NewClient("test-key", server.URL, 5*time.Second, discardLogger())
		detections, err := client.Fetch(context.Background(), testQuery())

		require.NoError(t, err)
		assert.Len(t, detections, 2)
		assert.Equal(t, 3, calls)
	})

	t.Run("unreachable host is a transport error", func(t *testing.T) {
		client := NewClient("test-key", "http://127.0.0.1:1", 500*time.Millisecond, discardLogger())
		_, err := client.Fetch(context.Background(), testQuery())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrTransport)
	})

	t.Run("malformed body is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("frp,confidence\n1.0,h\n"))
		}))
		defer server.Close()

		client := NewClient("test-key", server.URL, 5*time.Second, discardLogger())
		_, err := client.Fetch(context.Background(), testQuery())

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrParse)
	})
}

func TestProviderErrorMarker(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		marker string
	}{
		{"invalid key prose", "Invalid MAP_KEY.", "invalid"},
		{"error prose", "Error in query parameters", "error"},
		{"real CSV header", testBody, ""},
		{"CSV with country column first", "country_id,latitude,longitude\nUSA,38.9,-120.5\n", ""},
		{"empty body", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.marker, providerErrorMarker([]byte(tt.body)))
		})
	}
}
