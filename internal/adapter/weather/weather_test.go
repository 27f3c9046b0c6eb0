package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.WeatherConfig{BaseURL: srv.URL, APIKey: "test-key"}, log.NewNop())
}

func TestCurrent_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "London", r.URL.Query().Get("q"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"location": {"name": "London", "country": "United Kingdom", "localtime": "2025-06-01 14:30"},
			"current": {
				"temp_c": 18.5,
				"condition": {"text": "Partly cloudy"},
				"wind_kph": 12.2,
				"humidity": 64,
				"feelslike_c": 17.9
			}
		}`))
	})

	report, err := client.Current(context.Background(), "London")
	require.NoError(t, err)

	assert.Equal(t, "London, United Kingdom", report.Location)
	assert.Equal(t, 18.5, report.TempC)
	assert.Equal(t, "Partly cloudy", report.Condition)
	assert.Equal(t, 64, report.Humidity)
	assert.Equal(t, "2025-06-01 14:30", report.LocalTime)
}

func TestCurrent_LocationNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 1006, "message": "No matching location found."}}`))
	})

	_, err := client.Current(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestCurrent_CredentialRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			w.Write([]byte(`{"error": {"code": 2006, "message": "API key is invalid."}}`))
		})

		_, err := client.Current(context.Background(), "London")
		assert.ErrorIs(t, err, ErrCredentialInvalid)
	}
}

func TestCurrent_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Current(context.Background(), "London")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCurrent_MissingCredential(t *testing.T) {
	client := NewClient(config.WeatherConfig{BaseURL: "http://localhost:1"}, log.NewNop())

	assert.False(t, client.Configured())
	_, err := client.Current(context.Background(), "London")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestReport_Format(t *testing.T) {
	r := Report{
		Location:   "Taipei, Taiwan",
		TempC:      31.2,
		Condition:  "Sunny",
		WindKph:    8.6,
		Humidity:   70,
		LocalTime:  "2025-06-01 14:30",
		FeelsLikeC: 35.4,
	}

	got := r.Format()
	assert.Contains(t, got, "Current weather in Taipei, Taiwan")
	assert.Contains(t, got, "Condition: Sunny")
	assert.Contains(t, got, "31.2°C")
	assert.Contains(t, got, "feels like 35.4°C")
	assert.Contains(t, got, "Humidity: 70%")
	assert.Contains(t, got, "Local time: 2025-06-01 14:30")
}
