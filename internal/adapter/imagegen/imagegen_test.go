package imagegen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/config"
	"github.com/koopa0/parley/internal/log"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ImageGenConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		Version:         "model-v1",
		PollIntervalMs:  1,
		MaxPollAttempts: 5,
	}, log.NewNop())
}

func writePrediction(w http.ResponseWriter, p prediction) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func TestGenerate_PollsUntilSucceeded(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload struct {
			Version string `json:"version"`
			Input   struct {
				Prompt string `json:"prompt"`
			} `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "model-v1", payload.Version)
		assert.Equal(t, "a red fox", payload.Input.Prompt)

		writePrediction(w, prediction{ID: "p1", Status: statusStarting})
	})
	mux.HandleFunc("GET /predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writePrediction(w, prediction{ID: "p1", Status: statusProcessing})
			return
		}
		writePrediction(w, prediction{
			ID: "p1", Status: statusSucceeded,
			Output: []string{"https://img.example.com/out.png"},
		})
	})

	client := newTestClient(t, mux)

	url, err := client.Generate(context.Background(), "a red fox")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/out.png", url)
	assert.Equal(t, int32(3), polls.Load())
}

func TestGenerate_FailedPrediction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusStarting})
	})
	mux.HandleFunc("GET /predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusFailed, Error: "NSFW content detected"})
	})

	client := newTestClient(t, mux)

	_, err := client.Generate(context.Background(), "something")
	require.ErrorIs(t, err, ErrGenerationFailed)
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestGenerate_CanceledPrediction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusCanceled})
	})

	client := newTestClient(t, mux)

	_, err := client.Generate(context.Background(), "something")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerate_SucceededWithNoOutput(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusSucceeded})
	})

	client := newTestClient(t, mux)

	_, err := client.Generate(context.Background(), "something")
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGenerate_TimeoutAfterPollingBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusStarting})
	})
	mux.HandleFunc("GET /predictions/p1", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusProcessing})
	})

	client := newTestClient(t, mux)

	_, err := client.Generate(context.Background(), "something")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "still processing")
}

func TestGenerate_ContextExpiresDuringPollWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: statusStarting})
	}))
	t.Cleanup(srv.Close)

	// A poll interval far beyond the context deadline: cancellation must
	// win the wait.
	client := NewClient(config.ImageGenConfig{
		BaseURL:         srv.URL,
		APIKey:          "test-key",
		PollIntervalMs:  60_000,
		MaxPollAttempts: 5,
	}, log.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "something")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerate_CredentialRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Generate(context.Background(), "something")
	assert.ErrorIs(t, err, ErrCredentialInvalid)
}

func TestGenerate_MissingCredential(t *testing.T) {
	client := NewClient(config.ImageGenConfig{BaseURL: "http://localhost:1"}, log.NewNop())

	assert.False(t, client.Configured())
	_, err := client.Generate(context.Background(), "something")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestGenerate_UnknownStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /predictions", func(w http.ResponseWriter, r *http.Request) {
		writePrediction(w, prediction{ID: "p1", Status: "exploded"})
	})

	client := newTestClient(t, mux)

	_, err := client.Generate(context.Background(), "something")
	assert.ErrorIs(t, err, ErrUnavailable)
}
