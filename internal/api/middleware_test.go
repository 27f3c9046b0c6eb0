package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/koopa0/parley/internal/log"
)

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("success"))
	})

	wrapped := recoveryMiddleware(log.NewNop())(handler)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", w.Body.String())
}

func TestRecoveryMiddleware_WithPanic(t *testing.T) {
	handler := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	})

	wrapped := recoveryMiddleware(log.NewNop())(handler)
	w := httptest.NewRecorder()

	// Should not panic
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.Config{Level: slog.LevelDebug})

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	wrapped := loggingMiddleware(logger, false)(handler)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), "status=404")
}

func TestRequestIDMiddleware_SetsHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(ctxKeyRequestID).(string)
		assert.NotEmpty(t, id)
		w.WriteHeader(http.StatusOK)
	})

	wrapped := requestIDMiddleware()(handler)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestClientIP(t *testing.T) {
	newReq := func(remoteAddr, realIP, forwardedFor string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/test", nil)
		r.RemoteAddr = remoteAddr
		if realIP != "" {
			r.Header.Set("X-Real-IP", realIP)
		}
		if forwardedFor != "" {
			r.Header.Set("X-Forwarded-For", forwardedFor)
		}
		return r
	}

	t.Run("direct connection", func(t *testing.T) {
		assert.Equal(t, "203.0.113.7", clientIP(newReq("203.0.113.7:52100", "", ""), false))
	})

	t.Run("forwarded headers ignored without trusted proxy", func(t *testing.T) {
		r := newReq("203.0.113.7:52100", "198.51.100.1", "198.51.100.2")
		assert.Equal(t, "203.0.113.7", clientIP(r, false))
	})

	t.Run("x-real-ip wins behind trusted proxy", func(t *testing.T) {
		r := newReq("10.0.0.1:52100", "198.51.100.1", "198.51.100.2")
		assert.Equal(t, "198.51.100.1", clientIP(r, true))
	})

	t.Run("first forwarded-for entry behind trusted proxy", func(t *testing.T) {
		r := newReq("10.0.0.1:52100", "", "198.51.100.2, 10.0.0.1")
		assert.Equal(t, "198.51.100.2", clientIP(r, true))
	})
}

func TestWriteError_Shape(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, http.StatusBadRequest, "bad_request", "invalid input", log.NewNop())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": {"code": "bad_request", "message": "invalid input"}}`, w.Body.String())
}
