package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/qrpay/internal/config"
)

func newNoopLoggerLimit() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRateLimitMiddleware(t *testing.T) {
	logger := newNoopLoggerLimit()

	// Создаем тестовый handler
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("success")); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	})

	requestFor := func(userUID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		return req.WithContext(context.WithValue(req.Context(), UserUID, userUID))
	}

	t.Run("allows requests within rate limit", func(t *testing.T) {
		handler := RateLimitMiddleware(logger, config.RateLimit{RPS: 10, Burst: 10})(testHandler)

		for range 10 {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, requestFor("user-1"))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		}
	})

	t.Run("blocks requests exceeding rate limit", func(t *testing.T) {
		handler := RateLimitMiddleware(logger, config.RateLimit{RPS: 1, Burst: 1})(testHandler)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFor("user-1"))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, requestFor("user-1"))
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "too many requests")
	})

	t.Run("limits are per user", func(t *testing.T) {
		handler := RateLimitMiddleware(logger, config.RateLimit{RPS: 1, Burst: 1})(testHandler)

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFor("user-1"))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		handler.ServeHTTP(w, requestFor("user-2"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLimiters_EvictsIdleEntries(t *testing.T) {
	l := newLimiters(config.RateLimit{RPS: 1, Burst: 1})
	start := time.Now()

	assert.True(t, l.allow("user-1", start))
	assert.False(t, l.allow("user-1", start))
	assert.Len(t, l.entries, 1)

	assert.True(t, l.allow("user-2", start.Add(limiterIdleTTL+time.Second)))
	assert.Len(t, l.entries, 1)
}
