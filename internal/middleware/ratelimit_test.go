package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerCaller(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	h := rl.Middleware(okHandler)

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/daily-check-in", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusOK, do("10.0.0.1:2222").Code)
	rec := do("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do("10.0.0.2:1111").Code, "other IPs have their own bucket")
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	h := rl.Middleware(okHandler)

	do := func(user uuid.UUID) int {
		req := httptest.NewRequest(http.MethodPost, "/share-image", nil)
		req.RemoteAddr = "10.0.0.9:1"
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	a, b := uuid.New(), uuid.New()
	assert.Equal(t, http.StatusOK, do(a))
	assert.Equal(t, http.StatusTooManyRequests, do(a))
	assert.Equal(t, http.StatusOK, do(b), "same IP, different user")
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Minute)
	rl.Reserve("ip:1")
	rl.Reserve("ip:2")

	rl.Cleanup(time.Now().Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.visitors)
}
