package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestAllowResetsAfterWindow(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 2}).WithClock(c.now)
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Equal(t, int64(1), rl.Hits())

	c.t = c.t.Add(time.Minute)
	assert.True(t, rl.Allow("a"))
}

func TestCleanupDropsIdleClients(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(DefaultConfig()).WithClock(c.now)
	defer rl.Stop()

	rl.Allow("a")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("b")

	assert.Equal(t, 1, rl.cleanupStaleEntries())
	assert.Equal(t, 1, rl.ActiveClients())
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
