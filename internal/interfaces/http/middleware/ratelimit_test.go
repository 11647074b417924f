package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pocketbook/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, limit int) (*RateLimiter, *time.Time) {
	t.Helper()
	rl := NewRateLimiter(limit, time.Minute)
	t.Cleanup(rl.Close)
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests over the limit", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 3)
		for i := 0; i < 3; i++ {
			assert.True(t, rl.Allow("phone"), "request %d", i+1)
		}
		assert.False(t, rl.Allow("phone"))
		assert.Equal(t, 0, rl.Remaining("phone"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1)
		assert.True(t, rl.Allow("phone"))
		assert.False(t, rl.Allow("phone"))
		assert.True(t, rl.Allow("tablet"))
	})

	t.Run("window resets", func(t *testing.T) {
		rl, now := newTestLimiter(t, 1)
		assert.True(t, rl.Allow("phone"))
		assert.False(t, rl.Allow("phone"))
		*now = now.Add(time.Minute)
		assert.Equal(t, 1, rl.Remaining("phone"))
		assert.True(t, rl.Allow("phone"))
	})

	t.Run("evicts idle keys", func(t *testing.T) {
		rl, now := newTestLimiter(t, 1)
		rl.Allow("phone")
		*now = now.Add(3 * time.Minute)
		rl.evict()
		rl.mu.Lock()
		defer rl.mu.Unlock()
		assert.Empty(t, rl.clients)
	})

	t.Run("concurrent callers share the budget", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 50)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rl.Allow("phone") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 50, allowed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		rl := NewRateLimiter(1, time.Minute)
		rl.Close()
		rl.Close()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, _ := newTestLimiter(t, 2)

	r := gin.New()
	r.GET("/guest/:device", RateLimit(rl, GuestKey), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	get := func(device string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guest/"+device, nil))
		return w
	}

	w := get("phone")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	get("phone")

	w = get("phone")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeRateLimit, resp.Error.Code)

	assert.Equal(t, http.StatusOK, get("tablet").Code)
}

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RateLimit(nil, GuestKey), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
