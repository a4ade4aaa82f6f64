package v1

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/selendra/dex-sub001/config"
)

func TestIPRateLimiterEvictsIdleClients(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(config.RateLimit{Enabled: true, RequestsPerSecond: 0, Burst: 1})
	l.now = func() time.Time { return now }
	l.lastSweep = now

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		require.True(t, l.get(ip).Allow())
	}
	require.Len(t, l.limiters, 3)
	require.False(t, l.get("10.0.0.1").Allow())

	// 10.0.0.1 stays active while the others go quiet
	now = now.Add(limiterIdleTTL / 2)
	l.get("10.0.0.1")

	now = now.Add(limiterIdleTTL / 2)
	l.get("10.0.0.1")
	require.Len(t, l.limiters, 1)
	require.Contains(t, l.limiters, "10.0.0.1")

	// the active client keeps its exhausted bucket
	require.False(t, l.get("10.0.0.1").Allow())

	// a returning client starts with a fresh bucket
	require.True(t, l.get("10.0.0.2").Allow())
	require.Len(t, l.limiters, 2)
}

func TestIPRateLimiterMiddleware(t *testing.T) {
	l := newIPRateLimiter(config.RateLimit{Enabled: true, RequestsPerSecond: 0, Burst: 1})
	h := l.middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	serve := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/oracle/feed", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, serve("10.0.0.1:1234"))
	require.Equal(t, http.StatusTooManyRequests, serve("10.0.0.1:5678"))
	require.Equal(t, http.StatusOK, serve("10.0.0.2:1234"))
}
