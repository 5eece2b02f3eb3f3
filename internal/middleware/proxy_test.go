package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpoofedRealIPCannotDodgeLoginLimit(t *testing.T) {
	h := TrustedRealIP(nil)(LoginRateLimit()(okHandler()))

	last := 0
	for i := 0; i < loginRateLimitBurst+5; i++ {
		req := requestFrom("203.0.113.9", "/api/auth/login")
		req.Header.Set("X-Real-IP", fmt.Sprintf("10.0.0.%d", i+1))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.1.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestSpoofedRealIPCannotBlockAnotherClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limit := RedisLimit{Name: "auth", Window: time.Minute, MaxRequests: 3, BlockDuration: time.Hour}
	h := TrustedRealIP(nil)(RedisRateLimit(client, limit, nil)(okHandler()))

	for i := 0; i < 5; i++ {
		req := requestFrom("203.0.113.9", "/api/auth/login")
		req.Header.Set("X-Real-IP", "198.51.100.77")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.True(t, mr.Exists(BlockedIPKeyPrefix+"auth:203.0.113.9"))
	assert.False(t, mr.Exists(BlockedIPKeyPrefix+"auth:198.51.100.77"))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, requestFrom("198.51.100.77", "/api/auth/login"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTrustedRealIP(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.1.0.0/16", " 192.0.2.7 "})
	require.NoError(t, err)
	require.Len(t, proxies, 2)

	var seen string
	h := TrustedRealIP(proxies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	tests := []struct {
		name string
		peer string
		want string
	}{
		{"trusted cidr", "10.1.4.4", "198.51.100.20"},
		{"trusted single ip", "192.0.2.7", "198.51.100.20"},
		{"untrusted peer keeps its own address", "203.0.113.9", "203.0.113.9:40000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestFrom(tt.peer, "/api/auth/login")
			req.Header.Set("X-Real-IP", "198.51.100.20")
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}
