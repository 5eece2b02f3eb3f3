package middleware

import (
	"net/http"
	"strconv"

	"github.com/co-razer/docs-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

// AI prompt rate limit: signed-in users are keyed by user id, anonymous
// callers by IP. Auth: 20 req/min, burst 5. Anonymous: 5 req/min, burst 2.
const (
	aiAuthPerMinute = 20
	aiAuthBurst     = 5
	aiAnonPerMinute = 5
	aiAnonBurst     = 2
)

// AIRateLimit throttles prompt submissions. Returns 429 with rate headers when exceeded.
func AIRateLimit() func(http.Handler) http.Handler {
	authed := newLimiterSet(rate.Limit(aiAuthPerMinute/60.0), aiAuthBurst)
	anon := newLimiterSet(rate.Limit(aiAnonPerMinute/60.0), aiAnonBurst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiters, key, limit := anon, "ip:"+clientip.RealClientIP(r), aiAnonBurst
			if id := IdentityFrom(r.Context()); !id.Anonymous() {
				limiters, key, limit = authed, "user:"+id.UserID.Hex(), aiAuthBurst
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			if !limiters.get(key).Allow() {
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, http.StatusTooManyRequests, "Too many AI requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
