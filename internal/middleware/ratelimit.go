package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/co-razer/docs-backend/pkg/clientip"
	"github.com/redis/go-redis/v9"
)

const (
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
	// BlockedIPKeyPrefix is the Redis key prefix for blocked IPs
	BlockedIPKeyPrefix = "blocked_ip:"
)

// RedisLimit describes one fixed-window limit shared by every instance.
type RedisLimit struct {
	Name          string        // key namespace, e.g. "auth"
	Window        time.Duration // counting window
	MaxRequests   int           // requests allowed per window
	BlockDuration time.Duration // 0 disables blocking after the limit is hit
}

var (
	// AuthLimit guards register/login: 20 attempts per 10 minutes, then a 1 hour block.
	AuthLimit = RedisLimit{Name: "auth", Window: 10 * time.Minute, MaxRequests: 20, BlockDuration: time.Hour}
	// AILimit guards the AI proxy: 30 prompts per 10 minutes.
	AILimit = RedisLimit{Name: "ai", Window: 10 * time.Minute, MaxRequests: 30}
)

// RedisRateLimit counts requests per IP in Redis. With a nil client it is a
// pass-through, and Redis errors fail open.
func RedisRateLimit(client *redis.Client, limit RedisLimit, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if client == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ip := clientip.RealClientIP(r)
			blockedKey := BlockedIPKeyPrefix + limit.Name + ":" + ip

			if limit.BlockDuration > 0 {
				blocked, err := client.Exists(ctx, blockedKey).Result()
				if err == nil && blocked > 0 {
					writeError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive requests. Please try again later.")
					return
				}
			}

			key := RateLimitKeyPrefix + limit.Name + ":" + ip
			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				logger.WarnContext(ctx, "rate limit check failed; allowing request", "limit", limit.Name, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if n == 1 {
				client.Expire(ctx, key, limit.Window)
			}
			count := int(n)

			if count > limit.MaxRequests {
				if limit.BlockDuration > 0 {
					if err := client.Set(ctx, blockedKey, "1", limit.BlockDuration).Err(); err != nil {
						logger.WarnContext(ctx, "failed to block ip", "ip", ip, "error", err)
					}
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(limit.Window.Seconds())))
				writeError(w, http.StatusTooManyRequests, fmt.Sprintf("Rate limit exceeded. Please try again in %d minutes.", int(limit.Window.Minutes())))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit.MaxRequests-count))
			next.ServeHTTP(w, r)
		})
	}
}
