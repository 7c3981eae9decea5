package middleware

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daybook/daybook/pkg/metrics"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// idle buckets older than limiterIdle are dropped on the next sweep
	limiterIdle       = 10 * time.Minute
	limiterSweepEvery = 1024
)

type bucket struct {
	lim  *rate.Limiter
	seen atomic.Int64 // unix nanos of the last request
}

// per-key limiter store (simple in-memory token-bucket)
var (
	limiterStore sync.Map // map[string]*bucket
	limiterNew   atomic.Int64
)

// getLimiter returns (and lazily creates) a token-bucket limiter for the given key
func getLimiter(key string, rps float64, burst int, now time.Time) *rate.Limiter {
	v, ok := limiterStore.Load(key)
	if !ok {
		v, ok = limiterStore.LoadOrStore(key, &bucket{lim: rate.NewLimiter(rate.Limit(rps), burst)})
		if !ok && limiterNew.Add(1)%limiterSweepEvery == 0 {
			sweepLimiters(now)
		}
	}
	b := v.(*bucket)
	b.seen.Store(now.UnixNano())
	return b.lim
}

// sweepLimiters forgets buckets that have been idle for limiterIdle.
func sweepLimiters(now time.Time) {
	cutoff := now.Add(-limiterIdle).UnixNano()
	limiterStore.Range(func(k, v interface{}) bool {
		if v.(*bucket).seen.Load() < cutoff {
			limiterStore.Delete(k)
		}
		return true
	})
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket per-key limit.
// Key selection: the authenticated owner when present, otherwise the client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		lim := getLimiter(rateKey(c), rps, burst, time.Now())
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
