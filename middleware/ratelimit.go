package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweep = 5 * time.Minute
	limiterIdle  = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// RateLimit provides per-client token-bucket rate limiting, keyed by the
// authenticated adventurer when there is one and by client IP otherwise.
// r = requests per second, b = burst size. Rejected requests get 429 with a
// Retry-After hint.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	limiters := &sync.Map{}
	var lastSweep atomic.Int64
	lastSweep.Store(time.Now().UnixNano())

	sweep := func(now time.Time) {
		prev := lastSweep.Load()
		if now.UnixNano()-prev < int64(limiterSweep) || !lastSweep.CompareAndSwap(prev, now.UnixNano()) {
			return
		}
		cutoff := now.Add(-limiterIdle).UnixNano()
		limiters.Range(func(k, v interface{}) bool {
			if v.(*clientLimiter).lastSeen.Load() < cutoff {
				limiters.Delete(k)
			}
			return true
		})
	}

	return func(c *gin.Context) {
		now := time.Now()
		sweep(now)

		key := "ip:" + c.ClientIP()
		if name := GetAdventurer(c); name != "" {
			key = "adv:" + name
		}
		v, _ := limiters.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(r, b)})
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(now.UnixNano())

		res := cl.limiter.ReserveN(now, 1)
		if !res.OK() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
