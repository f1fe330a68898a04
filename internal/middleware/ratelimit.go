package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// tokenBucket refills whole intervals and returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])
if tokens == nil or last_refill == nil then
  tokens = capacity
  last_refill = now_ms
end

local elapsed = math.max(0, now_ms - last_refill)
local intervals = math.floor(elapsed / interval_ms)
if intervals > 0 then
  tokens = capacity
  last_refill = last_refill + (intervals * interval_ms)
end

local allowed = 0
local retry_after_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
end

redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
redis.call('EXPIRE', key, ttl_seconds)
return { allowed, tokens, retry_after_ms }
`)

// RateLimit allows capacity requests per user (or client IP when anonymous)
// per interval. A nil client or a Redis error lets the request through.
func RateLimit(rdb *redis.Client, prefix string, capacity int, interval time.Duration) gin.HandlerFunc {
	if rdb == nil || capacity <= 0 || interval <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	ttl := int64(math.Ceil((2 * interval).Seconds()))

	return func(c *gin.Context) {
		key := rateKey(prefix, c)
		vals, err := tokenBucket.Run(c.Request.Context(), rdb, []string{key},
			time.Now().UnixMilli(), capacity, interval.Milliseconds(), ttl).Int64Slice()
		if err != nil || len(vals) != 3 {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))
		if vals[0] != 1 {
			secs := int64(math.Ceil(float64(vals[2]) / 1000))
			c.Header("Retry-After", strconv.FormatInt(secs, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": fmt.Sprintf("Too many requests, retry in %ds", secs),
				},
			})
			return
		}
		c.Next()
	}
}

func rateKey(prefix string, c *gin.Context) string {
	route := c.FullPath()
	if uid := c.GetInt64("user_id"); uid != 0 {
		return fmt.Sprintf("%s:user:%d:%s %s", prefix, uid, c.Request.Method, route)
	}
	return fmt.Sprintf("%s:ip:%s:%s %s", prefix, c.ClientIP(), c.Request.Method, route)
}
