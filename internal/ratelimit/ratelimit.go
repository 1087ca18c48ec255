package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"backend-snsapp/internal/auth"
	"backend-snsapp/internal/logger"
	"backend-snsapp/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const keyPrefix = "snsapp:ratelimit:"

// Limiter caps requests per caller per minute. With a redis client the
// count is a fixed window shared by every instance; without one it falls
// back to an in-process token bucket per caller.
type Limiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

func New(rdb *redis.Client, perMinute int, log *logger.Logger) *Limiter {
	if log == nil {
		log = logger.Discard()
	}
	return &Limiter{
		rdb:    rdb,
		limit:  perMinute,
		window: time.Minute,
		log:    log,
		now:    time.Now,
		local:  map[string]*rate.Limiter{},
	}
}

// Allow reports whether key may make another request. Redis failures
// fail open.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}
	if l.rdb == nil {
		return l.localLimiter(key).Allow()
	}
	ok, err := l.allowRedis(ctx, key)
	if err != nil {
		l.log.Warnf("rate limiter unavailable, allowing request: %v", err)
		return true
	}
	return ok
}

func (l *Limiter) allowRedis(ctx context.Context, key string) (bool, error) {
	bucket := l.now().Unix() / int64(l.window/time.Second)
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

func (l *Limiter) localLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.window/time.Duration(l.limit)), l.limit)
		l.local[key] = lim
	}
	return lim
}

// Middleware keys on the authenticated caller, falling back to client IP.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key, ok := auth.CallerID(c)
		if !ok {
			key = "ip:" + c.IP()
		}
		if !l.Allow(c.Context(), key) {
			metrics.RateLimitedTotal.WithLabelValues(c.Route().Path).Inc()
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
