package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/websage/backend/pkg/logger"
)

// Limiter applies a per-client token bucket. Extraction triggers network
// fetches and embedding calls, so the default budget is small.
type Limiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	capacity  float64
	ratePerMS float64
	lastSweep time.Time
}

type clientBucket struct {
	tokens   float64
	lastSeen time.Time
}

type Config struct {
	RequestsPerMinute int
}

func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	return &Limiter{
		clients:   make(map[string]*clientBucket),
		capacity:  float64(cfg.RequestsPerMinute),
		ratePerMS: float64(cfg.RequestsPerMinute) / float64(time.Minute.Milliseconds()),
		lastSweep: time.Now(),
	}
}

func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()
		if sid := c.Get("X-Session-ID"); sid != "" {
			key = sid
		}

		if !l.take(key) {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		}

		return c.Next()
	}
}

func (l *Limiter) take(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > 10*time.Minute {
		l.sweepLocked(now)
	}

	b, ok := l.clients[key]
	if !ok {
		b = &clientBucket{tokens: l.capacity}
		l.clients[key] = b
	} else {
		elapsed := float64(now.Sub(b.lastSeen).Milliseconds())
		b.tokens += elapsed * l.ratePerMS
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweepLocked drops buckets idle long enough to have fully refilled.
func (l *Limiter) sweepLocked(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastSeen) > 10*time.Minute {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}
